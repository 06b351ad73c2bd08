package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePredicateErrors(t *testing.T) {
	tests := []string{
		"",
		"age between 18 and 65",
		"18 >= age",
		"age >= 18abc",
		"age >= 'unterminated",
	}
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := parsePredicate(expr)
			assert.ErrorIs(t, err, ErrInvalidCriteria)
		})
	}
}

func TestPredicateFields(t *testing.T) {
	p, err := parsePredicate("event_date <= index_date + 6 weeks")
	require.NoError(t, err)
	assert.Equal(t, []string{"event_date", "index_date"}, p.fields())
}

func TestPredicateEval(t *testing.T) {
	tests := []struct {
		name string
		expr string
		rec  Record
		want bool
	}{
		{"number at threshold", "age >= 18", Record{"age": "18"}, true},
		{"number below threshold", "age >= 18", Record{"age": "17"}, false},
		{"number blank value", "age >= 18", Record{"age": ""}, false},
		{"number missing field", "age >= 18", Record{}, false},
		{"number unparseable value", "age >= 18", Record{"age": "abc"}, false},
		{"number fractional", "age < 65", Record{"age": "64.5"}, true},
		{"text equal", "sex == 'F'", Record{"sex": "F"}, true},
		{"text not equal", "sex != 'F'", Record{"sex": "M"}, true},
		{"date before bound", "event_date <= 2020-03-01", Record{"event_date": "2020-02-15"}, true},
		{"date after bound", "event_date <= 2020-03-01", Record{"event_date": "2020-03-02"}, false},
		{"date wrong format", "event_date <= 2020-03-01", Record{"event_date": "15/02/2020"}, false},
		{"quoted date literal", "event_date == '2020-03-01'", Record{"event_date": "2020-03-01"}, true},
		{
			"offset inside window",
			"event_date <= index_date + 6 weeks",
			Record{"event_date": "2020-02-10", "index_date": "2020-01-01"},
			true,
		},
		{
			"offset outside window",
			"event_date <= index_date + 6 weeks",
			Record{"event_date": "2020-02-13", "index_date": "2020-01-01"},
			false,
		},
		{
			"offset missing anchor",
			"event_date <= index_date + 6 weeks",
			Record{"event_date": "2020-02-10"},
			false,
		},
		{
			"bare column comparison",
			"event_date >= index_date",
			Record{"event_date": "2020-01-05", "index_date": "2020-01-01"},
			true,
		},
		{
			"offset minus days",
			"event_date <= index_date - 1 day",
			Record{"event_date": "2019-12-31", "index_date": "2020-01-01"},
			true,
		},
		{"is null missing", "death_date is null", Record{}, true},
		{"is null blank", "death_date is null", Record{"death_date": "  "}, true},
		{"is null set", "death_date is null", Record{"death_date": "2021-01-01"}, false},
		{"is not null set", "person_id is not null", Record{"person_id": "p1"}, true},
		{"is not null uppercase", "person_id IS NOT NULL", Record{"person_id": ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parsePredicate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.eval(tt.rec))
		})
	}
}
