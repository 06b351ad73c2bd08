package cohort

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bhfdschds/hds-functions/internal/dates"
)

// Null-check operators; comparison operators use their literal spelling.
const (
	opIsNull  = "is null"
	opNotNull = "is not null"
)

// Literal kinds a right-hand side can take.
const (
	litNumber = "number"
	litText   = "text"
	litDate   = "date"
	litOffset = "offset"
)

type literal struct {
	kind   string
	num    float64
	text   string
	date   time.Time
	offset dates.Offset
}

// predicate is one parsed criterion expression: field, operator, and
// right-hand literal.
type predicate struct {
	field string
	op    string
	lit   literal
}

var (
	nullRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s+(?i:is)\s+((?i:not)\s+)?(?i:null)$`)
	cmpRe  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*(==|!=|<=|>=|<|>)\s*(.+)$`)
)

// parsePredicate parses "field OP literal", "field is null", or
// "field is not null". Literals are numbers, quoted strings, ISO dates,
// or date offsets against another column ("index_date + 30 days").
func parsePredicate(expr string) (*predicate, error) {
	s := strings.TrimSpace(expr)
	if m := nullRe.FindStringSubmatch(s); m != nil {
		op := opIsNull
		if m[2] != "" {
			op = opNotNull
		}
		return &predicate{field: m[1], op: op}, nil
	}

	m := cmpRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%w: cannot parse expression %q", ErrInvalidCriteria, expr)
	}
	lit, err := parseLiteral(strings.TrimSpace(m[3]))
	if err != nil {
		return nil, fmt.Errorf("%w: expression %q: %v", ErrInvalidCriteria, expr, err)
	}
	return &predicate{field: m[1], op: m[2], lit: lit}, nil
}

func parseLiteral(s string) (literal, error) {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			inner := s[1 : len(s)-1]
			if d, err := dates.Parse(inner); err == nil {
				return literal{kind: litDate, date: d}, nil
			}
			return literal{kind: litText, text: inner}, nil
		}
	}
	if d, err := dates.Parse(s); err == nil {
		return literal{kind: litDate, date: d}, nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return literal{kind: litNumber, num: n}, nil
	}
	if o, err := dates.ParseOffset(s); err == nil {
		return literal{kind: litOffset, offset: o}, nil
	}
	return literal{}, fmt.Errorf("unrecognized literal %q", s)
}

// fields returns every column the predicate reads.
func (p *predicate) fields() []string {
	out := []string{p.field}
	if p.lit.kind == litOffset {
		out = append(out, p.lit.offset.Anchor)
	}
	return out
}

// eval applies the predicate to one record. Missing and blank values fail
// every comparison and count as null, matching how the flowchart treats
// incomplete source rows: they drop out instead of erroring.
func (p *predicate) eval(rec Record) bool {
	raw, ok := rec[p.field]
	val := strings.TrimSpace(raw)

	switch p.op {
	case opIsNull:
		return !ok || val == ""
	case opNotNull:
		return ok && val != ""
	}
	if !ok || val == "" {
		return false
	}

	switch p.lit.kind {
	case litNumber:
		n, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return false
		}
		return cmpOK(p.op, compareFloat(n, p.lit.num))
	case litText:
		return cmpOK(p.op, strings.Compare(val, p.lit.text))
	case litDate:
		d, err := dates.Parse(val)
		if err != nil {
			return false
		}
		return cmpOK(p.op, compareTime(d, p.lit.date))
	case litOffset:
		d, err := dates.Parse(val)
		if err != nil {
			return false
		}
		anchor, err := dates.Parse(rec[p.lit.offset.Anchor])
		if err != nil {
			return false
		}
		return cmpOK(p.op, compareTime(d, p.lit.offset.Shift(anchor)))
	}
	return false
}

func cmpOK(op string, c int) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
