// JSON table documents: a raw-count form for ingest and a released form
// for output. The reader rejects duplicate object keys, which encoding/json
// would otherwise silently last-write-wins.
package tableio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

// jsonTable is the raw-count document accepted by ReadJSON. Rows and cols
// list the data labels only; marginal cells address the marginal label.
type jsonTable struct {
	Name          string     `json:"name"`
	RowDim        string     `json:"row_dim"`
	ColDim        string     `json:"col_dim"`
	Rows          []string   `json:"rows"`
	Cols          []string   `json:"cols"`
	MarginalLabel string     `json:"marginal_label,omitempty"`
	Cells         []jsonCell `json:"cells"`
}

type jsonCell struct {
	Row   string `json:"row"`
	Col   string `json:"col"`
	Count int64  `json:"count"`
}

// ReadJSON reads a raw-count table document. Returns an error wrapping
// types.ErrInvalidTable for duplicate object keys, duplicate cell
// coordinates, or labels the table model rejects. Completeness of the grid
// is the caller's concern via Table.Validate.
func ReadJSON(r io.Reader) (*types.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := checkDuplicateKeys(dec); err != nil {
		return nil, err
	}

	var doc jsonTable
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidTable, err)
	}

	tbl, err := types.NewTable(doc.Name, doc.RowDim, doc.ColDim, doc.Rows, doc.Cols)
	if err != nil {
		return nil, err
	}
	if doc.MarginalLabel != "" {
		if err := tbl.DeclareMarginals(doc.MarginalLabel); err != nil {
			return nil, err
		}
	}

	seen := make(map[types.Coord]bool, len(doc.Cells))
	for _, c := range doc.Cells {
		coord := types.Coord{Row: c.Row, Col: c.Col}
		if seen[coord] {
			return nil, &types.TableError{Coord: coord, Reason: "duplicate cell"}
		}
		seen[coord] = true

		onMarginal := doc.MarginalLabel != "" &&
			(c.Row == doc.MarginalLabel || c.Col == doc.MarginalLabel)
		if onMarginal {
			err = tbl.SetMarginal(c.Row, c.Col, c.Count)
		} else {
			err = tbl.SetCount(c.Row, c.Col, c.Count)
		}
		if err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// checkDuplicateKeys walks the token stream and fails on the first object
// with a repeated key.
func checkDuplicateKeys(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%w: %v", types.ErrInvalidTable, err)
	}
	switch tok {
	case json.Delim('{'):
		seen := make(map[string]bool)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("%w: %v", types.ErrInvalidTable, err)
			}
			key, _ := keyTok.(string)
			if seen[key] {
				return fmt.Errorf("%w: duplicate object key %q", types.ErrInvalidTable, key)
			}
			seen[key] = true
			if err := checkDuplicateKeys(dec); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	case json.Delim('['):
		for dec.More() {
			if err := checkDuplicateKeys(dec); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	}
	return nil
}

// releasedTable is the output document written by WriteJSON. Values are
// numbers for published cells and the suppression symbol string for masked
// ones; the released form is not meant to be re-ingested.
type releasedTable struct {
	Name          string         `json:"name"`
	RowDim        string         `json:"row_dim"`
	ColDim        string         `json:"col_dim"`
	Rows          []string       `json:"rows"`
	Cols          []string       `json:"cols"`
	MarginalLabel string         `json:"marginal_label,omitempty"`
	Cells         []releasedCell `json:"cells"`
}

type releasedCell struct {
	Row   string `json:"row"`
	Col   string `json:"col"`
	Value any    `json:"value"`
}

// WriteJSON renders the released table document in iteration order.
func WriteJSON(w io.Writer, t *types.Table, symbol string) error {
	doc := releasedTable{
		Name:          t.Name,
		RowDim:        t.RowDim,
		ColDim:        t.ColDim,
		Rows:          t.RowLabels,
		Cols:          t.ColLabels,
		MarginalLabel: t.MarginalLabel,
	}
	for _, cell := range t.Cells() {
		rc := releasedCell{Row: cell.Coord.Row, Col: cell.Coord.Col}
		switch {
		case cell.Suppressed:
			rc.Value = symbol
		case cell.Value != nil:
			rc.Value = *cell.Value
		default:
			rc.Value = cell.Raw
		}
		doc.Cells = append(doc.Cells, rc)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling table: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteJSONFile writes the released table document to path atomically.
func WriteJSONFile(path string, t *types.Table, symbol string) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, t, symbol); err != nil {
		return err
	}
	return AtomicWriteFile(path, buf.Bytes())
}
