package types

import "strconv"

// Cell roles. Marginal cells summarize the data cells of their row or
// column; the grand total summarizes the whole table.
const (
	RoleData     = "data"
	RoleMarginal = "marginal"
)

// Cell classifications. Cells start unclassified; the engine assigns one
// of the other three values to every cell before transforming anything.
const (
	ClassUnknown        = ""
	ClassSafe           = "safe"
	ClassUnsafe         = "unsafe"
	ClassStructuralZero = "structural_zero"
)

// Coord addresses a cell by its row and column labels.
type Coord struct {
	Row string `json:"row"`
	Col string `json:"col"`
}

func (c Coord) String() string { return c.Row + "/" + c.Col }

// Less orders coordinates lexicographically, row label first. Used for
// deterministic tie-breaking.
func (c Coord) Less(o Coord) bool {
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

// Cell is one entry of a count table. Raw is the original count and is
// never modified; Value is the transformed count and stays nil until the
// engine rounds the cell, or permanently when the cell is suppressed.
type Cell struct {
	Coord      Coord
	Raw        int64
	Role       string
	Class      string
	Value      *int64
	Suppressed bool
}

// Display renders the cell for release output: the suppression symbol for
// suppressed cells, the transformed value when present, the raw count
// otherwise (untransformed tables).
func (c *Cell) Display(symbol string) string {
	if c.Suppressed {
		return symbol
	}
	if c.Value != nil {
		return strconv.FormatInt(*c.Value, 10)
	}
	return strconv.FormatInt(c.Raw, 10)
}

// SetValue sets the transformed value.
func (c *Cell) SetValue(v int64) {
	c.Value = &v
}

// Clone returns a deep copy of the cell.
func (c *Cell) Clone() *Cell {
	out := *c
	if c.Value != nil {
		v := *c.Value
		out.Value = &v
	}
	return &out
}
