package types

// Table is an ordered set of subscriber rows and the columns its source
// schema carries. Stages check their required columns against Columns.
type Table struct {
	Columns []string      `json:"columns"`
	Rows    []*Subscriber `json:"rows"`
}

// NewTable creates a table with the given schema
func NewTable(columns []string, rows []*Subscriber) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: rows}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn checks the schema for a column
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the required columns absent from the schema, in
// the order they were requested
func (t *Table) MissingColumns(required ...string) []string {
	present := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		present[c] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := present[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// AddColumns appends columns not yet in the schema
func (t *Table) AddColumns(cols ...string) {
	for _, c := range cols {
		if !t.HasColumn(c) {
			t.Columns = append(t.Columns, c)
		}
	}
}

// Clone returns a deep copy so a stage never mutates its input
func (t *Table) Clone() *Table {
	rows := make([]*Subscriber, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.Clone()
	}
	return NewTable(t.Columns, rows)
}

// WithRows returns a table with the same schema and the given rows
func (t *Table) WithRows(rows []*Subscriber) *Table {
	return NewTable(t.Columns, rows)
}
