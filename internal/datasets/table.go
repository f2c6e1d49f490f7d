package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// Table is a CSV file with a header row.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadTable parses a header CSV. Column names are matched case-insensitively.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}

	t := &Table{Header: records[0], index: make(map[string]int)}
	for i, name := range t.Header {
		t.index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for i, rec := range records[1:] {
		if len(rec) != len(t.Header) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrMalformed, i+2, len(rec), len(t.Header))
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// LoadTable reads a header CSV from path.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table has the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[strings.ToLower(col)]
	return ok
}

// Strings returns a column as text.
func (t *Table) Strings(col string) ([]string, error) {
	j, ok := t.index[strings.ToLower(col)]
	if !ok {
		return nil, fmt.Errorf("no column %q (have %s)", col, strings.Join(t.Header, ", "))
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = strings.TrimSpace(row[j])
	}
	return out, nil
}

// Column returns a column as numbers; empty and NA cells become NaN.
func (t *Table) Column(col string) ([]float64, error) {
	vals, err := t.Strings(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		f, err := parseFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q row %d: %q", ErrMalformed, col, i+2, v)
		}
		out[i] = f
	}
	return out, nil
}

// NumericColumns returns the names of columns whose every cell parses as a
// number.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, name := range t.Header {
		if vals, err := t.Column(name); err == nil && !allNaN(vals) {
			out = append(out, name)
		}
	}
	return out
}

func allNaN(x []float64) bool {
	for _, v := range x {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

func (t *Table) clone() *Table {
	out := &Table{
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]string, len(t.Rows)),
		index:  make(map[string]int, len(t.index)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]string(nil), r...)
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	return out
}
