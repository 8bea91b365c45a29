package chartdata

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"strings"
)

// Frame is a column-ordered table of raw CSV cells. Cells stay as strings;
// numeric interpretation happens at the point of use so that mixed columns
// behave the same way whether they are read once or cached.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// LoadCSVFrame reads an entire CSV file into a Frame. The first record is the
// header. Short records are padded with empty cells so every row has one cell
// per column.
func LoadCSVFrame(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Frame{}, nil
	}

	columns := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]string, len(columns))
		copy(row, record)
		rows = append(rows, row)
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// ColumnIndex returns the position of a column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, col := range f.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the frame has a column of the given name.
func (f *Frame) HasColumn(name string) bool { return f.ColumnIndex(name) >= 0 }

// Cell returns the raw cell at (row, column index).
func (f *Frame) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(f.Rows) || col >= len(f.Rows[row]) {
		return ""
	}
	return f.Rows[row][col]
}

// parseCell interprets a cell as a float. Empty cells are nulls.
func parseCell(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// sumColumn adds all parseable cells of a column over the given row indexes,
// skipping nulls and non-numeric cells.
func (f *Frame) sumColumn(col int, rows []int) float64 {
	total := 0.0
	for _, r := range rows {
		if v, ok := parseCell(f.Cell(r, col)); ok {
			total += v
		}
	}
	return total
}

// allRows returns every row index in order.
func (f *Frame) allRows() []int {
	rows := make([]int, len(f.Rows))
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// isNumericColumn reports whether every non-null cell of the column parses as
// a number. A column with no non-null cells counts as numeric, matching how
// tabular readers type all-null columns.
func (f *Frame) isNumericColumn(col int) bool {
	for r := range f.Rows {
		cell := strings.TrimSpace(f.Cell(r, col))
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
	}
	return true
}

// hasNonNumericValue reports whether the column holds at least one non-null
// cell that fails numeric parsing, i.e. it is genuinely categorical.
func (f *Frame) hasNonNumericValue(col int) bool {
	for r := range f.Rows {
		cell := strings.TrimSpace(f.Cell(r, col))
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return true
		}
	}
	return false
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
