package parsers

import (
	"errors"
	"io"
)

// ErrNoHeaderRow is returned when a spreadsheet does not contain a
// recognizable header row.
var ErrNoHeaderRow = errors.New("header row not found")

// RowReader turns an uploaded spreadsheet (XLSX or CSV) into rows of
// cells. Both importers consume this shape.
type RowReader interface {
	ReadRows(file io.Reader) ([][]string, error)
}
