package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsxMagic is the ZIP local-file-header signature; XLSX files are ZIP
// containers.
var xlsxMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// SheetReader reads XLSX (via excelize) or CSV uploads into rows of
// string cells. The format is sniffed from the content, not the
// filename: marketplace exports arrive as .xlsx, the settings importer
// round-trips CSV.
type SheetReader struct{}

func NewSheetReader() *SheetReader {
	return &SheetReader{}
}

func (r *SheetReader) ReadRows(file io.Reader) ([][]string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if bytes.HasPrefix(data, xlsxMagic) {
		return readXLSXRows(data)
	}
	return readCSVRows(data)
}

func readXLSXRows(data []byte) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSVRows(data []byte) ([][]string, error) {
	// Strip a UTF-8 BOM so the first header cell matches.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV records: %w", err)
	}
	return rows, nil
}
