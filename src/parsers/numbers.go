package parsers

import (
	"strconv"
	"strings"
)

// ParseLocalizedNumber parses numeric cells from Argentine spreadsheets:
// "$ 13.999,50" -> 13999.5. Comma is the decimal separator; dots are
// thousands separators when a comma is present. Non-numeric cells parse
// to 0 rather than failing the row.
func ParseLocalizedNumber(value string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, value)
	if cleaned == "" {
		return 0
	}
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseIntCell parses an integer cell, defaulting to fallback when the
// cell is empty or non-numeric.
func ParseIntCell(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Cell returns row[idx] trimmed, or "" when the column is absent or the
// row is short. Absent columns yield empty data, not an error.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// FindColumn returns the index of the first header matching any of the
// given lower-cased substrings, or -1.
func FindColumn(headers []string, substrings ...string) int {
	for i, h := range headers {
		for _, sub := range substrings {
			if strings.Contains(h, sub) {
				return i
			}
		}
	}
	return -1
}

// FindColumnExact returns the index of the first header equal to any of
// the given lower-cased names, starting the scan at from.
func FindColumnExact(headers []string, from int, names ...string) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(headers); i++ {
		for _, name := range names {
			if headers[i] == name {
				return i
			}
		}
	}
	return -1
}

// LowerHeaders lower-cases and trims a header row for fuzzy matching.
func LowerHeaders(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}
