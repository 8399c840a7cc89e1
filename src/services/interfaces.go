package services

import "errors"

var (
	ErrParsingFailed    = errors.New("error parsing file")
	ErrProcessingFailed = errors.New("error processing records")
)

// ImportResult summarizes a confirmed import.
type ImportResult struct {
	Imported          int `json:"imported"`
	Skipped           int `json:"skipped"`
	DuplicateCount    int `json:"duplicateCount"`
	UnrecognizedCount int `json:"unrecognizedCount"`
}
