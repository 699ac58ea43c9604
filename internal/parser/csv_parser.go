// Package parser turns CSV registration exports into raw records.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"ev-dashboard/internal/models"
)

// ParseResult is the output shared by every parsing entry point
type ParseResult struct {
	Headers []string
	Records []models.RawRecord
	// Rows counts data lines read, including the dropped ones
	Rows    int
	Dropped int

	idColumn string
}

// NewResult starts an empty result for headers. Sources other than CSV
// text feed it row by row through Add.
func NewResult(headers []string) *ParseResult {
	return &ParseResult{
		Headers:  headers,
		Records:  make([]models.RawRecord, 0),
		idColumn: models.ResolveColumn(headers, models.ColumnVIN),
	}
}

// ParseError represents a parsing error with the stage it happened in
type ParseError struct {
	Stage string
	Line  int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at %s stage (line %d): %v", e.Stage, e.Line, e.Err)
	}
	return fmt.Sprintf("parse error at %s stage: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsTransient returns false as malformed input does not fix itself
func (e *ParseError) IsTransient() bool {
	return false
}

// ParseText parses CSV text by splitting on line breaks and commas.
// Quoted fields and embedded commas are not supported; use ParseReader
// for production input.
func ParseText(text string) *ParseResult {
	lines := strings.Split(text, "\n")
	result := NewResult(stripBOM(splitLine(lines[0])))

	for _, line := range lines[1:] {
		result.Add(splitLine(line))
	}

	return result
}

// ParseReader parses CSV from r, treating the first row as headers.
// Quoted and escaped fields are honoured, rows may be ragged and stray
// quotes are kept literally. A row the reader still rejects is counted as
// dropped; only read failures abort the parse.
func ParseReader(r io.Reader) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return NewResult(nil), nil
	}
	if err != nil {
		return nil, &ParseError{Stage: "header", Line: 1, Err: err}
	}

	result := NewResult(stripBOM(trimAll(header)))

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			// a lazily closed quote can end the input mid-record
			if len(row) > 0 {
				result.Add(trimAll(row))
			}
			break
		}
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			result.Rows++
			result.Dropped++
			continue
		}
		if err != nil {
			return nil, &ParseError{Stage: "body", Line: result.Rows + 2, Err: err}
		}
		result.Add(trimAll(row))
	}

	return result, nil
}

// Add zips values positionally with the headers and keeps the record only
// when it has a VIN. Missing or empty values are left null.
func (p *ParseResult) Add(values []string) {
	p.Rows++

	record := make(models.RawRecord, len(p.Headers))
	for i, h := range p.Headers {
		if i < len(values) && values[i] != "" {
			record[h] = values[i]
		}
	}

	if record[p.idColumn] == "" {
		p.Dropped++
		return
	}
	p.Records = append(p.Records, record)
}

func splitLine(line string) []string {
	return trimAll(strings.Split(line, ","))
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// stripBOM removes a UTF-8 byte order mark from the first header
func stripBOM(headers []string) []string {
	if len(headers) > 0 {
		headers[0] = strings.TrimSpace(strings.TrimPrefix(headers[0], "\ufeff"))
	}
	return headers
}
