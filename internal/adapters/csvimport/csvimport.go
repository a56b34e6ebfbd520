// Package csvimport reads guest-list CSV files with a "name" header column.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sentinel kinds for CSV import errors.
var (
	ErrMissingNameColumn = errors.New("csv has no name column")
	ErrMalformed         = errors.New("malformed csv")
)

// MsgEmptyName is reported for rows without a usable name.
const MsgEmptyName = "Empty or missing name field"

// Row is one data row with a non-blank name. Line is the 1-based index of
// the data row, not counting the header.
type Row struct {
	Line int
	Name string
}

// RowError describes a data row that could not be used.
type RowError struct {
	Line    int
	Name    string
	Message string
}

// Result holds every parsed row split into usable names and rejections.
type Result struct {
	Rows   []Row
	Errors []RowError
}

// Total is the number of data rows read.
func (r Result) Total() int { return len(r.Rows) + len(r.Errors) }

// Parse reads all of src. The header must contain a column whose name is
// "name" in any letter case; other columns are ignored.
func Parse(src io.Reader) (Result, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, ErrMissingNameColumn
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	col := -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, "name") {
			col = i
			break
		}
	}
	if col < 0 {
		return Result{}, ErrMissingNameColumn
	}

	var res Result
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("%w: row %d: %w", ErrMalformed, line, err)
		}

		var name string
		if col < len(rec) {
			name = strings.TrimSpace(rec[col])
		}
		if name == "" {
			res.Errors = append(res.Errors, RowError{Line: line, Message: MsgEmptyName})
			continue
		}
		res.Rows = append(res.Rows, Row{Line: line, Name: name})
	}
	return res, nil
}
