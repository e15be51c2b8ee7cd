// internal/catalog/csv.go
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"libris/internal/apperr"
	"libris/internal/validation"
)

var requiredColumns = []string{"title", "author"}

// ParseBooksCSV reads a header row followed by one book per row. Columns are
// matched by name; isbn, publisher and totalCopies may be absent. Blank lines
// are skipped and an unparsable copy count means one copy.
func ParseBooksCSV(r io.Reader) ([]BookInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Validation("csv file is empty", err)
	}
	if err != nil {
		return nil, apperr.Validation("malformed csv header", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := index[required]; !ok {
			return nil, apperr.Validation(fmt.Sprintf("csv header is missing column %q", required), nil)
		}
	}

	var inputs []BookInput
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("malformed csv at line %d", line), err)
		}
		if isBlank(record) {
			continue
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		copies, _ := strconv.Atoi(field("totalCopies"))
		in := BookInput{
			Title:       field("title"),
			Author:      field("author"),
			ISBN:        field("isbn"),
			Publisher:   field("publisher"),
			TotalCopies: copies,
		}
		if err := validation.Struct(in); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("line %d: %s", line, apperr.Message(err)), err)
		}
		inputs = append(inputs, in)
	}

	return inputs, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
