// internal/circulation/export.go
package circulation

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

var exportHeader = []string{"id", "userName", "bookTitle", "loanDate", "dueDate", "returnDate", "status"}

// ExportLoans writes every loan as one CSV row. Overdue promotion applies as
// it does for ListLoans.
func (s *service) ExportLoans(ctx context.Context, w io.Writer) error {
	ctx, span := s.tracer.Start(ctx, "circulation.export_loans")
	defer span.End()

	loans, err := s.ListLoans(ctx, Scope{})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, l := range loans {
		returned := ""
		if l.ReturnDate != nil {
			returned = l.ReturnDate.UTC().Format(time.RFC3339)
		}
		record := []string{
			l.ID.String(),
			l.Username,
			l.BookTitle,
			l.LoanDate.UTC().Format(time.RFC3339),
			l.DueDate.UTC().Format(time.RFC3339),
			returned,
			string(l.Status),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write loan %s: %w", l.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
