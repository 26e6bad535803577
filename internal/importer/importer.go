// Package importer loads historical attendance from CSV files. Rows are
// processed independently: duplicates are counted, broken rows are
// reported, and the rest of the batch always goes through.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// dateFormats accepted in the day column.
var dateFormats = []string{"2006-01-02", "02.01.2006", "2006/01/02"}

// Importer parses attendance CSVs and feeds them to the ledger.
type Importer struct {
	ledger     database.Ledger
	identities database.IdentityStore
}

// New creates an importer.
func New(ledger database.Ledger, identities database.IdentityStore) *Importer {
	return &Importer{ledger: ledger, identities: identities}
}

// Import reads CSV rows of person, subject_id, day. The person column
// may hold a person id or a display name; names are resolved with
// diacritic-insensitive matching. A header row is detected and skipped.
func (i *Importer) Import(ctx context.Context, r io.Reader) (database.BulkReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []database.BulkRecord
	var parseErrors []string
	line := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return database.BulkReport{}, fmt.Errorf("read csv: %w", err)
		}
		line++

		if line == 1 && isHeader(row) {
			continue
		}
		if len(row) < 3 {
			parseErrors = append(parseErrors, fmt.Sprintf("line %d: expected person, subject_id, day", line))
			continue
		}

		person := strings.TrimSpace(row[0])
		subject := strings.TrimSpace(row[1])
		day, err := parseDay(strings.TrimSpace(row[2]))
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		personID, err := i.resolvePerson(ctx, person)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		records = append(records, database.BulkRecord{
			PersonID:  personID,
			SubjectID: subject,
			Day:       day,
		})
	}

	report, err := i.ledger.BulkImport(ctx, records)
	if err != nil {
		return database.BulkReport{}, err
	}
	report.Errors = append(parseErrors, report.Errors...)
	return report, nil
}

// resolvePerson accepts a known person id as-is, otherwise tries a
// unique name match.
func (i *Importer) resolvePerson(ctx context.Context, person string) (string, error) {
	if person == "" {
		return "", fmt.Errorf("empty person column")
	}

	identity, err := i.identities.Get(ctx, person)
	if err != nil {
		return "", fmt.Errorf("look up person %q: %w", person, err)
	}
	if identity != nil {
		return identity.PersonID, nil
	}

	identity, err = i.identities.FindByName(ctx, person)
	if err != nil {
		return "", fmt.Errorf("resolve name %q: %w", person, err)
	}
	if identity == nil {
		return "", fmt.Errorf("no unique match for %q", person)
	}
	return identity.PersonID, nil
}

func parseDay(s string) (time.Time, error) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "person" || first == "person_id" || first == "name" || first == "student"
}
