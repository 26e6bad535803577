// Package export writes the attendance ledger to CSV reports. Exports
// are full rewrites: the same ledger always produces byte-identical
// files, so re-running an export is safe at any time.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-attend/internal/database"
)

const timestampFormat = "2006-01-02 15:04:05"

// Exporter renders ledger contents into the configured CSV files.
type Exporter struct {
	ledger     database.Ledger
	masterPath string
	dailyPath  string
}

// NewExporter creates an exporter writing to the given paths.
func NewExporter(ledger database.Ledger, masterPath, dailyPath string) *Exporter {
	return &Exporter{ledger: ledger, masterPath: masterPath, dailyPath: dailyPath}
}

// ExportAll rewrites both reports from the current ledger state.
func (e *Exporter) ExportAll(ctx context.Context) error {
	if err := e.ExportMaster(ctx); err != nil {
		return err
	}
	return e.ExportDaily(ctx)
}

// ExportMaster writes every attendance fact, newest first.
func (e *Exporter) ExportMaster(ctx context.Context) error {
	facts, err := e.ledger.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load attendance for export: %w", err)
	}

	rows := make([][]string, 0, len(facts)+1)
	rows = append(rows, []string{"person_id", "name", "subject_id", "subject", "timestamp", "day"})
	for _, f := range facts {
		rows = append(rows, []string{
			f.PersonID,
			f.PersonName,
			f.SubjectID,
			f.SubjectName,
			f.Timestamp.UTC().Format(timestampFormat),
			f.Day.Format("2006-01-02"),
		})
	}
	return writeCSV(e.masterPath, rows)
}

// ExportDaily writes the first mark per (person, subject, day).
func (e *Exporter) ExportDaily(ctx context.Context) error {
	daily, err := e.ledger.DailySummary(ctx)
	if err != nil {
		return fmt.Errorf("load daily summary for export: %w", err)
	}

	rows := make([][]string, 0, len(daily)+1)
	rows = append(rows, []string{"day", "person_id", "name", "subject_id", "subject", "first_mark"})
	for _, d := range daily {
		rows = append(rows, []string{
			d.Day.Format("2006-01-02"),
			d.PersonID,
			d.PersonName,
			d.SubjectID,
			d.SubjectName,
			d.FirstMark.UTC().Format(timestampFormat),
		})
	}
	return writeCSV(e.dailyPath, rows)
}

// writeCSV writes rows to a temp file and renames it over the target so
// readers never observe a half-written report.
func writeCSV(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write export rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp export file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace export file: %w", err)
	}
	return nil
}
