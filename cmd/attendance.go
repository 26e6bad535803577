package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/export"
	"github.com/kozaktomas/face-attend/internal/importer"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect and correct the attendance ledger",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent attendance facts",
	RunE:  runAttendanceList,
}

var attendanceAddCmd = &cobra.Command{
	Use:   "add <person-id> <subject-id> [day]",
	Short: "Record attendance manually",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runAttendanceAdd,
}

var attendanceAbsentCmd = &cobra.Command{
	Use:   "absent <fact-id>",
	Short: "Remove a wrongly recorded attendance fact",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceAbsent,
}

var attendanceImportCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Bulk import historical attendance from CSV",
	Long: `Import reads rows of person, subject_id, day. The person column may be
a person id or a display name; names are matched without diacritics.
Duplicates are counted and skipped, broken rows are reported, and the
rest of the batch always goes through.`,
	Args: cobra.ExactArgs(1),
	RunE: runAttendanceImport,
}

var attendanceStatsCmd = &cobra.Command{
	Use:   "stats [person-id]",
	Short: "Show attendance statistics per student and subject",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAttendanceStats,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceListCmd)
	attendanceCmd.AddCommand(attendanceAddCmd)
	attendanceCmd.AddCommand(attendanceAbsentCmd)
	attendanceCmd.AddCommand(attendanceImportCmd)
	attendanceCmd.AddCommand(attendanceStatsCmd)

	attendanceListCmd.Flags().Int("limit", 25, "Maximum number of facts to show")
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	facts, err := store.ListRecent(cmd.Context(), mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}
	if len(facts) == 0 {
		fmt.Println("No attendance recorded")
		return nil
	}
	for _, f := range facts {
		fmt.Printf("%-6d %s  %-12s %-20s %s\n",
			f.ID, f.Day.Format("2006-01-02"), f.PersonID, f.PersonName, f.SubjectName)
	}
	return nil
}

func runAttendanceAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	day := time.Now()
	if len(args) == 3 {
		parsed, err := time.Parse("2006-01-02", args[2])
		if err != nil {
			return fmt.Errorf("unparseable day %q, expected YYYY-MM-DD", args[2])
		}
		day = parsed
	}

	result, err := store.AddManual(cmd.Context(), args[0], args[1], day)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case database.OutcomeCreated:
		fmt.Printf("Recorded attendance (fact %d)\n", result.Fact.ID)
		refreshExports(cmd, cfg, store)
	default:
		fmt.Printf("Rejected: already marked at %s (fact %d)\n",
			result.Fact.Timestamp.UTC().Format("2006-01-02 15:04:05"), result.Fact.ID)
	}
	return nil
}

func runAttendanceAbsent(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	factID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid fact id %q", args[0])
	}

	if err := store.Remove(cmd.Context(), factID); err != nil {
		return err
	}
	fmt.Printf("Removed fact %d\n", factID)
	refreshExports(cmd, cfg, store)
	return nil
}

func runAttendanceImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := importer.New(store, store).Import(cmd.Context(), f)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d records, %d duplicates skipped\n", report.Success, report.Duplicates)
	for _, msg := range report.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
	if report.Success > 0 {
		refreshExports(cmd, cfg, store)
	}
	return nil
}

func runAttendanceStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	personID := ""
	if len(args) == 1 {
		personID = args[0]
	}

	stats, err := store.Stats(cmd.Context(), personID)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Println("No statistics available")
		return nil
	}
	for _, s := range stats {
		fmt.Printf("%-12s %-20s %-20s %d/%d days\n",
			s.PersonID, s.PersonName, s.SubjectName, s.PresentDays, s.TotalDays)
	}
	return nil
}

// refreshExports rewrites the CSV reports after a ledger change.
func refreshExports(cmd *cobra.Command, cfg *config.Config, store database.Store) {
	exporter := export.NewExporter(store, cfg.Export.MasterPath, cfg.Export.DailyPath)
	if err := exporter.ExportAll(cmd.Context()); err != nil {
		fmt.Printf("Warning: failed to refresh exports: %v\n", err)
	}
}
