package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "Manage the subject registry",
}

var subjectsAddCmd = &cobra.Command{
	Use:   "add <subject-id> <name>",
	Short: "Create a subject or rename an existing one",
	Args:  cobra.ExactArgs(2),
	RunE:  runSubjectsAdd,
}

var subjectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subjects",
	RunE:  runSubjectsList,
}

func init() {
	rootCmd.AddCommand(subjectsCmd)
	subjectsCmd.AddCommand(subjectsAddCmd)
	subjectsCmd.AddCommand(subjectsListCmd)
}

func runSubjectsAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	subjectID, name := args[0], args[1]
	if err := store.Upsert(cmd.Context(), subjectID, name); err != nil {
		return err
	}
	fmt.Printf("Saved subject %s (%s)\n", name, subjectID)
	return nil
}

func runSubjectsList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	subjects, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(subjects) == 0 {
		fmt.Println("No subjects defined")
		return nil
	}
	for _, s := range subjects {
		fmt.Printf("%-12s %s\n", s.SubjectID, s.Name)
	}
	return nil
}
