package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage student identities",
}

var studentsAddCmd = &cobra.Command{
	Use:   "add <person-id> <name>",
	Short: "Register a student or update their name",
	Args:  cobra.ExactArgs(2),
	RunE:  runStudentsAdd,
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered students",
	RunE:  runStudentsList,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsAddCmd)
	studentsCmd.AddCommand(studentsListCmd)

	studentsAddCmd.Flags().String("password", "", "Initial login password (defaults to "+database.DefaultStudentPassword+")")
}

func runStudentsAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	password := mustGetString(cmd, "password")
	if password == "" {
		password = database.DefaultStudentPassword
	}

	personID, name := args[0], args[1]
	if err := store.UpsertStudent(cmd.Context(), personID, name, database.HashPassword(password)); err != nil {
		return err
	}
	fmt.Printf("Registered student %s (%s)\n", name, personID)
	return nil
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	students, err := store.ListStudents(cmd.Context())
	if err != nil {
		return err
	}
	if len(students) == 0 {
		fmt.Println("No students registered")
		return nil
	}
	for _, s := range students {
		fmt.Printf("%-12s %s\n", s.PersonID, s.Name)
	}
	return nil
}
