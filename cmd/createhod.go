package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/edupanel/apiserver/config"
	"github.com/edupanel/apiserver/internal/db"
	"github.com/edupanel/apiserver/internal/services"
	"github.com/edupanel/apiserver/internal/store"
	"github.com/edupanel/apiserver/types"
	"github.com/spf13/cobra"
)

// noopNotifier suppresses approval emails for accounts provisioned
// from the command line.
type noopNotifier struct{}

func (noopNotifier) ConfirmEmail(ctx context.Context, email string, role types.Role, code string) error {
	return nil
}

func (noopNotifier) ApprovalResult(ctx context.Context, email, name string, approved bool) error {
	return nil
}

var createHODFlags struct {
	email         string
	password      string
	fullName      string
	department    string
	employeeID    string
	designation   string
	qualification string
}

// createHODCmd is the administrative path for hod accounts.
// Self-registration as hod is rejected by the API; this command is the
// only way one comes into existence.
var createHODCmd = &cobra.Command{
	Use:   "create-hod",
	Short: "Provision a department head account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		approvals := services.NewApprovalService(
			store.NewAccountRepository(dbConn),
			store.NewExtensionRepository(dbConn),
			store.NewDraftRepository(dbConn),
			noopNotifier{},
		)

		account, err := approvals.ProvisionHOD(cmd.Context(), createHODFlags.email, createHODFlags.password, types.FacultyFields{
			FullName:      createHODFlags.fullName,
			Department:    createHODFlags.department,
			EmployeeID:    createHODFlags.employeeID,
			Designation:   createHODFlags.designation,
			Qualification: createHODFlags.qualification,
		})
		if err != nil {
			return err
		}

		log.Printf("created hod account %s (%s)", account.ID, account.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createHODCmd)

	createHODCmd.Flags().StringVar(&createHODFlags.email, "email", "", "account email")
	createHODCmd.Flags().StringVar(&createHODFlags.password, "password", "", "initial password")
	createHODCmd.Flags().StringVar(&createHODFlags.fullName, "name", "", "full name")
	createHODCmd.Flags().StringVar(&createHODFlags.department, "department", "", "department")
	createHODCmd.Flags().StringVar(&createHODFlags.employeeID, "employee-id", "", "employee ID")
	createHODCmd.Flags().StringVar(&createHODFlags.designation, "designation", "Head of Department", "designation")
	createHODCmd.Flags().StringVar(&createHODFlags.qualification, "qualification", "", "qualification")

	for _, required := range []string{"email", "password", "name", "department", "employee-id", "qualification"} {
		if err := createHODCmd.MarkFlagRequired(required); err != nil {
			fmt.Fprintf(os.Stderr, "flag setup: %v\n", err)
		}
	}
}
