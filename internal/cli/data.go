package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/hugh/contact-keeper/internal/auth"
	"github.com/hugh/contact-keeper/internal/contacts"
	"github.com/hugh/contact-keeper/internal/transfer"
	"github.com/spf13/cobra"
)

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and contacts tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// PreRunE already migrated.
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

var demoContacts = []contacts.Fields{
	{Name: "Anna Schmidt", Email: "anna.schmidt@example.com", Timezone: strPtr("Europe/Berlin")},
	{Name: "Diana Prince", Email: "diana.prince@example.com", Timezone: strPtr("America/New_York")},
	{Name: "Kenji Sato", Email: "kenji.sato@example.com", Phone: strPtr("+81 3 1234 5678"), Timezone: strPtr("Asia/Tokyo")},
}

func strPtr(s string) *string { return &s }

func newSeedCommand(e *env) *cobra.Command {
	var email, password string
	var withContacts bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a development user and optional demo contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			authService := auth.NewService(e.db, nil, e.cfg.JWT.BcryptCost)

			user, err := authService.Register(ctx, auth.RegisterInput{Email: email, Password: password})
			switch {
			case errors.Is(err, auth.ErrUserExists):
				fmt.Fprintf(cmd.OutOrStdout(), "user already exists: %s\n", email)
				return nil
			case err != nil:
				return fmt.Errorf("creating user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Email, user.ID)

			if !withContacts {
				return nil
			}
			created, err := contacts.NewService(e.db).CreateBatch(ctx, user.ID, demoContacts)
			if err != nil {
				return fmt.Errorf("creating demo contacts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d contacts\n", len(created))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "admin@example.com", "user email")
	cmd.Flags().StringVar(&password, "password", "admin123!", "user password")
	cmd.Flags().BoolVar(&withContacts, "contacts", true, "also create demo contacts")
	return cmd
}

func newImportCommand(e *env) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CSV file into a user's contacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := e.userByEmail(cmd, email)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			importer := transfer.NewImporter(contacts.NewService(e.db), e.logger)
			n, err := importer.Import(cmd.Context(), ownerID, f)
			if err != nil {
				return fmt.Errorf("importing %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d contacts\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "owner email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newExportCommand(e *env) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export a user's contacts to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := e.userByEmail(cmd, email)
			if err != nil {
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}

			n, err := transfer.NewExporter(contacts.NewService(e.db)).Export(cmd.Context(), ownerID, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(args[0])
				return fmt.Errorf("exporting to %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d contacts to %s\n", n, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "owner email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
