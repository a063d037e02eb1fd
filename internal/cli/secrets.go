package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hugh/contact-keeper/pkg/crypto"
	"github.com/spf13/cobra"
)

func newKeygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an age identity for ENCRYPTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			enc, err := crypto.NewEncryptor(key)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# public key: %s\n", enc.PublicKey())
			fmt.Fprintln(out, key)
			return nil
		},
	}
}

func newSealCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Seal a secret read from stdin into an age: value",
		Long: `Reads one line from stdin and prints it sealed with the identity in
--key or ENCRYPTION_KEY. The output can be used as JWT_SECRET or stored in
the file or S3 object named by JWT_SECRET_FILE / JWT_SECRET_S3_URI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv("ENCRYPTION_KEY")
			}
			if key == "" {
				return errors.New("an encryption key is required (--key or ENCRYPTION_KEY)")
			}

			enc, err := crypto.NewEncryptor(key)
			if err != nil {
				return err
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			secret := strings.TrimRight(line, "\r\n")
			if secret == "" {
				if err != nil {
					return fmt.Errorf("reading secret: %w", err)
				}
				return errors.New("secret is empty")
			}

			sealed, err := enc.Seal(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "age identity (defaults to ENCRYPTION_KEY)")
	return cmd
}
