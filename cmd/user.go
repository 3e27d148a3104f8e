package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/geoportal/internal/store"
	"github.com/spf13/cobra"
)

var (
	userPassword      string
	userPasswordStdin bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage portal accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a portal account",
	Example: `  geoportal user add ana --password 's3cret-pass'
  echo 's3cret-pass' | geoportal user add ana --password-stdin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw := userPassword
		if userPasswordStdin {
			line, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			pw = line
		}
		if pw == "" {
			return errors.New("a password is required (use --password or --password-stdin)")
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.CreateUser(ctx, args[0], pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created user '%s'\n", strings.TrimSpace(args[0]))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "password for the new account")
	userAddCmd.Flags().BoolVar(&userPasswordStdin, "password-stdin", false, "read the password from stdin")
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
