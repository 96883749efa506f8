package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fitfuel/identity-service/internal/auth"
)

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	var (
		algorithm string
		cost      int
	)

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `Read a single password line from stdin and print its hash in the
format stored by the service. Useful for seeding accounts by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no password on stdin")
			}
			password := strings.TrimRight(line, "\r\n")

			hasher, err := auth.NewHasher(algorithm, cost, auth.DefaultArgon2Params)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", auth.AlgorithmBcrypt, "hash algorithm: bcrypt or argon2id")
	cmd.Flags().IntVar(&cost, "cost", 10, "bcrypt cost")

	return cmd
}
