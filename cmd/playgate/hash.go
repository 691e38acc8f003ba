// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/playgate/playgate/internal/crypto"
)

// NewHashCmd creates the hash subcommand, an operator utility for
// producing password hashes (seeding accounts, resetting passwords by
// hand).
func NewHashCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "hash <password>",
		Short: "Hash a password with a registered crypto provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := crypto.DefaultRegistry()

			provider, err := registry.Resolve(providerID)
			if err != nil {
				cmd.Printf("Known providers: %s\n", strings.Join(registry.IDs(), ", "))
				return err
			}

			hashed, err := provider.Hash(args[0])
			if err != nil {
				return err
			}

			cmd.Printf("provider: %s\n", hashed.ProviderID)
			cmd.Printf("hash:     %s\n", hashed.Hash)
			if hashed.Salt != "" {
				cmd.Printf("salt:     %s\n", hashed.Salt)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "ARGON2ID", "crypto provider ID")

	return cmd
}
