// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgate/playgate/internal/crypto"
)

func TestHashCommand(t *testing.T) {
	t.Run("default provider", func(t *testing.T) {
		cmd := NewHashCmd()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetArgs([]string{"hunter22"})

		require.NoError(t, cmd.Execute())

		output := buf.String()
		assert.Contains(t, output, "provider: ARGON2ID")
		assert.Contains(t, output, "hash:")
	})

	t.Run("produced hash verifies", func(t *testing.T) {
		provider, err := crypto.DefaultRegistry().Resolve("BCRYPT")
		require.NoError(t, err)

		hashed, err := provider.Hash("hunter22")
		require.NoError(t, err)
		assert.True(t, provider.Matches("hunter22", hashed))
	})

	t.Run("unknown provider fails", func(t *testing.T) {
		cmd := NewHashCmd()
		buf := new(bytes.Buffer)
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		cmd.SetArgs([]string{"--provider", "ROT13", "hunter22"})

		require.Error(t, cmd.Execute())
		assert.Contains(t, buf.String(), "Known providers")
	})

	t.Run("requires exactly one argument", func(t *testing.T) {
		cmd := NewHashCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{})

		require.Error(t, cmd.Execute())
	})
}
