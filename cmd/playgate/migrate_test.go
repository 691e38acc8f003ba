// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgate/playgate/pkg/errutil"
)

func TestResolveDatabaseURL(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		configFile = ""
		t.Setenv("DATABASE_URL", "postgres://env/playgate")

		url, err := resolveDatabaseURL()
		require.NoError(t, err)
		assert.Equal(t, "postgres://env/playgate", url)
	})

	t.Run("config file wins over environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playgate.yaml")
		require.NoError(t, os.WriteFile(path,
			[]byte("database:\n  url: postgres://file/playgate\n"), 0o600))
		configFile = path
		t.Cleanup(func() { configFile = "" })
		t.Setenv("DATABASE_URL", "postgres://env/playgate")

		url, err := resolveDatabaseURL()
		require.NoError(t, err)
		assert.Equal(t, "postgres://file/playgate", url)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		configFile = ""
		t.Setenv("DATABASE_URL", "")

		_, err := resolveDatabaseURL()
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	})
}

func TestMigrateCommand_Help(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"migrate", "--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, action := range []string{"up", "down", "status", "force"} {
		assert.Contains(t, output, action)
	}
}
