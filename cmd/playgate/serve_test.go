// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/auth/authtest"
	"github.com/playgate/playgate/internal/config"
	"github.com/playgate/playgate/internal/crypto"
	"github.com/playgate/playgate/internal/platform/platformtest"
)

func TestBuildAuthCore(t *testing.T) {
	cfg := config.Default()
	providers := crypto.DefaultRegistry()
	require.NoError(t, cfg.Validate(providers))
	snapshot := func() *config.Config { return cfg }

	core, err := buildAuthCore(snapshot, authtest.NewRepo(), providers,
		platformtest.NewScheduler(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, core.Gate)
	require.NotNil(t, core.Tasks)
	require.NotNil(t, core.Bucket)
	require.NotNil(t, core.Bus)

	t.Run("adapter-routed connect reaches the pipeline", func(t *testing.T) {
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		require.NoError(t, core.Gate.OnConnect(context.Background(), player))

		playerID := auth.DeriveID(auth.ByName, "Alice", "u-1")
		assert.True(t, core.Bucket.IsAuthenticating(playerID))
		assert.Contains(t, player.Messages(), cfg.Messages.RegisterPrompt)
	})
}

func TestServeCmd_AutoMigrateFlag(t *testing.T) {
	cmd := NewServeCmd()

	flag := cmd.Flags().Lookup("auto-migrate")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
