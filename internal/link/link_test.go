// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package link_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgate/playgate/internal/link"
)

func TestParseType(t *testing.T) {
	for _, typ := range link.Types {
		parsed, err := link.ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}

	_, err := link.ParseType("ICQ")
	assert.Error(t, err)
}

func TestGenerateCode(t *testing.T) {
	code, err := link.GenerateCode()
	require.NoError(t, err)
	assert.Len(t, code, link.CodeLength)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestEntryBucket(t *testing.T) {
	entry := func(player string, typ link.Type, code string) link.Entry {
		return link.Entry{PlayerID: player, Type: typ, Code: code, IssuedAt: time.Now()}
	}

	t.Run("confirm consumes the entry", func(t *testing.T) {
		b := link.NewEntryBucket()
		b.Add(entry("alice", link.Telegram, "123456"))

		assert.True(t, b.Confirm("alice", link.Telegram, "123456"))
		assert.False(t, b.Confirm("alice", link.Telegram, "123456"), "entry is single use")
		assert.Empty(t, b.For("alice"))
	})

	t.Run("wrong code keeps the entry", func(t *testing.T) {
		b := link.NewEntryBucket()
		b.Add(entry("alice", link.Telegram, "123456"))

		assert.False(t, b.Confirm("alice", link.Telegram, "654321"))
		assert.Len(t, b.For("alice"), 1)
	})

	t.Run("re-adding a type replaces the code", func(t *testing.T) {
		b := link.NewEntryBucket()
		b.Add(entry("alice", link.Discord, "111111"))
		b.Add(entry("alice", link.Discord, "222222"))

		assert.Len(t, b.For("alice"), 1)
		assert.False(t, b.Confirm("alice", link.Discord, "111111"))
		assert.True(t, b.Confirm("alice", link.Discord, "222222"))
	})

	t.Run("entries are kept per type", func(t *testing.T) {
		b := link.NewEntryBucket()
		b.Add(entry("alice", link.Telegram, "123456"))
		b.Add(entry("alice", link.VK, "999999"))

		assert.Len(t, b.For("alice"), 2)
		assert.False(t, b.Confirm("alice", link.VK, "123456"))
		assert.True(t, b.Confirm("alice", link.VK, "999999"))
	})

	t.Run("drop is idempotent", func(t *testing.T) {
		b := link.NewEntryBucket()
		b.Add(entry("alice", link.Telegram, "123456"))
		b.Drop("alice")
		b.Drop("alice")
		assert.Empty(t, b.For("alice"))
	})
}
