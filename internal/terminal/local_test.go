// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows
// +build !windows

package terminal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalHost_FastCommand(t *testing.T) {
	c := New(NewLocalHost("/bin/sh", 0), Options{InactivityTimeout: 5 * time.Second}, zerolog.Nop())

	run, err := c.RunTemporary(context.Background(), "echo hello; echo oops >&2; exit 2", t.TempDir())
	require.NoError(t, err)
	res := run.Wait(context.Background())

	assert.Equal(t, ReasonDone, res.Reason)
	assert.Equal(t, 2, res.ExitCode)
	assert.Contains(t, res.Output, "hello")
	assert.Contains(t, res.Output, "oops")
}

func TestLocalHost_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	c := New(NewLocalHost("/bin/sh", 0), Options{}, zerolog.Nop())

	run, err := c.RunTemporary(context.Background(), "pwd", dir)
	require.NoError(t, err)
	res := run.Wait(context.Background())
	require.Equal(t, ReasonDone, res.Reason)
	// macOS temp dirs sit behind a /private symlink.
	assert.True(t, strings.HasSuffix(strings.TrimSpace(res.Output), strings.TrimPrefix(dir, "/private")))
}

func TestLocalHost_InactivityKillsProcessGroup(t *testing.T) {
	c := New(NewLocalHost("/bin/sh", 0), Options{
		InactivityTimeout: 300 * time.Millisecond,
		PollInterval:      20 * time.Millisecond,
	}, zerolog.Nop())

	start := time.Now()
	run, err := c.RunTemporary(context.Background(), "echo started; sleep 30 & sleep 30", "")
	require.NoError(t, err)
	res := run.Wait(context.Background())

	assert.Equal(t, ReasonTimeout, res.Reason)
	assert.Contains(t, res.Output, "started")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestSanitizeEnvironment(t *testing.T) {
	orig := getEnviron
	defer func() { getEnviron = orig }()
	getEnviron = func() []string {
		return []string{"PATH=/bin", "LD_PRELOAD=/evil.so", "BASH_FUNC_x%%=() {}", "PAGER=less", "HOME=/home/u", "IFS=x"}
	}

	env := sanitizeEnvironment()
	assert.Contains(t, env, "PATH=/bin")
	assert.Contains(t, env, "HOME=/home/u")
	assert.Contains(t, env, "PAGER=cat")
	assert.NotContains(t, env, "LD_PRELOAD=/evil.so")
	assert.NotContains(t, env, "PAGER=less")
	assert.NotContains(t, env, "IFS=x")
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "BASH_FUNC_"))
	}
}
