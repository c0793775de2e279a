// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MODE MANAGEMENT TESTS
// =============================================================================

func TestGate_Modes(t *testing.T) {
	g := &Gate{}
	assert.Equal(t, ModeOnline, g.Mode())
	assert.NoError(t, g.CheckNetworkTool())
	assert.Empty(t, g.StatusBadge())

	g.SetPrivacy(true)
	assert.Equal(t, ModePrivacy, g.Mode())
	assert.ErrorIs(t, g.CheckNetworkTool(), ErrPrivacyBlocked)
	assert.Equal(t, "[PRIVACY]", g.StatusBadge())

	// Offline wins over privacy.
	g.SetOffline(true)
	assert.Equal(t, ModeOffline, g.Mode())
	assert.ErrorIs(t, g.CheckNetworkTool(), ErrNetworkBlocked)
	assert.Equal(t, "offline", g.Mode().String())
}

func TestSetOfflineMode(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	SetOfflineMode(true)
	assert.True(t, IsOfflineMode())

	SetOfflineMode(false)
	assert.False(t, IsOfflineMode())
}

func TestGate_ThreadSafe(t *testing.T) {
	g := NewGate(false, false)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g.SetOffline(j%2 == 0)
				_ = g.CheckNetworkTool()
			}
		}()
	}
	wg.Wait()
}

// =============================================================================
// URL VALIDATION TESTS
// =============================================================================

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"127.0.0.1", true},
		{"127.0.0.1:8080", true},
		{"127.5.5.5", true},
		{"::1", true},
		{"[::1]", true},
		{"[::1]:8080", true},
		{"0:0:0:0:0:0:0:1", true},
		{"example.com", false},
		{"10.0.0.1", false},
		{"localhost.evil.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocalhost(tt.host))
		})
	}
}

func TestGate_ValidateURL(t *testing.T) {
	g := NewGate(false, false)

	require.NoError(t, g.ValidateURL("https://example.com/page"))
	assert.ErrorIs(t, g.ValidateURL("file:///etc/passwd"), ErrInvalidURLScheme)
	assert.ErrorIs(t, g.ValidateURL("javascript:alert(1)"), ErrInvalidURLScheme)

	g.SetOffline(true)
	assert.ErrorIs(t, g.ValidateURL("https://example.com"), ErrNonLocalhost)
	assert.NoError(t, g.ValidateURL("http://127.0.0.1:8080/x"))
	// Scheme checks still apply offline.
	assert.ErrorIs(t, g.ValidateURL("ftp://localhost/x"), ErrInvalidURLScheme)
}
