// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package terminal

import (
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/danger"
)

// LogNotifier writes danger notices to a logger.
type LogNotifier struct {
	Log zerolog.Logger
}

// Notify logs high-risk commands at error level, everything else at warn.
func (n LogNotifier) Notify(notice Notice) {
	ev := n.Log.Warn()
	if notice.Level == danger.High {
		ev = n.Log.Error()
	}
	ev.Str("danger", notice.Level.String()).
		Str("rule", notice.Rule).
		Str("command", notice.Command).
		Msg(notice.Message)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }
