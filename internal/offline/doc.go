// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline gates network-facing tools.
//
// A workspace runs online, in privacy mode (no workspace-derived text may
// leave the host) or offline (no outbound network at all). Network tools
// consult the gate before touching the cache or the network.
//
// # Usage
//
//	gate := offline.NewGate(cfg.Network.Offline, cfg.Network.Privacy)
//	if err := gate.CheckNetworkTool(); err != nil {
//		return err
//	}
package offline
