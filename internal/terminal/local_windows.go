// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows
// +build windows

package terminal

import (
	"os/exec"
	"strconv"
)

func defaultShell() (string, string) {
	if path, err := exec.LookPath("bash"); err == nil {
		return path, "-c"
	}
	return "cmd", "/C"
}

func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup uses taskkill /T so children of the shell go too.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
	if err := kill.Run(); err != nil {
		_ = cmd.Process.Kill()
	}
}
