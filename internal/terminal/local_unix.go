// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows
// +build !windows

package terminal

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func defaultShell() (string, string) {
	if path, err := exec.LookPath("bash"); err == nil {
		return path, "-c"
	}
	return "/bin/sh", "-c"
}

// setProcessGroup puts the command in a new process group (allows
// terminating the shell and its children together).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
