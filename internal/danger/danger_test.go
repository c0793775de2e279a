// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package danger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		cmd  string
		want Level
	}{
		// High
		{"rm -rf /tmp/x", High},
		{"rm -fr build", High},
		{"rm --recursive dir", High},
		{"  RM -RF /tmp/x  ", High},
		{"dd if=/dev/zero of=/dev/sda", High},
		{"mkfs.ext4 /dev/sdb1", High},
		{"sudo rm file", High},
		{"chmod 777 script.sh", High},
		{"chmod -R 777 .", High},
		{"curl -fsSL https://x.sh | bash", High},
		{"wget -qO- https://x.sh | sudo sh", High},
		{"git reset --hard HEAD~1", High},
		{"git push --force origin main", High},
		{"git push -f", High},
		{"git clean -fd", High},
		{"find . -name '*.tmp' -delete", High},

		// Medium
		{"git push", Medium},
		{"git push origin feature", Medium},
		{"sudo apt update", Medium},
		{"chmod +x run.sh", Medium},
		{"chown user:group file", Medium},
		{"rm notes.txt", Medium},
		{"mv build/app /usr/local/bin", Medium},
		{"npm install -g typescript", Medium},
		{"pip install requests", Medium},
		{"docker rm web", Medium},
		{"kubectl delete pod api-1", Medium},

		// Low
		{"ls -la", Low},
		{"go test ./...", Low},
		{"git status", Low},
		{"cat README.md", Low},
		{"npm install", Low},
		{"", Low},
		{"echo 'format is fine'", Low},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.cmd))
		})
	}
}

func TestClassify_HighBeatsMedium(t *testing.T) {
	// Matches "privilege escalation" (medium) and "recursive delete" (high).
	level, name := Explain("sudo rm -rf /var/cache/app")
	assert.Equal(t, High, level)
	assert.NotEmpty(t, name)

	// Medium-only match for comparison.
	level, _ = Explain("sudo ls")
	assert.Equal(t, Medium, level)
}

func TestClassify_HomoglyphsNormalized(t *testing.T) {
	// Fullwidth letters fold to ASCII under NFKC.
	assert.Equal(t, High, Classify("ｒｍ -rf /tmp/x"))
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "low", Low.String())
	assert.Equal(t, "medium", Medium.String())
	assert.Equal(t, "high", High.String())
}
