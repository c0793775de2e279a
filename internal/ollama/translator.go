// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/terminal"
)

// ErrNoCommand is returned when the model's answer holds no command.
var ErrNoCommand = errors.New("model returned no command")

const translatePrompt = `You translate a request written in plain language into exactly one shell command.
The command runs with %s on %s in the directory %s.
Answer with a JSON object and nothing else:
{"command": "<the shell command>", "explanation": "<one sentence saying what it does>"}
Never chain unrelated commands. Prefer read-only commands when the request is ambiguous.`

// Translator turns natural-language requests into shell commands using a
// local model. It implements terminal.Translator.
type Translator struct {
	client *Client
	model  string
	shell  string
	log    zerolog.Logger
}

// NewTranslator creates a Translator. An empty model uses the client default.
func NewTranslator(client *Client, model, shell string, log zerolog.Logger) *Translator {
	if shell == "" {
		shell = "sh"
		if runtime.GOOS == "windows" {
			shell = "cmd"
		}
	}
	return &Translator{
		client: client,
		model:  model,
		shell:  shell,
		log:    log.With().Str("component", "translator").Logger(),
	}
}

// Translate implements terminal.Translator.
func (t *Translator) Translate(ctx context.Context, request, cwd string) (terminal.Translation, error) {
	start := time.Now()
	resp, err := t.client.Chat(ctx, ChatRequest{
		Model: t.model,
		Messages: []Message{
			NewSystemMessage(fmt.Sprintf(translatePrompt, t.shell, runtime.GOOS, cwd)),
			NewUserMessage(request),
		},
		Format:  "json",
		Options: &Options{Temperature: 0, NumPredict: 512},
	})
	if err != nil {
		return terminal.Translation{}, err
	}

	tr, err := parseTranslation(resp.Message.Content)
	if err != nil {
		return terminal.Translation{}, err
	}
	t.log.Debug().
		Str("model", resp.Model).
		Dur("duration", time.Since(start)).
		Dur("generation", resp.TotalTime()).
		Str("command", tr.Command).
		Msg("translated request")
	return tr, nil
}

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)```")

// parseTranslation reads the model answer. JSON is expected; a fenced code
// block or a bare single line is accepted as the command.
func parseTranslation(content string) (terminal.Translation, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return terminal.Translation{}, ErrNoCommand
	}

	candidate := content
	if m := fencedBlock.FindStringSubmatch(content); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	var answer struct {
		Command     string `json:"command"`
		Explanation string `json:"explanation"`
	}
	if strings.HasPrefix(candidate, "{") {
		if err := json.Unmarshal([]byte(candidate), &answer); err != nil {
			return terminal.Translation{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "unreadable translation", Cause: err}
		}
	} else {
		answer.Command = candidate
	}

	answer.Command = strings.TrimSpace(answer.Command)
	if answer.Command == "" {
		return terminal.Translation{}, ErrNoCommand
	}
	return terminal.Translation{
		Command:     answer.Command,
		Explanation: strings.TrimSpace(answer.Explanation),
	}, nil
}
