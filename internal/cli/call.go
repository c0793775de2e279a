// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-gateway/internal/tools"
)

// =============================================================================
// CALL COMMAND
// =============================================================================

// HandleCall runs one tool call and prints its text. Ctrl-C interrupts the
// call; the partial result is still printed.
func HandleCall(ctx context.Context, args Args, w io.Writer) error {
	p := NewArgParser(args.Raw, "raw")
	if p.PositionalCount() == 0 {
		return usageErr("call", "missing tool name (see rigrun-gateway tools)")
	}
	inv, err := buildInvocation(p.Positional(0), p.PositionalFrom(1), p.Flags("param", "p"))
	if err != nil {
		return err
	}
	var timeout time.Duration
	if t := p.Flag("timeout"); t != "" {
		if timeout, err = time.ParseDuration(t); err != nil || timeout <= 0 {
			return usageErr("call", "invalid --timeout %q", t)
		}
	}

	app, err := setup(args, true, BuildOptions{NoWatch: true})
	if err != nil {
		return err
	}
	defer app.Close()

	start := time.Now()
	text, err := runInterruptible(ctx, app.Gateway, inv, timeout)
	if args.JSON {
		if err != nil {
			NewJSONErrorResponse("call", err).Write(w)
			return err
		}
		return NewJSONResponse("call", CallData{
			Tool:     inv.Name,
			Result:   text,
			Duration: time.Since(start).Round(time.Millisecond).String(),
		}).Write(w)
	}
	if err != nil {
		return err
	}
	displayResult(w, text, p.BoolFlag("raw"))
	return nil
}

// runInterruptible starts inv and waits for it. SIGINT or the timeout
// interrupt the call instead of abandoning it, so running processes are
// killed and the interrupted result is returned.
func runInterruptible(ctx context.Context, gw *tools.Gateway, inv tools.Invocation, timeout time.Duration) (string, error) {
	call, err := gw.Start(ctx, inv)
	if err != nil {
		return "", err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-call.Done():
	case <-sigs:
		call.Interrupt()
	case <-expired:
		call.Interrupt()
	case <-ctx.Done():
		call.Interrupt()
	}
	return call.Wait(context.Background())
}

// buildInvocation assembles a call from a tool name, an optional JSON
// object and key=value pairs. Pairs override keys from the JSON object.
func buildInvocation(name string, positional, pairs []string) (tools.Invocation, error) {
	tool, ok := tools.ParseName(name)
	if !ok {
		return tools.Invocation{}, usageErr("call", "unknown tool %q", name)
	}
	params := map[string]any{}

	if len(positional) > 0 {
		body := strings.TrimSpace(strings.Join(positional, " "))
		if body == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return tools.Invocation{}, fmt.Errorf("failed to read parameters from stdin: %w", err)
			}
			body = strings.TrimSpace(string(data))
		}
		if body != "" {
			decoded, err := decodeParams(body)
			if err != nil {
				return tools.Invocation{}, usageErr("call", "%v", err)
			}
			params = decoded
		}
	}

	for _, pair := range pairs {
		k, v, err := ParseKeyValue(pair)
		if err != nil {
			return tools.Invocation{}, usageErr("call", "%v", err)
		}
		params[k] = v
	}
	return tools.Invocation{Name: tool, Params: params}, nil
}

// decodeParams parses a JSON object, keeping numbers as json.Number.
func decodeParams(body string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("parameters must be a JSON object: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}
