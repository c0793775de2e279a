// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeranaias/rigrun-gateway/internal/netcache"
	"github.com/jeranaias/rigrun-gateway/internal/terminal"
	"github.com/jeranaias/rigrun-gateway/internal/tools"
)

// ============================================================================
// RESPONSE TYPES
// ============================================================================

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// InvokeResponse is the body of a successful tool call.
type InvokeResponse struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

// ToolInfo describes one tool for GET /v1/tools.
type ToolInfo struct {
	Name        tools.Name     `json:"name"`
	Description string         `json:"description"`
	Risk        string         `json:"risk"`
	Parameters  map[string]any `json:"parameters"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	UptimeSecs int64             `json:"uptime_secs"`
	Roots      []string          `json:"roots"`
	Checks     map[string]string `json:"checks,omitempty"`
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	Tools      tools.Stats     `json:"tools"`
	Terminals  int             `json:"terminals"`
	Cache      *netcache.Stats `json:"cache,omitempty"`
	UptimeSecs int64           `json:"uptime_secs"`
}

// DiagnosticsRequest is the body of PUT /v1/diagnostics.
type DiagnosticsRequest struct {
	URI         string             `json:"uri"`
	Diagnostics []tools.Diagnostic `json:"diagnostics"`
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:     "ok",
		Version:    Version,
		UptimeSecs: int64(time.Since(s.started).Seconds()),
		Roots:      s.deps.Roots,
	}
	if len(s.deps.Checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		health.Checks = make(map[string]string, len(s.deps.Checks))
		for _, c := range s.deps.Checks {
			if err := c.Check(ctx); err != nil {
				health.Checks[c.Name] = "unavailable"
				health.Status = "degraded"
				continue
			}
			health.Checks[c.Name] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	defs := tools.Definitions()
	out := make([]ToolInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, ToolInfo{
			Name:        d.Name,
			Description: d.Description,
			Risk:        d.Risk.String(),
			Parameters:  d.Schema.JSONSchema(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleInvoke runs one tool. The request context is the call context, so
// a client that disconnects interrupts the call.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	params, err := decodeParams(r.Body)
	if err != nil {
		s.writeDecodeError(w, err)
		return
	}

	text, err := s.deps.Gateway.Run(r.Context(), name, params)
	if err != nil {
		status, kind := classify(err)
		if status >= http.StatusInternalServerError {
			s.log.Error().Err(err).Str("tool", name).Str("request_id", GetRequestID(r.Context())).Msg("tool call failed")
		}
		writeError(w, status, err.Error(), kind)
		return
	}
	writeJSON(w, http.StatusOK, InvokeResponse{Tool: name, Result: text})
}

func (s *Server) handleTerminals(w http.ResponseWriter, r *http.Request) {
	if s.deps.Terminals == nil {
		writeJSON(w, http.StatusOK, []terminal.Status{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Terminals.Terminals())
}

func (s *Server) handlePollTerminal(w http.ResponseWriter, r *http.Request) {
	if s.deps.Terminals == nil {
		writeError(w, http.StatusNotFound, terminal.ErrNoSuchTerminal.Error(), "execution")
		return
	}
	status, err := s.deps.Terminals.Poll(chi.URLParam(r, "id"))
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, terminal.ErrNoSuchTerminal) {
			code = http.StatusNotFound
		}
		writeError(w, code, err.Error(), "execution")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleKillTerminal goes through the gateway so the kill is validated and
// recorded like any other call.
func (s *Server) handleKillTerminal(w http.ResponseWriter, r *http.Request) {
	name := string(tools.KillPersistentTerminal)
	text, err := s.deps.Gateway.Run(r.Context(), name, map[string]any{
		"persistent_terminal_id": chi.URLParam(r, "id"),
	})
	if err != nil {
		status, kind := classify(err)
		if errors.Is(err, terminal.ErrNoSuchTerminal) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error(), kind)
		return
	}
	writeJSON(w, http.StatusOK, InvokeResponse{Tool: name, Result: text})
}

func (s *Server) handlePutDiagnostics(w http.ResponseWriter, r *http.Request) {
	if s.deps.Diagnostics == nil {
		writeError(w, http.StatusNotImplemented, "diagnostics are not accepted by this server", "execution")
		return
	}
	var req DiagnosticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeDecodeError(w, err)
		return
	}
	// Resolving through the validator keeps published paths inside the
	// workspace and canonical.
	params, err := s.deps.Gateway.Validator().Validate(tools.ReadLintErrors, map[string]any{"uri": req.URI})
	if err != nil {
		status, kind := classify(err)
		writeError(w, status, err.Error(), kind)
		return
	}
	path := params.(tools.LintParams).Handle.Path
	s.deps.Diagnostics.Set(path, req.Diagnostics)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Tools:      s.deps.Gateway.Stats(),
		UptimeSecs: int64(time.Since(s.started).Seconds()),
	}
	if s.deps.Terminals != nil {
		resp.Terminals = len(s.deps.Terminals.Terminals())
	}
	if s.deps.Cache != nil {
		if stats, ok := s.deps.Cache.CacheStats(); ok {
			resp.Cache = &stats
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Gateway.History())
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeParams reads a JSON object. An empty body is an empty object.
// Numbers stay json.Number so integer parameters are not rounded.
func decodeParams(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

func (s *Server) writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body is too large", "validation")
		return
	}
	writeError(w, http.StatusBadRequest, "request body must be a JSON object", "validation")
}

// classify maps a gateway error to an HTTP status and error kind.
func classify(err error) (int, string) {
	kind := tools.ErrorKind(err)
	switch kind {
	case "validation":
		if errors.Is(err, tools.ErrUnknownTool) {
			return http.StatusNotFound, kind
		}
		return http.StatusBadRequest, kind
	case "busy":
		return http.StatusConflict, kind
	case "execution":
		return http.StatusUnprocessableEntity, kind
	}
	return http.StatusInternalServerError, kind
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}
