// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/search"
	"github.com/jeranaias/rigrun-gateway/internal/terminal"
	"github.com/jeranaias/rigrun-gateway/internal/web"
	"github.com/jeranaias/rigrun-gateway/internal/workspace"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// WebService is the network layer behind web_search and browse_url.
type WebService interface {
	Search(ctx context.Context, query string, k int, refresh bool) ([]web.SearchResult, error)
	Browse(ctx context.Context, rawURL string, refresh bool) (web.Page, error)
}

// IndexUpdater is told about files the gateway changed so an index that
// is not watching the disk stays current.
type IndexUpdater interface {
	UpdateFile(path string) error
	RemoveFile(path string) error
}

// Deps are the gateway's collaborators. Resolver is required; a tool
// whose collaborator is nil fails with an ExecutionError.
type Deps struct {
	Resolver    *workspace.Resolver
	Files       FileStore
	Search      *search.Selector
	Terminals   *terminal.Coordinator
	Web         WebService
	Diagnostics DiagnosticsStore
	Index       IndexUpdater
	Audit       Auditor
}

// Auditor receives every history record as it is written. A failing
// auditor is logged and never fails the call.
type Auditor interface {
	RecordCall(r Record) error
}

// Options tune paging and history.
type Options struct {
	// FileCharsPerPage is the read_file page size in characters.
	FileCharsPerPage int
	// EntriesPerPage is the page size of listings and search results.
	EntriesPerPage int
	// TreeMaxDepth and TreeMaxEntries bound get_dir_tree.
	TreeMaxDepth   int
	TreeMaxEntries int
	// Ignore holds base-name globs left out of get_dir_tree.
	Ignore []string
	// HistorySize bounds the execution history.
	HistorySize int
}

// Defaults.
const (
	DefaultFileCharsPerPage = 500_000
	DefaultEntriesPerPage   = 500
	DefaultTreeMaxDepth     = 5
	DefaultTreeMaxEntries   = 1000
	DefaultHistorySize      = 1000
)

// DefaultOptions returns the default paging and history settings.
func DefaultOptions() Options {
	return Options{
		FileCharsPerPage: DefaultFileCharsPerPage,
		EntriesPerPage:   DefaultEntriesPerPage,
		TreeMaxDepth:     DefaultTreeMaxDepth,
		TreeMaxEntries:   DefaultTreeMaxEntries,
		HistorySize:      DefaultHistorySize,
	}
}

func (o *Options) setDefaults() {
	d := DefaultOptions()
	if o.FileCharsPerPage <= 0 {
		o.FileCharsPerPage = d.FileCharsPerPage
	}
	if o.EntriesPerPage <= 0 {
		o.EntriesPerPage = d.EntriesPerPage
	}
	if o.TreeMaxDepth <= 0 {
		o.TreeMaxDepth = d.TreeMaxDepth
	}
	if o.TreeMaxEntries <= 0 {
		o.TreeMaxEntries = d.TreeMaxEntries
	}
	if o.HistorySize <= 0 {
		o.HistorySize = d.HistorySize
	}
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway validates, executes and serializes tool calls. Calls run
// concurrently; the only serialization is one writer per file.
type Gateway struct {
	deps      Deps
	validator *Validator
	writers   *writers
	opts      Options
	log       zerolog.Logger

	mu      sync.Mutex
	history []Record
}

// New builds a Gateway.
func New(deps Deps, opts Options, log zerolog.Logger) (*Gateway, error) {
	if deps.Resolver == nil {
		return nil, errors.New("tools: a workspace resolver is required")
	}
	opts.setDefaults()
	return &Gateway{
		deps:      deps,
		validator: NewValidator(deps.Resolver),
		writers:   newWriters(),
		opts:      opts,
		log:       log.With().Str("component", "tools").Logger(),
	}, nil
}

// Validator returns the gateway's parameter validator.
func (g *Gateway) Validator() *Validator { return g.validator }

// Invocation is one tool call as produced by the model.
type Invocation struct {
	Name   Name           `json:"name"`
	Params map[string]any `json:"params"`
}

// Start validates inv and begins executing it. Validation failures are
// returned here; execution failures surface from Call.Wait.
func (g *Gateway) Start(ctx context.Context, inv Invocation) (*Call, error) {
	start := time.Now()
	id := uuid.NewString()

	params, err := g.validator.Validate(inv.Name, inv.Params)
	if err != nil {
		g.record(Record{ID: id, Tool: inv.Name, Started: start, Duration: time.Since(start), Outcome: OutcomeInvalid, Error: err.Error()})
		g.log.Debug().Str("call", id).Str("tool", string(inv.Name)).Err(err).Msg("tool call rejected")
		return nil, err
	}

	callCtx, cancel := context.WithCancel(ctx)
	call := &Call{
		ID:      id,
		Tool:    inv.Name,
		Params:  params,
		Started: start,
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	g.log.Debug().Str("call", id).Str("tool", string(inv.Name)).Msg("tool call started")

	go g.finish(callCtx, call)
	return call, nil
}

// Run starts a call by name and waits for its text.
func (g *Gateway) Run(ctx context.Context, name string, raw map[string]any) (string, error) {
	call, err := g.Start(ctx, Invocation{Name: Name(name), Params: raw})
	if err != nil {
		return "", err
	}
	return call.Wait(ctx)
}

func (g *Gateway) finish(ctx context.Context, call *Call) {
	defer call.cancel()

	result, err := g.safeExecute(ctx, call)
	var text string
	if err == nil {
		text = ToText(call.Tool, call.Params, result)
	}

	rec := Record{
		ID:       call.ID,
		Tool:     call.Tool,
		Started:  call.Started,
		Duration: time.Since(call.Started),
		Outcome:  OutcomeSuccess,
	}
	if err != nil {
		rec.Error = err.Error()
		rec.Outcome = OutcomeFailed
		var busy *ResourceBusyError
		if errors.As(err, &busy) {
			rec.Outcome = OutcomeBusy
		}
	}
	g.record(rec)

	ev := g.log.Info()
	if err != nil {
		ev = g.log.Warn().Err(err)
	}
	ev.Str("call", call.ID).Str("tool", string(call.Tool)).Dur("duration", rec.Duration).Str("outcome", string(rec.Outcome)).Msg("tool call finished")

	call.resolve(result, text, err)
}

// safeExecute runs the executor, turning a panic into an ExecutionError.
func (g *Gateway) safeExecute(ctx context.Context, call *Call) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().Str("call", call.ID).Str("tool", string(call.Tool)).Interface("panic", r).Msg("tool executor panicked")
			result, err = nil, &ExecutionError{Tool: call.Tool, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	return g.execute(ctx, call, call.Params)
}

// execute dispatches on the validated parameter type.
func (g *Gateway) execute(ctx context.Context, call *Call, params any) (any, error) {
	switch p := params.(type) {
	case ReadFileParams:
		return g.readFile(ctx, p)
	case LsDirParams:
		return g.lsDir(ctx, p)
	case DirTreeParams:
		return g.dirTree(ctx, p)
	case SearchPathnamesParams:
		return g.searchPathnames(ctx, p)
	case SearchFilesParams:
		return g.searchFiles(ctx, p)
	case SearchInFileParams:
		return g.searchInFile(ctx, p)
	case LintParams:
		return g.readLint(ctx, p)
	case CreateParams:
		return g.create(ctx, p)
	case DeleteParams:
		return g.delete(ctx, p)
	case RewriteParams:
		return g.rewrite(ctx, p)
	case EditParams:
		return g.edit(ctx, p)
	case RunCommandParams:
		return g.runCommand(ctx, call, p)
	case RunPersistentParams:
		return g.runPersistent(ctx, call, p)
	case OpenTerminalParams:
		return g.openTerminal(ctx, p)
	case KillTerminalParams:
		return g.killTerminal(p)
	case RunNLParams:
		return g.runNL(ctx, call, p)
	case WebSearchParams:
		return g.webSearch(ctx, p)
	case BrowseParams:
		return g.browse(ctx, p)
	}
	return nil, &ExecutionError{Tool: call.Tool, Message: fmt.Sprintf("no executor for %T", params)}
}

// =============================================================================
// CALL
// =============================================================================

// Call is a tool call in flight.
type Call struct {
	ID      string
	Tool    Name
	Params  any
	Started time.Time

	done   chan struct{}
	cancel context.CancelFunc

	mu          sync.Mutex
	interrupted bool
	hooks       []func()

	result any
	text   string
	err    error
}

// Done is closed once the call has resolved.
func (c *Call) Done() <-chan struct{} { return c.done }

// Interrupt asks the call to stop early. The call still resolves, possibly
// with partial output; Wait for it. A no-op after resolution.
func (c *Call) Interrupt() {
	c.mu.Lock()
	if c.interrupted || c.resolved() {
		c.mu.Unlock()
		return
	}
	c.interrupted = true
	hooks := c.hooks
	c.hooks = nil
	c.mu.Unlock()

	for _, h := range hooks {
		h()
	}
	c.cancel()
}

// Wait blocks until the call resolves and returns its text. If ctx ends
// first the call is interrupted and its final resolution returned.
func (c *Call) Wait(ctx context.Context) (string, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		c.Interrupt()
		<-c.done
	}
	return c.text, c.err
}

// Result returns the structured result after resolution; ok is false while
// the call is pending.
func (c *Call) Result() (result any, ok bool) {
	if !c.resolved() {
		return nil, false
	}
	return c.result, true
}

// onInterrupt registers f to run on Interrupt, or runs it now if the call
// was already interrupted.
func (c *Call) onInterrupt(f func()) {
	c.mu.Lock()
	if c.interrupted {
		c.mu.Unlock()
		f()
		return
	}
	c.hooks = append(c.hooks, f)
	c.mu.Unlock()
}

func (c *Call) resolve(result any, text string, err error) {
	c.mu.Lock()
	c.result, c.text, c.err = result, text, err
	c.hooks = nil
	c.mu.Unlock()
	close(c.done)
}

func (c *Call) resolved() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// =============================================================================
// HISTORY & STATS
// =============================================================================

// Outcome classifies a finished call.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeInvalid Outcome = "invalid"
	OutcomeBusy    Outcome = "busy"
)

// Record is one entry of the execution history.
type Record struct {
	ID       string        `json:"id"`
	Tool     Name          `json:"tool"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
}

// Stats summarizes the execution history.
type Stats struct {
	Total         int           `json:"total"`
	Successful    int           `json:"successful"`
	Failed        int           `json:"failed"`
	Invalid       int           `json:"invalid"`
	Busy          int           `json:"busy"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	ByTool        map[Name]int  `json:"by_tool"`
}

func (g *Gateway) record(r Record) {
	g.mu.Lock()
	if len(g.history) >= g.opts.HistorySize {
		g.history = g.history[len(g.history)-g.opts.HistorySize+1:]
	}
	g.history = append(g.history, r)
	g.mu.Unlock()

	if g.deps.Audit != nil {
		if err := g.deps.Audit.RecordCall(r); err != nil {
			g.log.Warn().Err(err).Str("call", r.ID).Msg("audit write failed")
		}
	}
}

// History returns a copy of the execution history, oldest first.
func (g *Gateway) History() []Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Record, len(g.history))
	copy(out, g.history)
	return out
}

// Stats returns statistics over the execution history.
func (g *Gateway) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	stats := Stats{Total: len(g.history), ByTool: make(map[Name]int)}
	for _, r := range g.history {
		switch r.Outcome {
		case OutcomeSuccess:
			stats.Successful++
		case OutcomeInvalid:
			stats.Invalid++
		case OutcomeBusy:
			stats.Busy++
		default:
			stats.Failed++
		}
		stats.ByTool[r.Tool]++
		stats.TotalDuration += r.Duration
	}
	if stats.Total > 0 {
		stats.AvgDuration = stats.TotalDuration / time.Duration(stats.Total)
	}
	return stats
}
