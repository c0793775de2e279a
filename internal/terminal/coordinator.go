// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package terminal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigrun-gateway/internal/danger"
	"github.com/jeranaias/rigrun-gateway/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrEmptyCommand   = errors.New("command is empty")
	ErrNoSuchTerminal = errors.New("no such persistent terminal")
	ErrTerminalExists = errors.New("persistent terminal already exists")
	ErrTerminalBusy   = errors.New("persistent terminal is still running a command")
	ErrNoTranslator   = errors.New("no natural-language command translator configured")
	ErrClosed         = errors.New("terminal coordinator is closed")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Translation is a shell command derived from a natural-language request.
type Translation struct {
	Command     string
	Explanation string
}

// Translator turns a natural-language request into a shell command.
type Translator interface {
	Translate(ctx context.Context, request, cwd string) (Translation, error)
}

// SecretDetector masks credentials in command output.
type SecretDetector interface {
	Redact(text string) string
}

// Notice is a user-facing warning about a command.
type Notice struct {
	Level   danger.Level
	Rule    string
	Command string
	Message string
}

// Notifier receives danger warnings. Commands are never blocked.
type Notifier interface {
	Notify(n Notice)
}

// =============================================================================
// RESULTS
// =============================================================================

// Reason is how a run resolved.
type Reason string

const (
	ReasonDone        Reason = "done"
	ReasonTimeout     Reason = "timeout"
	ReasonInterrupted Reason = "interrupted"
)

// Kind distinguishes temporary from persistent runs.
type Kind string

const (
	KindTemporary  Kind = "temporary"
	KindPersistent Kind = "persistent"
)

// Result is the resolution of one run.
type Result struct {
	Kind       Kind
	TerminalID string
	Command    string
	Reason     Reason

	// ExitCode is meaningful when Reason is ReasonDone.
	ExitCode int
	Output   string
	Danger   danger.Level
	Duration time.Duration

	// Window is the inactivity timeout (temporary) or background window
	// (persistent) that elapsed when Reason is ReasonTimeout.
	Window time.Duration

	// Set for natural-language runs.
	ParsedCommand string
	Explanation   string
}

// Run is a started command. Wait for its resolution, or Interrupt it.
type Run struct {
	done      chan struct{}
	interrupt chan struct{}
	once      sync.Once
	result    Result
}

func newRun() *Run {
	return &Run{done: make(chan struct{}), interrupt: make(chan struct{})}
}

// Done is closed when the run has resolved.
func (r *Run) Done() <-chan struct{} { return r.done }

// Interrupt kills the running command. A no-op once the run has resolved.
func (r *Run) Interrupt() {
	r.once.Do(func() { close(r.interrupt) })
}

// Wait blocks until the run resolves. If ctx ends first the run is
// interrupted and its (interrupted) resolution returned.
func (r *Run) Wait(ctx context.Context) Result {
	select {
	case <-r.done:
	case <-ctx.Done():
		r.Interrupt()
		<-r.done
	}
	return r.result
}

// Result returns the resolution; ok is false while the run is pending.
func (r *Run) Result() (Result, bool) {
	select {
	case <-r.done:
		return r.result, true
	default:
		return Result{}, false
	}
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Options tune the coordinator.
type Options struct {
	// InactivityTimeout kills a temporary run that produced no output for
	// this long.
	InactivityTimeout time.Duration

	// BackgroundWindow is how long a persistent run is awaited before the
	// call resolves with the output so far.
	BackgroundWindow time.Duration

	// MaxOutputChars caps returned output, keeping the tail. 0 or less
	// disables the cap.
	MaxOutputChars int

	// Env overrides the sanitized process environment when non-nil.
	Env []string

	// PollInterval is how often inactivity is checked.
	PollInterval time.Duration
}

// Option configures optional collaborators.
type Option func(*Coordinator)

// WithTranslator enables natural-language runs.
func WithTranslator(t Translator) Option {
	return func(c *Coordinator) { c.translator = t }
}

// WithSecretDetector masks secrets in natural-language run output.
func WithSecretDetector(d SecretDetector) Option {
	return func(c *Coordinator) { c.detector = d }
}

// WithNotifier sends danger warnings to n.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// Coordinator runs shell commands in temporary and persistent terminals.
type Coordinator struct {
	host       Host
	opts       Options
	log        zerolog.Logger
	translator Translator
	detector   SecretDetector
	notifier   Notifier

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

type session struct {
	id      string
	cwd     string
	created time.Time

	mu  sync.Mutex
	job *job
}

type job struct {
	command string
	proc    Process
	started time.Time
	run     *Run
}

// New creates a Coordinator.
func New(host Host, opts Options, log zerolog.Logger, options ...Option) *Coordinator {
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = 8 * time.Second
	}
	if opts.BackgroundWindow <= 0 {
		opts.BackgroundWindow = 5 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = min(100*time.Millisecond, opts.InactivityTimeout/4)
	}
	c := &Coordinator{
		host:     host,
		opts:     opts,
		log:      log.With().Str("component", "terminal").Logger(),
		sessions: make(map[string]*session),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// HasTranslator reports whether natural-language runs are available.
func (c *Coordinator) HasTranslator() bool { return c.translator != nil }

// -----------------------------------------------------------------------------
// Temporary terminals
// -----------------------------------------------------------------------------

// RunTemporary starts command in a fresh terminal. The run resolves done
// when the command exits, or timeout after InactivityTimeout without output
// (the command is killed and its partial output returned).
func (c *Coordinator) RunTemporary(ctx context.Context, command, cwd string) (*Run, error) {
	return c.runTemporary(ctx, command, cwd, nil)
}

func (c *Coordinator) runTemporary(ctx context.Context, command, cwd string, post func(*Result)) (*Run, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}
	if c.isClosed() {
		return nil, ErrClosed
	}
	level := c.assess(command)

	proc, err := c.host.Start(ctx, ProcessSpec{Command: command, Dir: cwd, Env: c.opts.Env})
	if err != nil {
		return nil, err
	}

	run := newRun()
	res := Result{
		Kind:       KindTemporary,
		TerminalID: uuid.NewString(),
		Command:    command,
		Danger:     level,
	}
	c.log.Debug().Str("terminal", res.TerminalID).Str("command", command).Msg("temporary run started")
	go c.watchTemporary(ctx, run, proc, res, post)
	return run, nil
}

func (c *Coordinator) watchTemporary(ctx context.Context, run *Run, proc Process, res Result, post func(*Result)) {
	start := time.Now()
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	stop := func(reason Reason) {
		proc.Interrupt()
		<-proc.Done()
		res.Reason = reason
	}

	for res.Reason == "" {
		select {
		case <-proc.Done():
			res.Reason = ReasonDone
			res.ExitCode = proc.ExitCode()
		case <-run.interrupt:
			stop(ReasonInterrupted)
		case <-ctx.Done():
			stop(ReasonInterrupted)
		case <-ticker.C:
			if time.Since(proc.LastActivity()) < c.opts.InactivityTimeout {
				continue
			}
			select {
			case <-proc.Done():
				res.Reason = ReasonDone
				res.ExitCode = proc.ExitCode()
			default:
				stop(ReasonTimeout)
				res.Window = c.opts.InactivityTimeout
			}
		}
	}

	c.resolve(run, proc, res, start, post)
}

// -----------------------------------------------------------------------------
// Persistent terminals
// -----------------------------------------------------------------------------

// OpenPersistent creates a persistent terminal rooted at cwd. An empty id
// gets a generated one. Returns the terminal id.
func (c *Coordinator) OpenPersistent(ctx context.Context, id, cwd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClosed
	}
	if _, ok := c.sessions[id]; ok {
		return "", fmt.Errorf("%w: %s", ErrTerminalExists, id)
	}
	c.sessions[id] = &session{id: id, cwd: cwd, created: time.Now()}
	c.log.Info().Str("terminal", id).Str("cwd", cwd).Msg("persistent terminal opened")
	return id, nil
}

// RunPersistent starts command in terminal id. The run resolves done if
// the command exits within BackgroundWindow, otherwise timeout with the
// output so far while the command keeps running (see Poll). A terminal
// runs one command at a time.
func (c *Coordinator) RunPersistent(ctx context.Context, id, command string) (*Run, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}
	s, err := c.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job != nil && !exited(s.job.proc) {
		return nil, fmt.Errorf("%w: %s is running %q", ErrTerminalBusy, id, s.job.command)
	}

	level := c.assess(command)
	proc, err := c.host.Start(ctx, ProcessSpec{Command: command, Dir: s.cwd, Env: c.opts.Env})
	if err != nil {
		return nil, err
	}

	run := newRun()
	s.job = &job{command: command, proc: proc, started: time.Now(), run: run}
	res := Result{
		Kind:       KindPersistent,
		TerminalID: id,
		Command:    command,
		Danger:     level,
	}
	go c.watchPersistent(run, proc, res)
	return run, nil
}

func (c *Coordinator) watchPersistent(run *Run, proc Process, res Result) {
	start := time.Now()
	timer := time.NewTimer(c.opts.BackgroundWindow)
	defer timer.Stop()

	select {
	case <-proc.Done():
		res.Reason = ReasonDone
		res.ExitCode = proc.ExitCode()
		select {
		case <-run.interrupt:
			// KillPersistent raced the watcher to the process.
			res.Reason = ReasonInterrupted
		default:
		}
	case <-run.interrupt:
		proc.Interrupt()
		<-proc.Done()
		res.Reason = ReasonInterrupted
	case <-timer.C:
		select {
		case <-proc.Done():
			res.Reason = ReasonDone
			res.ExitCode = proc.ExitCode()
		default:
			res.Reason = ReasonTimeout
			res.Window = c.opts.BackgroundWindow
		}
	}

	c.resolve(run, proc, res, start, nil)
}

// Status is a snapshot of a persistent terminal.
type Status struct {
	ID       string    `json:"id"`
	Cwd      string    `json:"cwd"`
	Created  time.Time `json:"created"`
	Command  string    `json:"command,omitempty"`
	Started  time.Time `json:"started,omitempty"`
	Running  bool      `json:"running"`
	ExitCode *int      `json:"exit_code,omitempty"`
	Output   string    `json:"output"`
}

// Poll returns the state of terminal id and the output of its latest
// command. It never blocks on other terminals.
func (c *Coordinator) Poll(id string) (Status, error) {
	s, err := c.session(id)
	if err != nil {
		return Status{}, err
	}
	return c.snapshot(s), nil
}

// Terminals lists every open persistent terminal, sorted by id.
func (c *Coordinator) Terminals() []Status {
	c.mu.Lock()
	sessions := make([]*session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	out := make([]Status, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, c.snapshot(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Coordinator) snapshot(s *session) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{ID: s.id, Cwd: s.cwd, Created: s.created}
	if s.job == nil {
		return st
	}
	st.Command = s.job.command
	st.Started = s.job.started
	st.Output = util.KeepTail(s.job.proc.Output(), c.opts.MaxOutputChars)
	if exited(s.job.proc) {
		code := s.job.proc.ExitCode()
		st.ExitCode = &code
	} else {
		st.Running = true
	}
	return st
}

// KillPersistent interrupts whatever terminal id is running and closes it.
func (c *Coordinator) KillPersistent(id string) error {
	c.mu.Lock()
	s, ok := c.sessions[id]
	delete(c.sessions, id)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchTerminal, id)
	}

	s.mu.Lock()
	j := s.job
	s.mu.Unlock()
	if j != nil {
		j.run.Interrupt()
		j.proc.Interrupt()
	}
	c.log.Info().Str("terminal", id).Msg("persistent terminal closed")
	return nil
}

// Close kills every persistent terminal. Later runs fail with ErrClosed.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		_ = c.KillPersistent(id)
	}
}

// -----------------------------------------------------------------------------
// Natural-language commands
// -----------------------------------------------------------------------------

// RunNL translates request into a shell command and runs it in a temporary
// terminal. The parsed command and explanation are always on the result
// and secrets in the output are masked.
func (c *Coordinator) RunNL(ctx context.Context, request, cwd string) (*Run, error) {
	if c.translator == nil {
		return nil, ErrNoTranslator
	}
	tr, err := c.translator.Translate(ctx, request, cwd)
	if err != nil {
		return nil, fmt.Errorf("translate %q: %w", request, err)
	}
	if strings.TrimSpace(tr.Command) == "" {
		return nil, fmt.Errorf("translate %q: %w", request, ErrEmptyCommand)
	}

	return c.runTemporary(ctx, tr.Command, cwd, func(r *Result) {
		r.ParsedCommand = tr.Command
		r.Explanation = tr.Explanation
		if c.detector != nil {
			r.Output = c.detector.Redact(r.Output)
		}
	})
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func (c *Coordinator) session(id string) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	s, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTerminal, id)
	}
	return s, nil
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// assess classifies command and warns about anything above Low.
func (c *Coordinator) assess(command string) danger.Level {
	level, rule := danger.Explain(command)
	if level == danger.Low {
		return level
	}
	c.log.Warn().Str("danger", level.String()).Str("rule", rule).Str("command", command).Msg("risky command")
	if c.notifier != nil {
		c.notifier.Notify(Notice{
			Level:   level,
			Rule:    rule,
			Command: command,
			Message: fmt.Sprintf("%s-risk command (%s)", level, rule),
		})
	}
	return level
}

func (c *Coordinator) resolve(run *Run, proc Process, res Result, start time.Time, post func(*Result)) {
	res.Output = util.KeepTail(proc.Output(), c.opts.MaxOutputChars)
	res.Duration = time.Since(start)
	if post != nil {
		post(&res)
	}
	run.result = res
	close(run.done)

	c.log.Debug().
		Str("terminal", res.TerminalID).
		Str("kind", string(res.Kind)).
		Str("reason", string(res.Reason)).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("run resolved")
}

func exited(p Process) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}
