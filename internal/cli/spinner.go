package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/stacklicense/pkg/observability"
	"github.com/matzehuels/stacklicense/pkg/resolve"
)

// Spinner is a progress indicator on stderr that stops with its context.
// The message can change while it runs, which is how resolution stages
// are reported.
type Spinner struct {
	message string
	width   int // longest message drawn, for clearing
	out     io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	frames  []string
	mu      sync.Mutex
}

func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		out:     os.Stderr,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				frame := s.frames[i%len(s.frames)]
				s.width = max(s.width, len(s.message))
				fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// Message returns the current message.
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// SetMessage replaces the message shown next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(s.message))
	s.message = msg
}

// Stop stops the spinner and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
		<-s.stopped
		s.clearLine()
	})
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", max(s.width, len(s.message))+4))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled returns true if the spinner was stopped due to context cancellation.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

// =============================================================================
// Stage Tracking
// =============================================================================

// stageMessages is what the spinner shows once the named stage has ended.
var stageMessages = map[string]string{
	resolve.StageFetch:     "Reconciling compiled crates",
	resolve.StageReconcile: "Restoring cached licenses",
	resolve.StageCache:     "Scanning registry sources",
	resolve.StageScan:      "Collecting remaining licenses",
	resolve.StageFallback:  "Finalizing package list",
}

// stageHooks forwards resolution progress to a spinner.
type stageHooks struct {
	observability.NoopResolveHooks
	spin *Spinner
}

func (h stageHooks) OnFetchComplete(_ context.Context, _, query string, _ time.Duration, err error) {
	if err != nil {
		h.spin.SetMessage("cargo " + query + " failed, continuing")
	}
}

func (h stageHooks) OnStageComplete(_ context.Context, _, stage string, _ time.Duration) {
	if msg, ok := stageMessages[stage]; ok {
		h.spin.SetMessage(msg)
	}
}

// trackStages routes resolve hooks to the spinner until the returned
// function is called.
func (s *Spinner) trackStages() (restore func()) {
	prev := observability.Resolve()
	observability.SetResolveHooks(stageHooks{spin: s})
	return func() { observability.SetResolveHooks(prev) }
}
