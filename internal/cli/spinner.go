package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// Spinner animates a status line while a long step runs (clones, scans,
// rsvg-convert). It stops on its own when the parent context ends.
type Spinner struct {
	w       io.Writer
	message string
	frames  spinner.Spinner

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	width   int // printed width of the last frame

	stopOnce sync.Once
	stopped  chan struct{}
}

// newSpinner creates a spinner on stderr.
func newSpinner(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, message)
}

func newSpinnerTo(ctx context.Context, w io.Writer, message string) *Spinner {
	inner, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		message: message,
		frames:  spinner.MiniDot,
		parent:  ctx,
		ctx:     inner,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Start begins the animation. Calling it again has no effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.run()
}

func (s *Spinner) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(s.frames.FPS)
	defer ticker.Stop()

	start := time.Now()
	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clearLine()
			return
		case <-ticker.C:
			line := styleIconSpinner.Render(s.frames.Frames[i%len(s.frames.Frames)]) + " " + StyleDim.Render(s.message)
			// Long steps show their elapsed time.
			if elapsed := time.Since(start); elapsed >= 2*time.Second {
				line += StyleDim.Render(fmt.Sprintf(" %ds", int(elapsed.Seconds())))
			}
			s.draw(line)
		}
	}
}

func (s *Spinner) draw(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pad := max(0, s.width-lipgloss.Width(line))
	fmt.Fprint(s.w, "\r"+line+strings.Repeat(" ", pad))
	s.width = lipgloss.Width(line)
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width == 0 {
		return
	}
	fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.width)+"\r")
	s.width = 0
}

// Stop ends the animation and clears the line. It is safe to call more
// than once and without Start.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.stopped
		}
		s.clearLine()
	})
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

// Cancelled reports whether the parent context ended, as opposed to a
// regular Stop.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
