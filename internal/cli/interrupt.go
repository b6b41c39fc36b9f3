package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptHandler cancels long operations on SIGINT/SIGTERM and tells the
// user what was kept.
type InterruptHandler struct {
	writer      io.Writer
	stop        func()
	operation   string
	resumeHint  string
	interrupted bool
	mu          sync.Mutex
}

// NewInterruptHandler creates a handler for the named operation. resumeHint,
// when set, is printed after an interruption.
func NewInterruptHandler(writer io.Writer, operation, resumeHint string) *InterruptHandler {
	if writer == nil {
		writer = os.Stdout
	}
	return &InterruptHandler{
		writer:     writer,
		operation:  operation,
		resumeHint: resumeHint,
	}
}

// HandleInterrupts returns a context that is canceled on interrupt. The
// handler also reports an interruption when ctx itself is canceled. Call
// Stop once the operation is done.
func (h *InterruptHandler) HandleInterrupts(ctx context.Context) context.Context {
	derived, cancel := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	h.mu.Lock()
	h.stop = sync.OnceFunc(func() {
		signal.Stop(sigChan)
		close(done)
		cancel()
	})
	h.mu.Unlock()

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
		case <-done:
			return
		}
		h.markInterrupted()
		cancel()
	}()

	return derived
}

// Stop releases the signal handler.
func (h *InterruptHandler) Stop() {
	h.mu.Lock()
	stop := h.stop
	h.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (h *InterruptHandler) markInterrupted() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interrupted {
		return
	}
	h.interrupted = true
	h.showInterruptMessage()
}

func (h *InterruptHandler) showInterruptMessage() {
	msg := "\n\n" + FormatWarning(h.operation+" interrupted!")
	if h.resumeHint != "" {
		msg += "\n" + FormatInfo(h.resumeHint)
	}
	msg += "\n"

	if _, err := fmt.Fprint(h.writer, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write interrupt message: %v\n", err)
	}
}

// WasInterrupted returns true if the operation was interrupted.
func (h *InterruptHandler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interrupted
}
