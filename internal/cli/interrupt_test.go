package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestNewInterruptHandler(t *testing.T) {
	tests := []struct {
		writer io.Writer
		name   string
	}{
		{name: "with custom writer", writer: &bytes.Buffer{}},
		{name: "with nil writer", writer: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewInterruptHandler(tt.writer, "Import", "")
			assert.NotNil(t, handler)
			assert.NotNil(t, handler.writer)
			assert.False(t, handler.WasInterrupted())
		})
	}
}

func TestHandleInterrupts(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output, "Import", "Resume with: cashflow batch show")
	defer handler.Stop()

	parent, cancel := context.WithCancel(context.Background())
	ctx := handler.HandleInterrupts(parent)

	select {
	case <-ctx.Done():
		t.Fatal("Context should not be canceled initially")
	default:
	}

	cancel()
	cancel()

	assert.Eventually(t, handler.WasInterrupted, time.Second, 10*time.Millisecond)
	<-ctx.Done()

	out := output.String()
	assert.Equal(t, 1, strings.Count(out, "Import interrupted!"), "message is shown once")
	assert.Contains(t, out, "Resume with: cashflow batch show")
}

func TestStopIsNotAnInterruption(t *testing.T) {
	output := &syncBuffer{}
	handler := NewInterruptHandler(output, "Commit", "")

	ctx := handler.HandleInterrupts(context.Background())
	handler.Stop()
	handler.Stop()

	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, output.String())
}
