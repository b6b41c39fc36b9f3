package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// Console reads answers from the user without blocking past cancellation.
type Console struct {
	reader      *bufio.Reader
	writer      io.Writer
	readingLock sync.Mutex
}

// NewConsole creates a console reading from in and prompting on out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		reader: bufio.NewReader(in),
		writer: out,
	}
}

// ReadLine reads one trimmed line, returning ErrInputCancelled when ctx ends
// first. The pending read keeps running and its line is dropped.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		c.readingLock.Lock()
		defer c.readingLock.Unlock()

		value, err := c.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil && !(errors.Is(res.err, io.EOF) && res.value != "") {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}

// Confirm asks a yes/no question. Anything but an explicit yes is a no.
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprint(c.writer, FormatPrompt(question+" [y/N]")); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	answer, err := c.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes", "s", "sim":
		return true, nil
	default:
		return false, nil
	}
}
