package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans out to every notifier and reports all failures together.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Writer prints notifications, e.g. to the terminal running `basket watch`.
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{W: w} }

func (w *Writer) Send(_ context.Context, title, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.W, "%s\n%s\n\n", title, text)
	return err
}
