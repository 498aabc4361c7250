package core

import (
	"fmt"
	"io"
	"sync"
)

// DefaultLogger implements Logger by writing to an io.Writer
type DefaultLogger struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDefaultLogger creates a logger writing to out. Progress output goes to
// stderr in the CLI so that stdout stays free for image data.
func NewDefaultLogger(out io.Writer) Logger {
	return &DefaultLogger{out: out}
}

func (dl *DefaultLogger) Printf(format string, args ...interface{}) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	fmt.Fprintf(dl.out, format, args...)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Printf(string, ...interface{}) {}
