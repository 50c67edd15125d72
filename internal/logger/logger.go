// Package logger writes the --verbose trace of lexrag to stderr.
//
// Each pipeline run (an ingest, a retrieval, a chat turn) opens a section.
// Lines logged inside a section are tagged with its name and the time
// elapsed since it opened, so slow embedding or generation calls stand out.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	verbose bool
	output  io.Writer = os.Stderr
	now               = time.Now

	section string
	opened  time.Time
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetOutput redirects the trace. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Section opens a named section and restarts its clock.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	section = name
	opened = now()
	fmt.Fprintf(output, "\n-- %s --\n", name)
}

// Debug traces a pipeline step.
func Debug(format string, args ...any) { logf("debug", format, args...) }

// Info reports a milestone such as a finished ingest.
func Info(format string, args ...any) { logf("info", format, args...) }

// Warn reports a recoverable problem.
func Warn(format string, args ...any) { logf("warn", format, args...) }

// Timed logs "<msg> took <duration>" at debug level when the returned
// function is called.
//
//	done := logger.Timed("embed query")
//	vec, err := embedder.Embed(ctx, q)
//	done()
func Timed(format string, args ...any) func() {
	mu.Lock()
	on, start := verbose, now()
	mu.Unlock()
	if !on {
		return func() {}
	}

	msg := fmt.Sprintf(format, args...)
	return func() {
		logf("debug", "%s took %s", msg, now().Sub(start).Round(time.Millisecond))
	}
}

func logf(level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}

	tag := level
	if section != "" {
		tag = fmt.Sprintf("%s %s +%s", level, section, now().Sub(opened).Round(time.Millisecond))
	}
	fmt.Fprintf(output, "[%s] %s\n", tag, fmt.Sprintf(format, args...))
}
