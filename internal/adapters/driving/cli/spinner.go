package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// startSpinner shows desc while a slow call runs and returns the function
// that stops it. A terminal gets an animated spinner that is erased on
// stop; other writers get a single "desc..." line.
func startSpinner(out io.Writer, desc string) (stop func()) {
	if !isTerminal(out) {
		fmt.Fprintf(out, "%s...\n", desc)
		return func() {}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSpinnerType(9),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(10),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = bar.Add(1)
			case <-done:
				_ = bar.Finish()
				return
			}
		}
	}()

	// The spinner line is gone before the caller prints again.
	return func() {
		close(done)
		<-finished
	}
}
