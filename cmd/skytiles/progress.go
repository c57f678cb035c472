package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/eak1mov/go-skytiles/pyramid"
	"github.com/schollz/progressbar/v3"
)

// logger routes library logs through the default log package, so -v
// controls them.
func logger() *slog.Logger {
	return slog.Default()
}

// trackRun renders a progress bar for the run until it ends.
func trackRun(h *pyramid.Handle, total int64) pyramid.Result {
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("tiles"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(200*time.Millisecond),
	)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-h.Done():
			bar.Set64(int64(h.TilesProcessed()))
			bar.Finish()
			fmt.Println()
			return h.Wait()
		case <-ticker.C:
			bar.Describe(fmt.Sprintf("%v L%d", h.State(), h.Level()))
			bar.Set64(int64(h.TilesProcessed()))
		}
	}
}

func newCountBar(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
	)
}
