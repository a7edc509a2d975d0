package main

import (
	"context"
	"fmt"
	"time"
)

// headlessConfig controls the no-window host runner.
type headlessConfig struct {
	Hz    int
	Ticks uint64
}

// runHeadless drives the frame loop from a ticker. With Ticks == 0 it returns
// once the avatar has settled and any requested export is done.
func runHeadless(ctx context.Context, app *App, cfg headlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	app.state.NotifyResize(app.settings.Width, app.settings.Height)
	app.state.NotifyContentLoaded()

	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			app.Poll()
			app.Tick()
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
			if cfg.Ticks == 0 && app.Done() {
				return nil
			}
		}
	}
}
