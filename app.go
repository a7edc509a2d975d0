package main

import (
	"context"
	"image/color"
	"log"
	"os"
	"time"

	"github.com/milk9111/avatar-customizer/avatar"
	"github.com/milk9111/avatar-customizer/config"
	"github.com/milk9111/avatar-customizer/customizer"
	"github.com/milk9111/avatar-customizer/parts"
	"github.com/milk9111/avatar-customizer/render"
	"golang.design/x/clipboard"
)

// App ties the customizer state to its collaborators and the hot-reload watcher.
type App struct {
	settings config.Settings
	setup    *customizer.Setup
	state    *customizer.State
	renderer *render.Renderer
	watcher  *parts.Watcher

	catalogMod     time.Time
	exportOnSettle bool
}

// NewApp builds the state. headless skips the on-screen renderer.
func NewApp(ctx context.Context, settings config.Settings, headless bool) (*App, error) {
	setup, err := customizer.NewSetup(ctx, settings)
	if err != nil {
		return nil, err
	}
	if settings.Diagnostic {
		setup.Exporter.Clipboard = clipboardSink()
	}

	a := &App{settings: settings, setup: setup}

	opts := setup.Options()
	if !headless {
		bg, err := settings.BackgroundColor()
		if err != nil {
			log.Printf("%v, using black", err)
			bg = color.RGBA{A: 0xff}
		}
		opts.NewRenderer = func(w, h int) customizer.Renderer {
			r := render.NewRenderer(w, h)
			r.Background = bg
			a.renderer = r
			return r
		}
	}
	a.state = customizer.New(opts)

	if settings.Watch {
		a.watch()
	}
	if t, ok := parts.ModTime(settings.PartsDir, parts.CatalogFile); ok {
		a.catalogMod = t
	}
	return a, nil
}

// Request asks for the catalog defaults with overrides applied.
func (a *App) Request(overrides avatar.Configuration) {
	a.state.RequestConfiguration(a.setup.Defaults(overrides))
}

// Cycle moves slot to its next (step > 0) or previous option and requests
// the resulting configuration.
func (a *App) Cycle(slot string, step int) string {
	s, ok := a.setup.Catalog.Slot(slot)
	if !ok {
		return avatar.None
	}
	next := s.Cycle(a.state.Pending.Get(slot), step)
	cfg := a.state.Pending.Clone()
	cfg[slot] = next
	a.state.RequestConfiguration(cfg)
	return next
}

// Tick runs one frame and schedules the export requested on the command line
// once every part has loaded.
func (a *App) Tick() {
	if err := a.state.Tick(); err != nil {
		log.Printf("tick: %v", err)
	}
	if a.exportOnSettle && a.state.Settled() {
		a.exportOnSettle = false
		a.state.RequestExport()
	}
}

// Done reports whether a headless run has nothing left to do.
func (a *App) Done() bool {
	return a.watcher == nil && !a.exportOnSettle && a.state.Settled()
}

// Poll applies pending file changes. It reports whether the catalog was reloaded.
func (a *App) Poll() bool {
	if a.watcher == nil {
		return false
	}
	reloaded := false
	for {
		select {
		case c, ok := <-a.watcher.Changes:
			if !ok {
				return reloaded
			}
			switch c.Kind {
			case parts.CatalogChanged:
				if a.reloadCatalog() {
					reloaded = true
				}
			case parts.PartChanged:
				if c.Removed {
					log.Printf("hot reload: %s removed, keeping the loaded copy", c.Path)
					continue
				}
				log.Printf("hot reload: %s", c.Path)
				a.state.ReloadAsset(c.PartID)
			}
		case err, ok := <-a.watcher.Errors:
			if ok && err != nil {
				log.Printf("watch: %v", err)
			}
		default:
			return reloaded
		}
	}
}

func (a *App) reloadCatalog() bool {
	t, ok := parts.ModTime(a.settings.PartsDir, parts.CatalogFile)
	if ok && t.Equal(a.catalogMod) {
		return false
	}
	cat, err := parts.LoadCatalog(a.settings.PartsDir, parts.CatalogFile)
	if err != nil {
		log.Printf("hot reload: %v", err)
		return false
	}
	a.catalogMod = t

	old := a.setup.Catalog.SlotNames()
	now := cat.SlotNames()
	if len(old) != len(now) {
		log.Printf("hot reload: slot list changed, restart to pick up new slots")
	}
	a.setup.Catalog = cat
	log.Printf("hot reload: catalog reloaded (%d slots)", len(cat.Slots))
	return true
}

func (a *App) watch() {
	var dirs []string
	for _, dir := range []string{a.settings.AssetDir, a.settings.PartsDir} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		log.Printf("watch: no asset or parts directory on disk, hot reload disabled")
		return
	}
	w, err := parts.NewWatcher(dirs...)
	if err != nil {
		log.Printf("watch: %v", err)
		return
	}
	a.watcher = w
	log.Printf("watch: watching %v", dirs)
}

// Close stops the watcher and the loader.
func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if err := a.setup.Close(); err != nil {
		log.Printf("close: %v", err)
	}
}

// clipboardSink returns a clipboard writer, or nil when no clipboard is available.
func clipboardSink() func([]byte) {
	if err := clipboard.Init(); err != nil {
		log.Printf("clipboard unavailable: %v", err)
		return nil
	}
	return func(data []byte) {
		clipboard.Write(clipboard.FmtText, data)
		log.Printf("export: copied %d bytes to the clipboard", len(data))
	}
}
