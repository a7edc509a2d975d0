package customizer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/avatar-customizer/assets"
	"github.com/milk9111/avatar-customizer/avatar"
	"github.com/milk9111/avatar-customizer/config"
	"github.com/milk9111/avatar-customizer/model"
	"github.com/milk9111/avatar-customizer/parts"
	"github.com/milk9111/avatar-customizer/render"
	"github.com/milk9111/avatar-customizer/scene"
)

// PreviewSize is the edge length of the WebP preview written next to a .glb export.
const PreviewSize = 256

// Setup holds the collaborators built from resolved settings.
type Setup struct {
	Settings config.Settings
	Catalog  *parts.Catalog
	Loader   *assets.Loader
	Exporter *avatar.Exporter
}

// NewSetup loads the catalog and starts the asset loader. Close stops the loader.
func NewSetup(ctx context.Context, s config.Settings) (*Setup, error) {
	cat, err := parts.LoadCatalog(s.PartsDir, parts.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("customizer: %w", err)
	}

	loader := assets.NewLoader(ctx, assets.DefaultSource(s.AssetDir), model.Parse, assets.NewCache(), s.Workers)

	exporter := &avatar.Exporter{
		Dir:    s.ExportDir,
		Binary: !s.Diagnostic,
	}
	if !s.SkipPreview && !s.Diagnostic {
		cam := scene.Camera{FOV: s.FOV, Near: s.Near, Far: s.Far, Position: mgl64.Vec3(s.Camera())}
		exporter.Preview = render.Preview(cam, PreviewSize, PreviewSize)
	}

	log.Printf("customizer: %d slots, assets from %s, exports to %s", len(cat.Slots), s.AssetDir, s.ExportDir)
	return &Setup{Settings: s, Catalog: cat, Loader: loader, Exporter: exporter}, nil
}

// Options builds State options from the settings and catalog.
func (su *Setup) Options() Options {
	s := su.Settings
	return Options{
		Slots:                su.Catalog.SlotNames(),
		Loader:               su.Loader,
		Exporter:             su.Exporter,
		Width:                s.Width,
		Height:               s.Height,
		FOV:                  s.FOV,
		Near:                 s.Near,
		Far:                  s.Far,
		CameraPosition:       mgl64.Vec3(s.Camera()),
		AmbientIntensity:     s.AmbientIntensity,
		DirectionalIntensity: s.DirectionalIntensity,
		LightPosition:        mgl64.Vec3(s.Light()),
	}
}

// Defaults returns the catalog default configuration with overrides applied.
func (su *Setup) Defaults(overrides avatar.Configuration) avatar.Configuration {
	return avatar.Overlay(avatar.Configuration(su.Catalog.Defaults()), overrides)
}

// Close stops the loader and waits for its workers.
func (su *Setup) Close() error {
	return su.Loader.Close()
}

// Settle ticks s every interval until it is settled or ctx is done.
// Tick errors are logged and do not stop the loop.
func Settle(ctx context.Context, s *State, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if err := s.Tick(); err != nil {
			log.Printf("customizer: %v", err)
		}
		if s.Settled() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
