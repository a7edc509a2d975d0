// Command avatarexport composes an avatar from the part catalog without a
// window and exports it once every part has loaded.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/milk9111/avatar-customizer/avatar"
	"github.com/milk9111/avatar-customizer/config"
	"github.com/milk9111/avatar-customizer/customizer"
)

func main() {
	configFile := flag.String("config", "", "Path to a settings YAML file")
	assetDir := flag.String("assets", "", "Part asset directory (default: assets, falling back to embedded parts)")
	partsDir := flag.String("parts", "", "Directory holding parts.yaml (default: parts)")
	outDir := flag.String("out", "", "Export directory (default: .)")
	set := flag.String("set", "", "Slot overrides, e.g. hair=bun,hat=cap,glasses=none")
	diagnostic := flag.Bool("diagnostic", false, "Print the glTF JSON instead of writing a .glb")
	noPreview := flag.Bool("no-preview", false, "Skip the WebP preview")
	timeout := flag.Duration("timeout", 30*time.Second, "Give up if the parts have not loaded by then")
	workers := flag.Int("workers", 0, "Asset loader workers")

	flag.Parse()

	var settings config.Settings
	if *configFile != "" {
		var err error
		settings, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	settings.Resolve(config.Flags{
		AssetDir:   *assetDir,
		PartsDir:   *partsDir,
		ExportDir:  *outDir,
		Diagnostic: *diagnostic,
		Workers:    *workers,
	})
	if *noPreview {
		settings.SkipPreview = true
	}

	overrides, err := avatar.ParseAssignments(*set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(settings, overrides, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(settings config.Settings, overrides avatar.Configuration, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	setup, err := customizer.NewSetup(ctx, settings)
	if err != nil {
		return err
	}
	defer setup.Close()

	for slot := range overrides {
		if _, ok := setup.Catalog.Slot(slot); !ok {
			return fmt.Errorf("unknown slot %q (have %v)", slot, setup.Catalog.SlotNames())
		}
	}

	state := customizer.New(setup.Options())
	state.NotifyContentLoaded()
	state.RequestConfiguration(setup.Defaults(overrides))

	start := time.Now()
	if err := customizer.Settle(ctx, state, 5*time.Millisecond); err != nil {
		return fmt.Errorf("waiting for parts: %w", err)
	}
	fmt.Printf("Loaded %s in %v\n", state.Applied, time.Since(start).Round(time.Millisecond))

	state.RequestExport()
	if err := state.Tick(); err != nil {
		return err
	}
	if state.LastExport != "" {
		fmt.Printf("Wrote %s\n", state.LastExport)
	}
	return nil
}
