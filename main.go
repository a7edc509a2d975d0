package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/avatar-customizer/avatar"
	"github.com/milk9111/avatar-customizer/config"
)

func main() {
	configPath := flag.String("config", "", "path to a settings YAML file")
	assetDir := flag.String("assets", "", "part asset directory; files here override the embedded ones")
	partsDir := flag.String("parts", "", "directory holding parts.yaml")
	headless := flag.Bool("headless", false, "run without a window")
	ticks := flag.Uint64("ticks", 0, "headless: stop after N ticks (0 stops once the avatar has settled)")
	diagnostic := flag.Bool("diagnostic", false, "export glTF JSON to the log and clipboard instead of writing a .glb")
	outDir := flag.String("out", "", "export directory")
	set := flag.String("set", "", "slot overrides on top of the catalog defaults, e.g. hair=bun,hat=none")
	export := flag.Bool("export", false, "export once every part has loaded")
	watch := flag.Bool("watch", false, "reload the catalog and part assets when they change on disk")
	workers := flag.Int("workers", 0, "asset loader workers")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	flag.Parse()

	var settings config.Settings
	if *configPath != "" {
		s, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		settings = s
	}
	settings.Resolve(config.Flags{
		AssetDir:   *assetDir,
		PartsDir:   *partsDir,
		ExportDir:  *outDir,
		Diagnostic: *diagnostic,
		Workers:    *workers,
		Watch:      *watch,
	})

	overrides, err := avatar.ParseAssignments(*set)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := NewApp(ctx, settings, *headless)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	app.Request(overrides)
	app.exportOnSettle = *export

	if *headless {
		err = runHeadless(ctx, app, headlessConfig{Hz: settings.TickRate, Ticks: *ticks})
	} else {
		if *baseMonitor {
			ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
		}
		err = runWindow(app)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
