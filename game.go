package main

import (
	"fmt"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Game hosts the customizer in an ebiten window. ebiten's Update drives the
// frame loop; the first Layout call is the content-loaded signal and later
// size changes become resize events.
type Game struct {
	frames int

	app    *App
	input  *Input
	ui     *ebitenui.UI
	picker *Picker

	frame     *ebiten.Image
	outW      int
	outH      int
	laidOut   bool
	showPanel bool
}

func NewGame(app *App) *Game {
	g := &Game{app: app, showPanel: true}
	g.input = NewInput(app)
	g.ui, g.picker = NewPickerUI(app)
	return g
}

func runWindow(app *App) error {
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(app.settings.Width, app.settings.Height)
	ebiten.SetWindowTitle(app.settings.Title)
	ebiten.SetTPS(app.settings.TickRate)
	return ebiten.RunGame(NewGame(app))
}

func (g *Game) Update() error {
	g.frames++

	if err := g.input.Update(); err != nil {
		return err
	}
	if g.input.TogglePanel {
		g.showPanel = !g.showPanel
	}
	if g.showPanel {
		g.ui.Update()
	}

	if g.app.Poll() {
		g.ui, g.picker = NewPickerUI(g.app)
	}
	g.app.Tick()
	g.picker.Refresh(g.input.Selected())
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if r := g.app.renderer; r != nil {
		img := r.Image()
		b := img.Bounds()
		if g.frame == nil || g.frame.Bounds().Dx() != b.Dx() || g.frame.Bounds().Dy() != b.Dy() {
			if g.frame != nil {
				g.frame.Deallocate()
			}
			g.frame = ebiten.NewImage(b.Dx(), b.Dy())
		}
		g.frame.WritePixels(img.Pix)
		screen.DrawImage(g.frame, nil)
	}

	if g.showPanel {
		g.ui.Draw(screen)
	}

	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("FPS: %.2f  Tab: panel  E: export  F12: quit", ebiten.ActualFPS()), 4, g.outH-16)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if !g.laidOut {
		g.laidOut = true
		g.app.state.NotifyContentLoaded()
	}
	if outsideWidth != g.outW || outsideHeight != g.outH {
		g.outW, g.outH = outsideWidth, outsideHeight
		g.app.state.NotifyResize(outsideWidth, outsideHeight)
	}
	return outsideWidth, outsideHeight
}
