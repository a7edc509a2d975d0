package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Input maps the keyboard onto customizer requests.
type Input struct {
	// TogglePanel is true on the frame Tab was pressed.
	TogglePanel bool

	app      *App
	selected int
}

func NewInput(app *App) *Input {
	return &Input{app: app}
}

// Update polls the keyboard. It returns ebiten.Termination when F12 is pressed.
func (i *Input) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		return ebiten.Termination
	}

	i.TogglePanel = inpututil.IsKeyJustPressed(ebiten.KeyTab)

	if inpututil.IsKeyJustPressed(ebiten.KeyE) {
		i.app.state.RequestExport()
	}

	slots := i.app.setup.Catalog.SlotNames()
	if len(slots) == 0 {
		return nil
	}
	if i.selected >= len(slots) {
		i.selected = 0
	}

	// Up/Down pick a slot, Left/Right cycle its options.
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
		i.selected = (i.selected + len(slots) - 1) % len(slots)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
		i.selected = (i.selected + 1) % len(slots)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
		i.app.Cycle(slots[i.selected], -1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
		i.app.Cycle(slots[i.selected], 1)
	}
	return nil
}

// Selected returns the slot the arrow keys currently edit.
func (i *Input) Selected() string {
	slots := i.app.setup.Catalog.SlotNames()
	if i.selected >= len(slots) {
		return ""
	}
	return slots[i.selected]
}
