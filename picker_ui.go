package main

import (
	"fmt"
	"image/color"
	"path/filepath"

	"golang.org/x/image/font/basicfont"

	"github.com/ebitenui/ebitenui"
	imageui "github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
)

// Picker is the part picker panel: one row per slot with previous/next
// buttons, plus an export button and a status line.
type Picker struct {
	app    *App
	labels map[string]*widget.Text
	status *widget.Text
}

var textColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// NewPickerUI builds the picker panel anchored to the top-left corner. Buttons
// use colored nine-slices and the built-in basic font, so no theme assets are needed.
func NewPickerUI(app *App) (*ebitenui.UI, *Picker) {
	panelImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 180})
	btnImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 255})
	btnHover := imageui.NewNineSliceColor(color.NRGBA{R: 0x55, G: 0x55, B: 0x55, A: 255})

	goFace := ebtext.NewGoXFace(basicfont.Face7x13)
	var face ebtext.Face = goFace

	btnTextColor := &widget.ButtonTextColor{Idle: textColor}
	btnImage := &widget.ButtonImage{Idle: btnImg, Hover: btnHover, Pressed: btnImg}

	p := &Picker{app: app, labels: make(map[string]*widget.Text)}

	panel := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(panelImg),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(6),
			widget.RowLayoutOpts.Padding(&widget.Insets{Top: 12, Bottom: 12, Left: 12, Right: 12}),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{HorizontalPosition: widget.AnchorLayoutPositionStart, VerticalPosition: widget.AnchorLayoutPositionStart}),
		),
	)

	panel.AddChild(widget.NewText(
		widget.TextOpts.Text("Avatar", &face, textColor),
	))

	for _, slot := range app.setup.Catalog.SlotNames() {
		slot := slot
		row := widget.NewContainer(
			widget.ContainerOpts.Layout(widget.NewRowLayout(
				widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
				widget.RowLayoutOpts.Spacing(6),
			)),
		)
		prev := widget.NewButton(
			widget.ButtonOpts.Image(btnImage),
			widget.ButtonOpts.Text("<", &face, btnTextColor),
			widget.ButtonOpts.WidgetOpts(widget.WidgetOpts.MinSize(24, 20)),
			widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
				app.Cycle(slot, -1)
			}),
		)
		next := widget.NewButton(
			widget.ButtonOpts.Image(btnImage),
			widget.ButtonOpts.Text(">", &face, btnTextColor),
			widget.ButtonOpts.WidgetOpts(widget.WidgetOpts.MinSize(24, 20)),
			widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
				app.Cycle(slot, 1)
			}),
		)
		label := widget.NewText(
			widget.TextOpts.Text("", &face, textColor),
			widget.TextOpts.WidgetOpts(
				widget.WidgetOpts.MinSize(160, 0),
				widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionCenter}),
			),
		)
		p.labels[slot] = label

		row.AddChild(prev)
		row.AddChild(label)
		row.AddChild(next)
		panel.AddChild(row)
	}

	exportBtn := widget.NewButton(
		widget.ButtonOpts.Image(btnImage),
		widget.ButtonOpts.Text("Export", &face, btnTextColor),
		widget.ButtonOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(80, 28),
			widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionCenter}),
		),
		widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
			app.state.RequestExport()
		}),
	)
	panel.AddChild(exportBtn)

	p.status = widget.NewText(widget.TextOpts.Text("", &face, textColor))
	panel.AddChild(p.status)

	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)
	root.AddChild(panel)

	p.Refresh("")
	return &ebitenui.UI{Container: root}, p
}

// Refresh updates the slot labels from the pending configuration. selected
// is marked as the slot the arrow keys edit.
func (p *Picker) Refresh(selected string) {
	st := p.app.state
	for name, label := range p.labels {
		s, ok := p.app.setup.Catalog.Slot(name)
		if !ok {
			continue
		}
		text := fmt.Sprintf("%s: %s", name, s.Label(st.Pending.Get(name)))
		if st.ShouldApplyConfig {
			text += " ..."
		}
		if name == selected {
			text = "> " + text
		}
		label.Label = text
	}

	switch {
	case st.LastExport != "":
		p.status.Label = "saved " + filepath.Base(st.LastExport)
	case !st.DidInit:
		p.status.Label = "loading"
	default:
		p.status.Label = ""
	}
}
