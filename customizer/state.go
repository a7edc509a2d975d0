// Package customizer owns the application state and the per-frame tick that
// drives init, resize, rendering, avatar reconciliation and export.
package customizer

import (
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/milk9111/avatar-customizer/assets"
	"github.com/milk9111/avatar-customizer/avatar"
	"github.com/milk9111/avatar-customizer/scene"
)

// Renderer draws the scene into the surface.
type Renderer interface {
	SetSize(w, h int)
	Render(root *scene.Node, cam *scene.Camera)
}

// Exporter serializes the avatar group. It returns the written path, or ""
// when nothing was written to disk.
type Exporter interface {
	Export(group *scene.Node) (string, error)
}

// Loader fetches part assets off the loop goroutine.
type Loader interface {
	avatar.Loader
	Results() <-chan assets.Result
	InFlight() int
	Invalidate(path string)
}

// Options configures a State. Zero camera and light values take the defaults below.
type Options struct {
	Slots       []string
	Loader      Loader
	Exporter    Exporter
	NewRenderer func(w, h int) Renderer

	// Surface size used at init when no resize has been reported yet.
	Width  int
	Height int

	FOV            float64
	Near           float64
	Far            float64
	CameraPosition mgl64.Vec3

	AmbientIntensity     float64
	DirectionalIntensity float64
	LightPosition        mgl64.Vec3
}

// DefaultOptions returns the stock camera and lighting setup.
func DefaultOptions() Options {
	return Options{
		Width:                960,
		Height:               720,
		FOV:                  75,
		Near:                 0.1,
		Far:                  1000,
		CameraPosition:       mgl64.Vec3{0, 0.25, 1.5},
		AmbientIntensity:     0.5,
		DirectionalIntensity: 0.8,
		LightPosition:        mgl64.Vec3{0, 2, 1},
	}
}

// State is the application context shared by the event entry points and Tick.
// It is owned by the goroutine that calls Tick.
type State struct {
	ContentLoaded bool
	DidInit       bool

	ShouldResize bool
	Width        int
	Height       int

	Scene       *scene.Node
	Camera      *scene.Camera
	Renderer    Renderer
	AvatarGroup *scene.Node
	AvatarNodes map[string]*scene.Node

	Applied           avatar.Configuration
	Pending           avatar.Configuration
	ShouldApplyConfig bool
	ShouldExport      bool

	Reconciler *avatar.Reconciler
	Exporter   Exporter
	Loader     Loader

	// LastExport is the path written by the most recent successful export.
	LastExport string

	opts Options
}

// New creates an uninitialized state. Nothing is built until the first Tick
// after NotifyContentLoaded.
func New(opts Options) *State {
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.FOV <= 0 {
		opts.FOV = def.FOV
	}
	if opts.Near <= 0 {
		opts.Near = def.Near
	}
	if opts.Far <= 0 {
		opts.Far = def.Far
	}
	if opts.CameraPosition == (mgl64.Vec3{}) {
		opts.CameraPosition = def.CameraPosition
	}
	if opts.AmbientIntensity <= 0 {
		opts.AmbientIntensity = def.AmbientIntensity
	}
	if opts.DirectionalIntensity <= 0 {
		opts.DirectionalIntensity = def.DirectionalIntensity
	}
	if opts.LightPosition == (mgl64.Vec3{}) {
		opts.LightPosition = def.LightPosition
	}

	return &State{
		Applied:  avatar.Configuration{},
		Pending:  avatar.Configuration{},
		Exporter: opts.Exporter,
		Loader:   opts.Loader,
		opts:     opts,
	}
}

// NotifyContentLoaded signals that the host surface is ready.
func (s *State) NotifyContentLoaded() {
	s.ContentLoaded = true
}

// NotifyResize records the new surface size. Only the latest size before a
// tick is applied.
func (s *State) NotifyResize(w, h int) {
	s.Width = w
	s.Height = h
	s.ShouldResize = true
}

// RequestConfiguration stores a copy of cfg as the pending configuration.
// A request matching the pending configuration on every slot is a no-op.
func (s *State) RequestConfiguration(cfg avatar.Configuration) {
	if len(s.opts.Slots) > 0 && cfg.Equal(s.Pending, s.opts.Slots) {
		return
	}
	s.Pending = cfg.Clone()
	s.ShouldApplyConfig = true
}

// RequestExport schedules an export on the next initialized tick.
func (s *State) RequestExport() {
	s.ShouldExport = true
}

// ReloadAsset drops the cached bytes of part id and reloads every slot
// currently showing it.
func (s *State) ReloadAsset(id string) {
	path := assets.PartPath(id)
	if s.Loader != nil {
		s.Loader.Invalidate(path)
	}
	if s.Reconciler == nil {
		return
	}
	for _, slot := range s.Reconciler.Slots() {
		if s.Applied.Get(slot) == id {
			log.Printf("customizer: reloading %s in %s", id, slot)
			s.Reconciler.Invalidate(slot)
			s.ShouldApplyConfig = true
		}
	}
}

// Settled reports whether the state is initialized with no configuration
// change, load or export outstanding.
func (s *State) Settled() bool {
	if !s.DidInit || s.ShouldApplyConfig || s.ShouldExport {
		return false
	}
	if s.Loader == nil {
		return true
	}
	return s.Loader.InFlight() == 0 && len(s.Loader.Results()) == 0
}

// Tick runs one frame: init once the content is loaded, then resize,
// deliver finished loads, render, reconcile and export, in that order.
// A panic in any step is recovered and returned; the remaining steps are
// skipped and their flags stay set for the next tick.
func (s *State) Tick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("customizer: tick panicked: %v", r)
		}
	}()

	if !s.DidInit && s.ContentLoaded {
		s.init()
	}
	if !s.DidInit {
		return nil
	}

	if s.ShouldResize {
		s.ShouldResize = false
		s.resize()
	}

	s.drain()
	s.Renderer.Render(s.Scene, s.Camera)

	if s.ShouldApplyConfig {
		changed := s.Reconciler.Reconcile(s.Pending, s.Applied)
		s.ShouldApplyConfig = false
		if len(changed) > 0 {
			log.Printf("customizer: applied %s (changed %v)", s.Applied, changed)
		}
	}

	if s.ShouldExport {
		s.ShouldExport = false
		if s.Exporter == nil {
			log.Printf("customizer: export requested but no exporter is configured")
			return nil
		}
		path, err := s.Exporter.Export(s.AvatarGroup)
		if err != nil {
			return fmt.Errorf("customizer: export: %w", err)
		}
		s.LastExport = path
	}
	return nil
}

func (s *State) init() {
	w, h := s.Width, s.Height
	if w <= 0 || h <= 0 {
		w, h = s.opts.Width, s.opts.Height
		s.Width, s.Height = w, h
	}

	s.Scene = scene.NewGroup("Scene")

	s.Camera = scene.NewCamera(s.opts.FOV, float64(w)/float64(h), s.opts.Near, s.opts.Far)
	s.Camera.Position = s.opts.CameraPosition

	ambient := scene.NewLight(scene.LightAmbient, 0xffffff, s.opts.AmbientIntensity)
	ambient.Name = "AmbientLight"
	directional := scene.NewLight(scene.LightDirectional, 0xffffff, s.opts.DirectionalIntensity)
	directional.Name = "DirectionalLight"
	directional.Transform.Translation = s.opts.LightPosition
	s.Scene.Add(ambient, directional)

	if s.opts.NewRenderer != nil {
		s.Renderer = s.opts.NewRenderer(w, h)
	} else {
		s.Renderer = nopRenderer{}
	}

	s.AvatarGroup = scene.NewGroup("Avatar")
	s.AvatarNodes = make(map[string]*scene.Node, len(s.opts.Slots))
	for _, slot := range s.opts.Slots {
		node := scene.NewGroup(slot)
		s.AvatarNodes[slot] = node
		s.AvatarGroup.Add(node)
	}
	s.Scene.Add(s.AvatarGroup)

	var loader avatar.Loader = nopLoader{}
	if s.Loader != nil {
		loader = s.Loader
	}
	s.Reconciler = avatar.NewReconciler(s.opts.Slots, s.AvatarNodes, loader)

	s.DidInit = true
	log.Printf("customizer: initialized %dx%d with %d slots", w, h, len(s.opts.Slots))
}

func (s *State) resize() {
	w, h := s.Width, s.Height
	if w <= 0 || h <= 0 {
		return
	}
	s.Renderer.SetSize(w, h)
	s.Camera.Aspect = float64(w) / float64(h)
	s.Camera.UpdateProjection()
}

// drain attaches every finished load without blocking.
func (s *State) drain() {
	if s.Loader == nil {
		return
	}
	results := s.Loader.Results()
	for {
		select {
		case res, ok := <-results:
			if !ok {
				return
			}
			s.Reconciler.Deliver(res)
		default:
			return
		}
	}
}

type nopRenderer struct{}

func (nopRenderer) SetSize(int, int)                  {}
func (nopRenderer) Render(*scene.Node, *scene.Camera) {}

type nopLoader struct{}

func (nopLoader) Load(string, uint64, string) {}
