// Package config holds the customizer settings: a YAML file overridden by
// command-line flags, with defaults filled in for anything left unset.
package config

import (
	"fmt"
	"image/color"
	"os"
	"runtime"
	"strings"

	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// Settings holds all configurable paths, window, camera and lighting values.
// Zero values mean "use the default".
type Settings struct {
	// Paths
	AssetDir  string `yaml:"asset_dir"`
	PartsDir  string `yaml:"parts_dir"`
	ExportDir string `yaml:"export_dir"`

	// Export
	Diagnostic  bool `yaml:"diagnostic"`
	SkipPreview bool `yaml:"skip_preview"`

	// Window
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Title      string `yaml:"title"`
	Background string `yaml:"background"`
	TickRate   int    `yaml:"tick_rate"`

	// Camera
	FOV            float64   `yaml:"fov"`
	Near           float64   `yaml:"near"`
	Far            float64   `yaml:"far"`
	CameraPosition []float64 `yaml:"camera_position"`

	// Lights
	AmbientIntensity     float64   `yaml:"ambient_intensity"`
	DirectionalIntensity float64   `yaml:"directional_intensity"`
	LightPosition        []float64 `yaml:"light_position"`

	Workers int  `yaml:"workers"`
	Watch   bool `yaml:"watch"`
}

// Flags holds CLI flag values that override file settings when non-zero.
type Flags struct {
	AssetDir   string
	PartsDir   string
	ExportDir  string
	Diagnostic bool
	Workers    int
	Watch      bool
}

// Load reads a YAML settings file. Fields not set in the file keep their zero values.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return s, nil
}

// Resolve applies flag overrides and fills any empty field with its default.
func (s *Settings) Resolve(flags Flags) {
	if flags.AssetDir != "" {
		s.AssetDir = flags.AssetDir
	}
	if flags.PartsDir != "" {
		s.PartsDir = flags.PartsDir
	}
	if flags.ExportDir != "" {
		s.ExportDir = flags.ExportDir
	}
	if flags.Diagnostic {
		s.Diagnostic = true
	}
	if flags.Workers > 0 {
		s.Workers = flags.Workers
	}
	if flags.Watch {
		s.Watch = true
	}

	if s.AssetDir == "" {
		s.AssetDir = "assets"
	}
	if s.PartsDir == "" {
		s.PartsDir = "parts"
	}
	if s.ExportDir == "" {
		s.ExportDir = "."
	}

	if s.Width <= 0 {
		s.Width = 960
	}
	if s.Height <= 0 {
		s.Height = 720
	}
	if s.Title == "" {
		s.Title = "Avatar Customizer"
	}
	if s.Background == "" {
		s.Background = "black"
	}
	if s.TickRate <= 0 {
		s.TickRate = 60
	}

	if s.FOV <= 0 {
		s.FOV = 75
	}
	if s.Near <= 0 {
		s.Near = 0.1
	}
	if s.Far <= 0 {
		s.Far = 1000
	}
	if len(s.CameraPosition) != 3 {
		s.CameraPosition = []float64{0, 0.25, 1.5}
	}

	if s.AmbientIntensity <= 0 {
		s.AmbientIntensity = 0.5
	}
	if s.DirectionalIntensity <= 0 {
		s.DirectionalIntensity = 0.8
	}
	if len(s.LightPosition) != 3 {
		s.LightPosition = []float64{0, 2, 1}
	}

	if s.Workers <= 0 {
		s.Workers = runtime.NumCPU()
		if s.Workers > 4 {
			s.Workers = 4
		}
	}
}

// BackgroundColor looks up Background among the SVG color names.
func (s *Settings) BackgroundColor() (color.RGBA, error) {
	name := strings.ToLower(strings.TrimSpace(s.Background))
	c, ok := colornames.Map[name]
	if !ok {
		return color.RGBA{}, fmt.Errorf("config: unknown background color %q", s.Background)
	}
	return c, nil
}

// Camera returns the camera position as an array.
func (s *Settings) Camera() [3]float64 {
	return vec(s.CameraPosition)
}

// Light returns the directional light position as an array.
func (s *Settings) Light() [3]float64 {
	return vec(s.LightPosition)
}

func vec(v []float64) [3]float64 {
	var out [3]float64
	copy(out[:], v)
	return out
}
