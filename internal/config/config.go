package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values used when a field is absent from the config file and
// not overridden on the command line.
const (
	DefaultDataDir        = "output"
	DefaultOutputDir      = "output"
	DefaultGroundTruth    = "ground_truth.csv"
	DefaultTracks         = "tracks.csv"
	DefaultDetections     = "detections.csv"
	DefaultOverlayName    = "visualization.png"
	DefaultFigureWidthIn  = 10.0
	DefaultFigureHeightIn = 7.0
	DefaultDPI            = 150
	DefaultListenAddr     = "localhost:8089"
	DefaultDBName         = "trackviz.db"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// VisualiserConfig holds the settings shared by every trackviz command.
// All fields are optional; the Get* accessors supply defaults so partial
// files are safe.
type VisualiserConfig struct {
	DataDir        *string  `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	OutputDir      *string  `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	GroundTruth    *string  `json:"ground_truth_file,omitempty" yaml:"ground_truth_file,omitempty"`
	Tracks         *string  `json:"tracks_file,omitempty" yaml:"tracks_file,omitempty"`
	Detections     *string  `json:"detections_file,omitempty" yaml:"detections_file,omitempty"`
	FigureWidthIn  *float64 `json:"figure_width_in,omitempty" yaml:"figure_width_in,omitempty"`
	FigureHeightIn *float64 `json:"figure_height_in,omitempty" yaml:"figure_height_in,omitempty"`
	DPI            *int     `json:"dpi,omitempty" yaml:"dpi,omitempty"`
	ListenAddr     *string  `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	DBPath         *string  `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a config with every field unset.
func Empty() *VisualiserConfig {
	return &VisualiserConfig{}
}

// Default returns a config with every field set to its default.
func Default() *VisualiserConfig {
	return &VisualiserConfig{
		DataDir:        ptrString(DefaultDataDir),
		OutputDir:      ptrString(DefaultOutputDir),
		GroundTruth:    ptrString(DefaultGroundTruth),
		Tracks:         ptrString(DefaultTracks),
		Detections:     ptrString(DefaultDetections),
		FigureWidthIn:  ptrFloat64(DefaultFigureWidthIn),
		FigureHeightIn: ptrFloat64(DefaultFigureHeightIn),
		DPI:            ptrInt(DefaultDPI),
		ListenAddr:     ptrString(DefaultListenAddr),
		DBPath:         ptrString(filepath.Join(DefaultOutputDir, DefaultDBName)),
	}
}

// Resolved returns a copy of c with every unset field filled in with the
// value its accessor would return.
func (c *VisualiserConfig) Resolved() *VisualiserConfig {
	r := Default()
	r.Override(c)
	r.DBPath = ptrString(c.GetDBPath())
	return r
}

// Load reads a config file. The format is chosen by extension: .json, or
// .yaml/.yml.
func Load(path string) (*VisualiserConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrEmpty loads path, or returns an empty config when path is "".
func LoadOrEmpty(path string) (*VisualiserConfig, error) {
	if path == "" {
		return Empty(), nil
	}
	return Load(path)
}

// Validate checks that the configuration values are valid.
func (c *VisualiserConfig) Validate() error {
	if c.FigureWidthIn != nil && *c.FigureWidthIn <= 0 {
		return fmt.Errorf("figure_width_in must be positive, got %f", *c.FigureWidthIn)
	}
	if c.FigureHeightIn != nil && *c.FigureHeightIn <= 0 {
		return fmt.Errorf("figure_height_in must be positive, got %f", *c.FigureHeightIn)
	}
	if c.DPI != nil && (*c.DPI < 10 || *c.DPI > 1200) {
		return fmt.Errorf("dpi must be between 10 and 1200, got %d", *c.DPI)
	}
	if c.ListenAddr != nil && *c.ListenAddr != "" && !strings.Contains(*c.ListenAddr, ":") {
		return fmt.Errorf("listen_addr must be host:port, got %q", *c.ListenAddr)
	}
	return nil
}

// Override copies every field set in o over c.
func (c *VisualiserConfig) Override(o *VisualiserConfig) {
	if o == nil {
		return
	}
	if o.DataDir != nil {
		c.DataDir = o.DataDir
	}
	if o.OutputDir != nil {
		c.OutputDir = o.OutputDir
	}
	if o.GroundTruth != nil {
		c.GroundTruth = o.GroundTruth
	}
	if o.Tracks != nil {
		c.Tracks = o.Tracks
	}
	if o.Detections != nil {
		c.Detections = o.Detections
	}
	if o.FigureWidthIn != nil {
		c.FigureWidthIn = o.FigureWidthIn
	}
	if o.FigureHeightIn != nil {
		c.FigureHeightIn = o.FigureHeightIn
	}
	if o.DPI != nil {
		c.DPI = o.DPI
	}
	if o.ListenAddr != nil {
		c.ListenAddr = o.ListenAddr
	}
	if o.DBPath != nil {
		c.DBPath = o.DBPath
	}
}

// SetDataDir sets data_dir when v is non-empty.
func (c *VisualiserConfig) SetDataDir(v string) {
	if v != "" {
		c.DataDir = ptrString(v)
	}
}

// SetOutputDir sets output_dir when v is non-empty.
func (c *VisualiserConfig) SetOutputDir(v string) {
	if v != "" {
		c.OutputDir = ptrString(v)
	}
}

// SetDBPath sets db_path when v is non-empty.
func (c *VisualiserConfig) SetDBPath(v string) {
	if v != "" {
		c.DBPath = ptrString(v)
	}
}

// SetListenAddr sets listen_addr when v is non-empty.
func (c *VisualiserConfig) SetListenAddr(v string) {
	if v != "" {
		c.ListenAddr = ptrString(v)
	}
}

// GetDataDir returns the directory holding the simulator CSVs.
func (c *VisualiserConfig) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return DefaultDataDir
	}
	return *c.DataDir
}

// GetOutputDir returns the directory rendered figures are written to.
func (c *VisualiserConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return DefaultOutputDir
	}
	return *c.OutputDir
}

// GroundTruthPath returns the ground truth CSV path inside the data dir.
func (c *VisualiserConfig) GroundTruthPath() string {
	return c.dataFile(c.GroundTruth, DefaultGroundTruth)
}

// TracksPath returns the tracks CSV path inside the data dir.
func (c *VisualiserConfig) TracksPath() string {
	return c.dataFile(c.Tracks, DefaultTracks)
}

// DetectionsPath returns the detections CSV path inside the data dir.
func (c *VisualiserConfig) DetectionsPath() string {
	return c.dataFile(c.Detections, DefaultDetections)
}

func (c *VisualiserConfig) dataFile(v *string, def string) string {
	name := def
	if v != nil && *v != "" {
		name = *v
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.GetDataDir(), name)
}

// OverlayPath returns where the image overlay figure is saved.
func (c *VisualiserConfig) OverlayPath() string {
	return filepath.Join(c.GetOutputDir(), DefaultOverlayName)
}

// GetFigureWidthIn returns the trajectory figure width in inches.
func (c *VisualiserConfig) GetFigureWidthIn() float64 {
	if c.FigureWidthIn == nil {
		return DefaultFigureWidthIn
	}
	return *c.FigureWidthIn
}

// GetFigureHeightIn returns the trajectory figure height in inches.
func (c *VisualiserConfig) GetFigureHeightIn() float64 {
	if c.FigureHeightIn == nil {
		return DefaultFigureHeightIn
	}
	return *c.FigureHeightIn
}

// GetDPI returns the raster resolution for saved figures.
func (c *VisualiserConfig) GetDPI() int {
	if c.DPI == nil {
		return DefaultDPI
	}
	return *c.DPI
}

// GetListenAddr returns the address the viewer binds to.
func (c *VisualiserConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetDBPath returns the run archive database path.
func (c *VisualiserConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return filepath.Join(c.GetOutputDir(), DefaultDBName)
	}
	return *c.DBPath
}
