package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := Empty()

	assert.Equal(t, "output", cfg.GetDataDir())
	assert.Equal(t, "output", cfg.GetOutputDir())
	assert.Equal(t, filepath.Join("output", "ground_truth.csv"), cfg.GroundTruthPath())
	assert.Equal(t, filepath.Join("output", "tracks.csv"), cfg.TracksPath())
	assert.Equal(t, filepath.Join("output", "detections.csv"), cfg.DetectionsPath())
	assert.Equal(t, filepath.Join("output", "visualization.png"), cfg.OverlayPath())
	assert.Equal(t, filepath.Join("output", "trackviz.db"), cfg.GetDBPath())
	assert.Equal(t, 150, cfg.GetDPI())
	assert.Equal(t, 10.0, cfg.GetFigureWidthIn())
	assert.Equal(t, 7.0, cfg.GetFigureHeightIn())
	assert.Equal(t, "localhost:8089", cfg.GetListenAddr())
}

func TestDefaultMatchesAccessors(t *testing.T) {
	def, empty := Default(), Empty()

	assert.Equal(t, empty.GetDataDir(), def.GetDataDir())
	assert.Equal(t, empty.GetDPI(), def.GetDPI())
	assert.Equal(t, empty.GetDBPath(), def.GetDBPath())
	assert.Equal(t, empty.GetListenAddr(), def.GetListenAddr())
	require.NoError(t, def.Validate())
}

func TestResolved(t *testing.T) {
	cfg := Empty()
	cfg.SetOutputDir("/plots")
	cfg.SetDataDir("/sim/run3")

	r := cfg.Resolved()
	assert.Equal(t, "/sim/run3", *r.DataDir)
	assert.Equal(t, "/plots", *r.OutputDir)
	assert.Equal(t, filepath.Join("/plots", "trackviz.db"), *r.DBPath, "archive follows the output dir")
	assert.Equal(t, DefaultDPI, *r.DPI)
	assert.Equal(t, DefaultListenAddr, *r.ListenAddr)
	assert.Nil(t, cfg.DBPath, "receiver is not modified")

	cfg.SetDBPath("/var/runs.db")
	assert.Equal(t, "/var/runs.db", *cfg.Resolved().DBPath)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "trackviz.json", `{
  "data_dir": "/sim/run1",
  "dpi": 96,
  "figure_width_in": 12.5
}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/sim/run1", cfg.GetDataDir())
	assert.Equal(t, filepath.Join("/sim/run1", "tracks.csv"), cfg.TracksPath())
	assert.Equal(t, 96, cfg.GetDPI())
	assert.Equal(t, 12.5, cfg.GetFigureWidthIn())
	// unset fields keep their defaults
	assert.Equal(t, 7.0, cfg.GetFigureHeightIn())
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "trackviz.yaml", `
output_dir: plots
tracks_file: /abs/tracks_run2.csv
listen_addr: 127.0.0.1:9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("plots", "visualization.png"), cfg.OverlayPath())
	assert.Equal(t, "/abs/tracks_run2.csv", cfg.TracksPath(), "absolute file names bypass data_dir")
	assert.Equal(t, "127.0.0.1:9000", cfg.GetListenAddr())
	assert.Equal(t, filepath.Join("plots", "trackviz.db"), cfg.GetDBPath())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, file, body, wantErr string
	}{
		{"bad extension", "cfg.toml", `dpi = 3`, "extension"},
		{"bad json", "cfg.json", `{"dpi": }`, "failed to parse"},
		{"bad yaml", "cfg.yml", "dpi: [1,\n", "failed to parse"},
		{"dpi out of range", "cfg.json", `{"dpi": 5}`, "dpi must be"},
		{"negative width", "cfg.yaml", "figure_width_in: -1\n", "figure_width_in"},
		{"listen addr without port", "cfg.json", `{"listen_addr": "localhost"}`, "listen_addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingAndTooLarge(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat")

	big := writeConfig(t, "big.json", `{"data_dir": "`+strings.Repeat("a", maxFileSize)+`"}`)
	_, err = Load(big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadOrEmpty(t *testing.T) {
	cfg, err := LoadOrEmpty("")
	require.NoError(t, err)
	assert.Equal(t, Empty(), cfg)
}

func TestOverrideAndSetters(t *testing.T) {
	cfg := Default()
	cfg.Override(&VisualiserConfig{DPI: ptrInt(72), DataDir: ptrString("/runs/7")})
	cfg.Override(nil)

	assert.Equal(t, 72, cfg.GetDPI())
	assert.Equal(t, "/runs/7", cfg.GetDataDir())
	assert.Equal(t, "localhost:8089", cfg.GetListenAddr())

	cfg.SetOutputDir("")
	assert.Equal(t, "output", cfg.GetOutputDir(), "empty flag value must not override")
	cfg.SetOutputDir("/tmp/plots")
	cfg.SetDBPath("/tmp/runs.db")
	cfg.SetListenAddr(":0")
	cfg.SetDataDir("")
	assert.Equal(t, "/tmp/plots", cfg.GetOutputDir())
	assert.Equal(t, "/tmp/runs.db", cfg.GetDBPath())
	assert.Equal(t, ":0", cfg.GetListenAddr())
	assert.Equal(t, "/runs/7", cfg.GetDataDir())
}
