package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// Defaults shared by every tool. They describe the Cityscapes layout.
const (
	DefaultFilePattern = "gtFine/*/*/*gtFine_polygons.json"
	DefaultWorkers     = 4
	DefaultLogMode     = "development"
	// DefaultDepthClass is the detector class id of traffic lights in the
	// depth box listing.
	DefaultDepthClass = "8"
)

// ToolConfig is the optional JSON configuration shared by the tl-* tools.
// Fields omitted from the file fall back to the Get* defaults, and command
// line flags override whatever the file says.
type ToolConfig struct {
	FilePattern *string `json:"file_pattern,omitempty"`
	Workers     *int    `json:"workers,omitempty"`
	LogMode     *string `json:"log_mode,omitempty"`

	// Apply journal
	JournalPath *string `json:"journal_path,omitempty"`

	// Depth box listing consumed by the editor
	DepthFile   *string `json:"depth_file,omitempty"`
	DepthPrefix *string `json:"depth_prefix,omitempty"`
	DepthClass  *string `json:"depth_class,omitempty"`

	// Dataset roots used by the editor's navigation cursor
	CityscapesDir *string `json:"cityscapes_dir,omitempty"`
	VideoDir      *string `json:"video_dir,omitempty"`
	LightsDir     *string `json:"lights_dir,omitempty"`
}

// EmptyConfig returns a ToolConfig with every field unset.
func EmptyConfig() *ToolConfig {
	return &ToolConfig{}
}

// LoadConfig loads a ToolConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadConfig(p string) (*ToolConfig, error) {
	cleanPath := filepath.Clean(p)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOptional loads p when it is non-empty and returns an empty config
// otherwise.
func LoadOptional(p string) (*ToolConfig, error) {
	if p == "" {
		return EmptyConfig(), nil
	}
	return LoadConfig(p)
}

// Validate checks that the configuration values are valid.
func (c *ToolConfig) Validate() error {
	if c.FilePattern != nil {
		if *c.FilePattern == "" {
			return fmt.Errorf("file_pattern must not be empty")
		}
		if _, err := path.Match(*c.FilePattern, ""); err != nil {
			return fmt.Errorf("invalid file_pattern %q: %w", *c.FilePattern, err)
		}
	}

	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}

	if c.LogMode != nil {
		switch *c.LogMode {
		case "development", "production":
		default:
			return fmt.Errorf("log_mode must be development or production, got %q", *c.LogMode)
		}
	}

	return nil
}

// GetFilePattern returns the label file glob, relative to a tree root.
func (c *ToolConfig) GetFilePattern() string {
	if c.FilePattern == nil {
		return DefaultFilePattern
	}
	return *c.FilePattern
}

// GetWorkers returns the per-file worker pool size.
func (c *ToolConfig) GetWorkers() int {
	if c.Workers == nil {
		return DefaultWorkers
	}
	return *c.Workers
}

// GetLogMode returns the zap logger mode.
func (c *ToolConfig) GetLogMode() string {
	if c.LogMode == nil {
		return DefaultLogMode
	}
	return *c.LogMode
}

// GetJournalPath returns the apply journal database path, "" when disabled.
func (c *ToolConfig) GetJournalPath() string {
	if c.JournalPath == nil {
		return ""
	}
	return *c.JournalPath
}

// GetDepthFile returns the depth box listing path, "" when not configured.
func (c *ToolConfig) GetDepthFile() string {
	if c.DepthFile == nil {
		return ""
	}
	return *c.DepthFile
}

// GetDepthPrefix returns the prefix stripped from listing file names.
func (c *ToolConfig) GetDepthPrefix() string {
	if c.DepthPrefix == nil {
		return ""
	}
	return *c.DepthPrefix
}

// GetDepthClass returns the listing class id kept by the depth index.
func (c *ToolConfig) GetDepthClass() string {
	if c.DepthClass == nil {
		return DefaultDepthClass
	}
	return *c.DepthClass
}

// GetCityscapesDir returns the Cityscapes dataset root.
func (c *ToolConfig) GetCityscapesDir() string {
	if c.CityscapesDir == nil {
		return ""
	}
	return *c.CityscapesDir
}

// GetVideoDir returns the directory holding the sequence videos.
func (c *ToolConfig) GetVideoDir() string {
	if c.VideoDir == nil {
		return ""
	}
	return *c.VideoDir
}

// GetLightsDir returns the root of the curated traffic-light label tree.
func (c *ToolConfig) GetLightsDir() string {
	if c.LightsDir == nil {
		return ""
	}
	return *c.LightsDir
}
