// Package project reads fasmgo.toml, the optional per-directory defaults of
// the command line tool.
package project

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"fasmgo/engine"
	"fasmgo/internal/membuf"
)

// Manifest is a loaded fasmgo.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the file layout. Zero values mean "use the default".
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Memory   MemoryConfig   `toml:"memory"`
	Assemble AssembleConfig `toml:"assemble"`
}

type EngineConfig struct {
	Kind string `toml:"kind"` // auto | native | exec
	Path string `toml:"path"` // fasm binary for exec
}

type MemoryConfig struct {
	Initial   int  `toml:"initial"`
	MaxGrowth *int `toml:"max_growth"`
}

type AssembleConfig struct {
	Passes  int      `toml:"passes"`
	Origin  string   `toml:"origin"`
	Sources []string `toml:"sources"`
	Output  string   `toml:"output"`
}

// Settings are resolved values ready for use.
type Settings struct {
	Engine     engine.Kind
	ExecPath   string
	MemorySize int
	MaxGrowth  int
	Passes     uint16
	Origin     uint64
	HasOrigin  bool
	// Sources and Output are absolute when they come from a manifest.
	Sources []string
	Output  string
}

// Defaults are the settings without a manifest.
func Defaults() Settings {
	return Settings{
		Engine:     engine.KindAuto,
		MemorySize: membuf.DefaultMemorySize,
		MaxGrowth:  membuf.DefaultMaxGrowth,
		Passes:     membuf.DefaultPasses,
	}
}

// LoadManifest finds and parses fasmgo.toml above startDir. ok is false
// when there is none.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

// LoadConfig parses one file and checks its values.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if _, err := engine.ParseKind(cfg.Engine.Kind); err != nil {
		return Config{}, fmt.Errorf("%s: [engine].kind: %w", path, err)
	}
	if cfg.Memory.Initial < 0 {
		return Config{}, fmt.Errorf("%s: [memory].initial must not be negative", path)
	}
	if cfg.Memory.MaxGrowth != nil && *cfg.Memory.MaxGrowth < 0 {
		return Config{}, fmt.Errorf("%s: [memory].max_growth must not be negative", path)
	}
	if cfg.Assemble.Passes < 0 || cfg.Assemble.Passes > 0xFFFF {
		return Config{}, fmt.Errorf("%s: [assemble].passes must be within 1..65535", path)
	}
	if cfg.Assemble.Origin != "" {
		if _, err := ParseOrigin(cfg.Assemble.Origin); err != nil {
			return Config{}, fmt.Errorf("%s: [assemble].origin: %w", path, err)
		}
	}
	return cfg, nil
}

// Settings applies the manifest over Defaults. Relative paths are resolved
// against the manifest directory.
func (m *Manifest) Settings() Settings {
	s := Defaults()
	if m == nil {
		return s
	}
	cfg := m.Config
	if kind, err := engine.ParseKind(cfg.Engine.Kind); err == nil {
		s.Engine = kind
	}
	if cfg.Engine.Path != "" {
		s.ExecPath = m.resolve(cfg.Engine.Path)
	}
	if cfg.Memory.Initial > 0 {
		s.MemorySize = cfg.Memory.Initial
	}
	if cfg.Memory.MaxGrowth != nil {
		s.MaxGrowth = *cfg.Memory.MaxGrowth
	}
	if cfg.Assemble.Passes > 0 {
		s.Passes = uint16(cfg.Assemble.Passes)
	}
	if origin, err := ParseOrigin(cfg.Assemble.Origin); err == nil && cfg.Assemble.Origin != "" {
		s.Origin, s.HasOrigin = origin, true
	}
	for _, src := range cfg.Assemble.Sources {
		s.Sources = append(s.Sources, m.resolve(src))
	}
	if cfg.Assemble.Output != "" {
		s.Output = m.resolve(cfg.Assemble.Output)
	}
	return s
}

func (m *Manifest) resolve(p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	// имя без слэшей ищется в PATH, не в корне проекта
	if filepath.IsAbs(p) || !strings.ContainsRune(p, filepath.Separator) && filepath.Ext(p) == "" {
		return p
	}
	return filepath.Join(m.Root, p)
}

// ParseOrigin accepts decimal, 0x-prefixed or fasm-style h-suffixed
// addresses.
func ParseOrigin(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if len(lower) > 1 && strings.HasSuffix(lower, "h") {
		return strconv.ParseUint(lower[:len(lower)-1], 16, 64)
	}
	return strconv.ParseUint(lower, 0, 64)
}
