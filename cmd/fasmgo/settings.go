package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"fasmgo/engine"
	"fasmgo/internal/project"
)

// openEngine is swapped in tests.
var openEngine = engine.Open

type asmFlags struct {
	each      bool
	format    string
	origin    string
	output    string
	engine    string
	fasmPath  string
	memory    int
	maxGrowth int
	passes    int
	ui        string
	text      []string
	parallel  int
	failFast  bool
	manifest  string
}

// resolveSettings reads fasmgo.toml (if any) and applies the flags the user
// set explicitly on top of it.
func resolveSettings(cmd *cobra.Command, f *asmFlags) (project.Settings, error) {
	m, ok, err := project.LoadManifest(f.manifest)
	if err != nil {
		return project.Settings{}, err
	}
	if ok {
		log.Debug("using manifest", "path", m.Path)
	}
	s := m.Settings()

	flags := cmd.Flags()
	if flags.Changed("engine") {
		kind, err := engine.ParseKind(f.engine)
		if err != nil {
			return s, err
		}
		s.Engine = kind
	}
	if flags.Changed("fasm") {
		s.ExecPath = f.fasmPath
		if !flags.Changed("engine") {
			s.Engine = engine.KindExec
		}
	}
	if flags.Changed("memory") {
		if f.memory <= 0 {
			return s, fmt.Errorf("--memory must be positive, got %d", f.memory)
		}
		s.MemorySize = f.memory
	}
	if flags.Changed("max-growth") {
		if f.maxGrowth < 0 {
			return s, fmt.Errorf("--max-growth must not be negative, got %d", f.maxGrowth)
		}
		s.MaxGrowth = f.maxGrowth
	}
	if flags.Changed("passes") {
		if f.passes < 1 || f.passes > 0xFFFF {
			return s, fmt.Errorf("--passes must be within 1..65535, got %d", f.passes)
		}
		s.Passes = uint16(f.passes)
	}
	if flags.Changed("origin") {
		origin, err := project.ParseOrigin(f.origin)
		if err != nil {
			return s, fmt.Errorf("--origin: %w", err)
		}
		s.Origin, s.HasOrigin = origin, true
	}
	if flags.Changed("output") {
		s.Output = f.output
	}
	return s, nil
}
