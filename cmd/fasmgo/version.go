package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fasmgo/engine"
	"fasmgo/internal/version"
)

// versionPayload is both the json document and the source of the pretty
// listing. Optional build fields stay empty unless asked for.
type versionPayload struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	Engine      string `json:"engine,omitempty"`
	EngineError string `json:"engine_error,omitempty"`
	GitCommit   string `json:"git_commit,omitempty"`
	GitMessage  string `json:"git_message,omitempty"`
	BuildDate   string `json:"build_date,omitempty"`
}

type versionFlags struct {
	format   string
	hash     bool
	message  bool
	date     bool
	full     bool
	noEngine bool
	engine   string
	fasm     string
}

func newVersionCmd() *cobra.Command {
	var vf versionFlags
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show fasmgo and assembler versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd.OutOrStdout(), vf)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&vf.format, "format", "pretty", "pretty or json")
	fl.BoolVar(&vf.hash, "hash", false, "print the git commit")
	fl.BoolVar(&vf.message, "message", false, "print the git commit subject")
	fl.BoolVar(&vf.date, "date", false, "print the build date")
	fl.BoolVar(&vf.full, "full", false, "same as --hash --message --date")
	fl.BoolVar(&vf.noEngine, "no-engine", false, "skip asking the assembler for its version")
	fl.StringVar(&vf.engine, "engine", "auto", "assembler backend (auto|native|exec)")
	fl.StringVar(&vf.fasm, "fasm", "", "fasm binary for the exec backend")
	return cmd
}

func runVersion(out io.Writer, vf versionFlags) error {
	format := strings.ToLower(strings.TrimSpace(vf.format))
	if format != "pretty" && format != "json" {
		return fmt.Errorf("--format: want pretty or json, got %q", vf.format)
	}

	p := versionPayload{Tool: "fasmgo", Version: strings.TrimSpace(version.Version)}
	if p.Version == "" {
		p.Version = "dev"
	}
	if vf.hash || vf.full {
		p.GitCommit = orUnknown(version.GitCommit)
	}
	if vf.message || vf.full {
		p.GitMessage = orUnknown(version.GitMessage)
	}
	if vf.date || vf.full {
		p.BuildDate = orUnknown(version.BuildDate)
	}
	if !vf.noEngine {
		kind, err := engine.ParseKind(vf.engine)
		if err != nil {
			return err
		}
		if eng, err := openEngine(kind, vf.fasm); err != nil {
			p.EngineError = err.Error()
		} else {
			p.Engine = engine.QueryVersion(eng).String()
		}
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	printVersion(out, p, !vf.noEngine)
	return nil
}

func printVersion(out io.Writer, p versionPayload, withEngine bool) {
	fmt.Fprintf(out, "fasmgo %s\n", version.Colored())
	if withEngine {
		asm := p.Engine
		if asm == "" {
			asm = "unavailable (" + p.EngineError + ")"
		}
		fmt.Fprintf(out, "flat assembler: %s\n", asm)
	}
	for _, row := range [...]struct{ label, value string }{
		{"commit", p.GitCommit},
		{"message", p.GitMessage},
		{"built", p.BuildDate},
	} {
		if row.value != "" {
			fmt.Fprintf(out, "%-8s %s\n", row.label+":", row.value)
		}
	}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
