package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"fasmgo/engine"
	"fasmgo/internal/buildpipeline"
	"fasmgo/internal/diagfmt"
	"fasmgo/internal/driver"
	"fasmgo/internal/trace"
	"fasmgo/internal/version"
)

func newAsmCmd() *cobra.Command {
	var opts asmFlags
	cmd := &cobra.Command{
		Use:   "asm [flags] [files...]",
		Short: "Assemble source files",
		Long: `Assemble source files into flat binary code.

Files are joined into one source in the given order. With --each every file
is assembled on its own. Use "-" to read the source from stdin and -e to pass
lines on the command line. Without inputs the sources of fasmgo.toml are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsm(cmd, args, &opts)
		},
	}
	cmd.Flags().BoolVar(&opts.each, "each", false, "assemble every file separately")
	cmd.Flags().StringVar(&opts.format, "format", "auto", "output format (auto|bin|hex|json|msgpack)")
	cmd.Flags().StringVar(&opts.origin, "origin", "", "load address (decimal, 0x.. or ..h)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (a directory with --each)")
	cmd.Flags().StringVar(&opts.engine, "engine", "auto", "assembler backend (auto|native|exec)")
	cmd.Flags().StringVar(&opts.fasmPath, "fasm", "", "fasm binary for the exec backend")
	cmd.Flags().IntVar(&opts.memory, "memory", 0, "initial work memory in bytes")
	cmd.Flags().IntVar(&opts.maxGrowth, "max-growth", 0, "how many times work memory may double")
	cmd.Flags().IntVar(&opts.passes, "passes", 0, "maximum assembler passes")
	cmd.Flags().StringVar(&opts.ui, "ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().StringArrayVarP(&opts.text, "expr", "e", nil, "source line (repeatable)")
	cmd.Flags().IntVarP(&opts.parallel, "jobs", "j", 0, "max parallel jobs (0=auto)")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "stop after the first failed job")
	cmd.Flags().StringVar(&opts.manifest, "project", ".", "directory to search for fasmgo.toml")
	return cmd
}

// outputFormat is the rendering of successful jobs.
type outputFormat string

const (
	formatBin     outputFormat = "bin"
	formatHex     outputFormat = "hex"
	formatJSON    outputFormat = "json"
	formatMsgpack outputFormat = "msgpack"
)

// parseOutputFormat resolves "auto": raw bytes into a file or pipe, hex on
// a terminal.
func parseOutputFormat(s string, toTerminal bool) (outputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		if toTerminal {
			return formatHex, nil
		}
		return formatBin, nil
	case "bin", "binary":
		return formatBin, nil
	case "hex":
		return formatHex, nil
	case "json":
		return formatJSON, nil
	case "msgpack", "mp":
		return formatMsgpack, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected auto|bin|hex|json|msgpack)", s)
	}
}

func runAsm(cmd *cobra.Command, args []string, f *asmFlags) error {
	settings, err := resolveSettings(cmd, f)
	if err != nil {
		return err
	}
	toTerminal := settings.Output == "" && isTerminal(os.Stdout)
	format, err := parseOutputFormat(f.format, toTerminal)
	if err != nil {
		return err
	}
	uiMode, err := readUIMode(f.ui)
	if err != nil {
		return err
	}

	jobs, err := buildJobs(args, f, settings.Sources, cmd.InOrStdin())
	if err != nil {
		return err
	}
	for i := range jobs {
		jobs[i].Origin, jobs[i].HasOrigin = settings.Origin, settings.HasOrigin
	}

	eng, err := openEngine(settings.Engine, settings.ExecPath)
	if err != nil {
		return fmt.Errorf("cannot open assembler: %w", err)
	}
	engineVersion := engine.QueryVersion(eng)
	log.Debug("engine ready", "kind", settings.Engine, "version", engineVersion.String())

	flags := cmd.Root().PersistentFlags()
	showTimings, _ := flags.GetBool("timings")
	maxDiagnostics, _ := flags.GetInt("max-diagnostics")
	quiet, _ := flags.GetBool("quiet")
	useColor, _ := resolveColor(mustString(flags, "color"))

	req := &buildpipeline.Request{
		Jobs: jobs,
		Options: driver.Options{
			Engine:        eng,
			MemorySize:    settings.MemorySize,
			MaxGrowth:     settings.MaxGrowth,
			Passes:        settings.Passes,
			Tracer:        trace.FromContext(cmd.Context()),
			EnableTimings: showTimings || format == formatJSON || format == formatMsgpack,
		},
		Parallel:       f.parallel,
		FailFast:       f.failFast,
		MaxDiagnostics: maxDiagnostics,
	}

	var res buildpipeline.Result
	if shouldUseTUI(uiMode, quiet, len(jobs)) {
		res, err = runBuildWithUI(cmd.Context(), "assembling", buildpipeline.Names(jobs), req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	switch format {
	case formatJSON, formatMsgpack:
		doc := artifactsDocument(res, engineVersion.String(), maxDiagnostics)
		if err := writeDocument(cmd.OutOrStdout(), settings.Output, format, doc); err != nil {
			return err
		}
	default:
		if err := writeCode(cmd.OutOrStdout(), settings.Output, format, f.each, res); err != nil {
			return err
		}
		if res.Bag != nil && res.Bag.Len() > 0 {
			diagfmt.Pretty(errOut, res.Bag, diagfmt.PrettyOpts{
				Color:     useColor,
				PathMode:  diagfmt.PathModeAuto,
				ShowNotes: true,
				Source:    "<input>",
			})
		}
	}

	if showTimings {
		if verbose, _ := flags.GetBool("verbose"); verbose {
			printJobTimings(errOut, res.Jobs)
		}
		printStageTimings(errOut, res.Timings)
	}
	if res.Failed > 0 {
		dumpRing(cmd)
		if !quiet && len(jobs) > 1 {
			fmt.Fprintf(errOut, "%d of %d job(s) failed, %d skipped\n", res.Failed, len(jobs), res.Skipped)
		}
		return fmt.Errorf("%w: assembly failed", errReported)
	}
	return nil
}

// buildJobs turns the inputs into batch jobs. Inline lines and stdin come
// before the files; with --each they form a job of their own.
func buildJobs(args []string, f *asmFlags, manifestSources []string, stdin io.Reader) ([]buildpipeline.Job, error) {
	var text strings.Builder
	if len(f.text) > 0 {
		text.WriteString(strings.Join(f.text, "\n"))
	}
	var files []string
	for _, arg := range args {
		if arg != "-" {
			files = append(files, arg)
			continue
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.Write(bytes.TrimRight(data, "\r\n"))
	}
	if len(files) == 0 && text.Len() == 0 {
		files = manifestSources
	}
	if len(files) == 0 && text.Len() == 0 {
		return nil, errors.New("nothing to assemble: pass files, -e lines or create fasmgo.toml")
	}

	if !f.each {
		name := "<input>"
		if len(files) > 0 {
			name = files[0]
		}
		return []buildpipeline.Job{{Name: name, Text: text.String(), Files: files}}, nil
	}
	var jobs []buildpipeline.Job
	if text.Len() > 0 {
		jobs = append(jobs, buildpipeline.Job{Name: "<input>", Text: text.String()})
	}
	for _, file := range files {
		jobs = append(jobs, buildpipeline.Job{Name: file, Files: []string{file}})
	}
	return jobs, nil
}

func artifactsDocument(res buildpipeline.Result, engineVersion string, maxDiagnostics int) diagfmt.ArtifactsOutput {
	doc := diagfmt.ArtifactsOutput{Tool: "fasmgo " + version.Version, Engine: engineVersion}
	opts := diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: true, IncludeSource: true, Max: maxDiagnostics}
	for _, job := range res.Jobs {
		if job.Skipped || job.Result == nil {
			doc.Artifacts = append(doc.Artifacts, diagfmt.Artifact{Name: job.Name})
			continue
		}
		r := job.Result
		a := diagfmt.NewArtifact(job.Name, r.Output, r.Failure, opts)
		a.Attempts = r.Attempts
		a.RegionSize = r.Size
		for _, st := range r.States {
			a.States = append(a.States, st.String())
		}
		if len(r.Timings.Stages) > 0 {
			timings := r.Timings
			a.Timings = &timings
		}
		doc.Artifacts = append(doc.Artifacts, a)
	}
	if res.Bag != nil && res.Bag.Len() > 0 {
		summary := diagfmt.BuildDiagnosticsOutput(res.Bag, opts)
		doc.Summary = &summary
	}
	return doc
}

func writeDocument(stdout io.Writer, output string, format outputFormat, doc diagfmt.ArtifactsOutput) error {
	return withOutput(stdout, output, func(w io.Writer) error {
		if format == formatMsgpack {
			return diagfmt.WriteMsgpack(w, doc)
		}
		return diagfmt.WriteJSON(w, doc)
	})
}

// writeCode writes the code of successful jobs. With --each and an output
// path, the path is a directory receiving one .bin per job.
func writeCode(stdout io.Writer, output string, format outputFormat, each bool, res buildpipeline.Result) error {
	var ok []buildpipeline.JobResult
	for _, job := range res.Jobs {
		if job.Result != nil && job.Result.Failure == nil {
			ok = append(ok, job)
		}
	}
	if len(ok) == 0 {
		return nil
	}
	if each && output != "" && format == formatBin {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return err
		}
		for _, job := range ok {
			path := filepath.Join(output, binaryName(job.Name))
			if err := os.WriteFile(path, job.Result.Output, 0o644); err != nil {
				return err
			}
			log.Debug("wrote", "path", path, "bytes", len(job.Result.Output))
		}
		return nil
	}
	return withOutput(stdout, output, func(w io.Writer) error {
		for _, job := range ok {
			var err error
			switch {
			case format == formatBin:
				_, err = w.Write(job.Result.Output)
			case len(res.Jobs) > 1:
				_, err = fmt.Fprintf(w, "%s: % X\n", job.Name, job.Result.Output)
			default:
				_, err = fmt.Fprintf(w, "% X\n", job.Result.Output)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// binaryName maps a source name to its output file name.
func binaryName(name string) string {
	base := filepath.Base(name)
	if base == "<input>" || base == "." || base == string(filepath.Separator) {
		return "input.bin"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".bin"
}

func withOutput(stdout io.Writer, output string, write func(io.Writer) error) error {
	if output == "" || output == "-" {
		return write(stdout)
	}
	file, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func mustString(flags interface{ GetString(string) (string, error) }, name string) string {
	v, _ := flags.GetString(name)
	return v
}
