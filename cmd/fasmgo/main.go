package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fasmgo/internal/version"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fasmgo",
		Short: "Flat assembler front end",
		Long:  `fasmgo assembles x86 sources with the flat assembler and reports failures against the caller's lines`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupCommand(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			teardownCommand()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
	}

	rootCmd.AddCommand(newAsmCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log what the tool is doing")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().String("trace", "", "write trace events to a file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|call|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept in ring mode")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit heartbeat events at this interval")
	return rootCmd
}

// main executes the root command. Any error exits with status 1.
func main() {
	err := newRootCmd().Execute()
	// PersistentPostRun не вызывается при ошибке
	teardownCommand()
	if err != nil {
		if !isReported(err) {
			logError(err)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
