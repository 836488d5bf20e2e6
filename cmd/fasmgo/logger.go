package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// errReported marks errors whose details were already printed.
var errReported = errors.New("reported")

func isReported(err error) bool { return errors.Is(err, errReported) }

var cleanupTracing = func() {}

func setupCommand(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	verbose, _ := flags.GetBool("verbose")
	quiet, _ := flags.GetBool("quiet")
	colorMode, _ := flags.GetString("color")

	useColor, err := resolveColor(colorMode)
	if err != nil {
		return err
	}
	initLogger(verbose, quiet, !useColor)
	color.NoColor = !useColor

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	cleanupTracing = cleanup
	return nil
}

func teardownCommand() {
	cleanupTracing()
	cleanupTracing = func() {}
}

func resolveColor(mode string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return isTerminal(os.Stderr) && os.Getenv("NO_COLOR") == "", nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
}

// initLogger настраивает логгер по умолчанию: stderr, префикс, без времени.
func initLogger(verbose, quiet, noColor bool) {
	log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "fasmgo",
	}))
	switch {
	case verbose:
		log.SetLevel(log.DebugLevel)
	case quiet:
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
	log.SetColorProfile(termenv.ANSI256)
	if noColor {
		log.SetColorProfile(termenv.Ascii)
	}
}

func logError(err error) {
	log.Error(err.Error())
}
