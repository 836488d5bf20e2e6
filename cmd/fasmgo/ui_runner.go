package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"fasmgo/internal/buildpipeline"
	"fasmgo/internal/ui"
)

type uiMode uint8

const (
	uiModeAuto uiMode = iota
	uiModeOn
	uiModeOff
)

var uiModes = map[string]uiMode{
	"":     uiModeAuto,
	"auto": uiModeAuto,
	"on":   uiModeOn,
	"off":  uiModeOff,
}

func readUIMode(value string) (uiMode, error) {
	mode, ok := uiModes[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return uiModeAuto, fmt.Errorf("--ui: want auto, on or off, got %q", value)
	}
	return mode, nil
}

// shouldUseTUI: в auto режиме прогресс нужен только для нескольких задач
// на терминале.
func shouldUseTUI(mode uiMode, quiet bool, jobs int) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	if quiet || jobs < 2 {
		return false
	}
	return isTerminal(os.Stderr)
}

// runBuildWithUI runs the batch in the background while a progress view
// owns the terminal. The view quits once the event channel closes.
func runBuildWithUI(ctx context.Context, title string, names []string, req *buildpipeline.Request) (buildpipeline.Result, error) {
	events := make(chan buildpipeline.Event, 256)
	withSink := *req
	withSink.Progress = buildpipeline.ChannelSink{Ch: events}

	var (
		res      buildpipeline.Result
		buildErr error
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		defer close(events)
		res, buildErr = buildpipeline.Build(ctx, &withSink)
	}()

	_, viewErr := tea.NewProgram(ui.NewProgressModel(title, names, events), tea.WithOutput(os.Stderr)).Run()
	// вид мог закрыться раньше сборки
	for range events {
	}
	<-done
	return res, cmp.Or(viewErr, buildErr)
}
