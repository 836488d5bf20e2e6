package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fasmgo/internal/trace"
)

type traceFlags struct {
	output    string
	level     string
	mode      string
	ringSize  int
	heartbeat time.Duration
}

func readTraceFlags(cmd *cobra.Command) (traceFlags, error) {
	fs := cmd.Root().PersistentFlags()
	var (
		tf   traceFlags
		errs []error
		err  error
	)
	tf.output, err = fs.GetString("trace")
	errs = append(errs, err)
	tf.level, err = fs.GetString("trace-level")
	errs = append(errs, err)
	tf.mode, err = fs.GetString("trace-mode")
	errs = append(errs, err)
	tf.ringSize, err = fs.GetInt("trace-ring-size")
	errs = append(errs, err)
	tf.heartbeat, err = fs.GetDuration("trace-heartbeat")
	errs = append(errs, err)
	return tf, errors.Join(errs...)
}

// setupTracing puts a tracer built from the --trace* flags into the
// command context. The returned func flushes and closes it.
func setupTracing(cmd *cobra.Command) (func(), error) {
	tf, err := readTraceFlags(cmd)
	if err != nil {
		return nil, err
	}
	level, err := trace.ParseLevel(tf.level)
	if err != nil {
		return nil, fmt.Errorf("--trace-level: %w", err)
	}
	// --trace без уровня включает вызовы
	if level == trace.LevelOff && tf.output != "" {
		level = trace.LevelCall
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	mode, err := trace.ParseMode(tf.mode)
	if err != nil {
		return nil, fmt.Errorf("--trace-mode: %w", err)
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: tf.output,
		RingSize:   tf.ringSize,
		Heartbeat:  tf.heartbeat,
	})
	if err != nil {
		return nil, fmt.Errorf("tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	var hb *trace.Heartbeat
	if tf.heartbeat > 0 {
		hb = trace.StartHeartbeat(tracer, tf.heartbeat)
	}
	errOut := cmd.ErrOrStderr()
	return func() {
		hb.Stop()
		for _, closeFn := range []func() error{tracer.Flush, tracer.Close} {
			if err := closeFn(); err != nil {
				fmt.Fprintf(errOut, "trace: %v\n", err)
			}
		}
	}, nil
}

// dumpRing writes the ring buffer, if the tracer keeps one, after a failed
// run.
func dumpRing(cmd *cobra.Command) {
	tracer := trace.FromContext(cmd.Context())
	ring, ok := trace.Ring(tracer)
	if !ok || ring.Len() == 0 {
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "trace: last events")
	if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
	}
}
