package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/aicache/meeting"
)

// modelFlags are the per-call overrides shared by the meeting commands.
type modelFlags struct {
	model       string
	temperature float64
	maxTokens   int
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.model, "model", "", "model name (default from config)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "sampling temperature (default from config)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "completion token limit (default from config)")
}

func (f *modelFlags) options(cmd *cobra.Command) meeting.Options {
	opts := meeting.Options{Model: f.model, MaxTokens: f.maxTokens}
	if cmd.Flags().Changed("temperature") {
		opts.Temperature = meeting.Temperature(f.temperature)
	}
	return opts
}

func newSummarizeCmd(load configLoader) *cobra.Command {
	var flags modelFlags

	cmd := &cobra.Command{
		Use:   "summarize <transcript-file>",
		Short: "Summarize a meeting transcript (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingCmd(cmd, load, args[0], func(ctx context.Context, a *app, transcript string) (any, error) {
				return a.summarizer.Summarize(ctx, transcript, flags.options(cmd))
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newActionItemsCmd(load configLoader) *cobra.Command {
	var flags modelFlags

	cmd := &cobra.Command{
		Use:   "action-items <transcript-file>",
		Short: "Extract action items from a meeting transcript (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingCmd(cmd, load, args[0], func(ctx context.Context, a *app, transcript string) (any, error) {
				return a.extractor.Extract(ctx, transcript, flags.options(cmd))
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func runMeetingCmd(cmd *cobra.Command, load configLoader, path string, run func(context.Context, *app, string) (any, error)) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	// One-shot commands have no scrape endpoint.
	cfg.Observe.Metrics.Enabled = false

	transcript, err := readTranscript(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{logWriter: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = a.Close(shutCtx)
	}()

	result, err := run(ctx, a, transcript)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readTranscript(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}
