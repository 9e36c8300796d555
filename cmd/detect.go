package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	detectGroundTruth  string
	detectNoPreprocess bool
	detectFormat       string
)

var detectCmd = &cobra.Command{
	Use:   "detect <audio-file>",
	Short: "Detect the spoken language of one audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, err := outputFormat(detectFormat, os.Stdout)
		if err != nil {
			return err
		}

		env, err := initDetect("detect", !detectNoPreprocess)
		if err != nil {
			return err
		}

		resp, err := env.Detector.detect(ctx, args[0], detectGroundTruth)
		if err != nil {
			return eris.Wrap(err, "detect")
		}

		return writeResponse(cmd.OutOrStdout(), format, resp)
	},
}

// outputFormat resolves "auto" to table on a terminal and json otherwise.
func outputFormat(flag string, out *os.File) (string, error) {
	switch flag {
	case "json", "table":
		return flag, nil
	case "", "auto":
		fd := out.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return "table", nil
		}
		return "json", nil
	}
	return "", eris.Errorf("unknown output format %q (want auto, json or table)", flag)
}

func writeResponse(w io.Writer, format string, resp *detectResponse) error {
	if format == "table" {
		renderRound(w, resp)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func init() {
	detectCmd.Flags().StringVar(&detectGroundTruth, "ground-truth", "", "expected language, reported alongside the result")
	detectCmd.Flags().BoolVar(&detectNoPreprocess, "no-preprocess", false, "skip ffmpeg conversion and use the file as-is")
	detectCmd.Flags().StringVar(&detectFormat, "format", "auto", "output format: auto, json or table")
	rootCmd.AddCommand(detectCmd)
}
