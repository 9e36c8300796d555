// Package audio prepares input files for detection: an existence check,
// ffmpeg conversion to 16 kHz mono WAV, and a WAV duration reader.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrFileNotFound is returned when the input path does not name a
	// readable regular file.
	ErrFileNotFound = eris.New("audio: file not found")
	// ErrPreprocess matches every *PreprocessError under errors.Is.
	ErrPreprocess = eris.New("audio: preprocessing failed")
)

// PreprocessError reports an ffmpeg conversion failure. Cause carries the
// converter's own message.
type PreprocessError struct {
	Cause error
}

func (e *PreprocessError) Error() string {
	return "audio: preprocessing failed: " + e.Cause.Error()
}

func (e *PreprocessError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrPreprocess.
func (e *PreprocessError) Is(target error) bool { return target == ErrPreprocess }

// Config controls preprocessing.
type Config struct {
	FFmpegPath    string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	SampleRate    int    `yaml:"sample_rate" mapstructure:"sample_rate"`
	Channels      int    `yaml:"channels" mapstructure:"channels"`
	KeepProcessed bool   `yaml:"keep_processed" mapstructure:"keep_processed"`
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// CheckFile returns ErrFileNotFound unless path is an existing regular file.
func CheckFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return eris.Wrap(ErrFileNotFound, path)
	}
	if !info.Mode().IsRegular() {
		return eris.Wrapf(ErrFileNotFound, "%s is not a regular file", path)
	}
	return nil
}

type runner func(ctx context.Context, name string, args ...string) error

// Preprocessor converts audio with ffmpeg.
type Preprocessor struct {
	cfg Config
	run runner
}

// NewPreprocessor creates a Preprocessor. Zero config fields fall back to
// ffmpeg on PATH, 16 kHz, mono, and the OS temp dir.
func NewPreprocessor(cfg Config) *Preprocessor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Preprocessor{cfg: cfg, run: execRun}
}

// Available reports whether the configured ffmpeg binary can be found.
func (p *Preprocessor) Available() bool {
	_, err := exec.LookPath(p.cfg.FFmpegPath)
	return err == nil
}

// Prepare converts path into a temporary WAV and returns its location with
// a cleanup func. cleanup is always safe to call, including after an error.
func (p *Preprocessor) Prepare(ctx context.Context, path string) (string, func(), error) {
	noop := func() {}
	if err := CheckFile(path); err != nil {
		return "", noop, err
	}

	out := filepath.Join(p.cfg.TempDir, fmt.Sprintf("langid-%s.proc.wav", uuid.NewString()))
	args := []string{
		"-y", "-i", path,
		"-ac", strconv.Itoa(p.cfg.Channels),
		"-ar", strconv.Itoa(p.cfg.SampleRate),
		"-vn", out,
	}

	start := time.Now()
	if err := p.run(ctx, p.cfg.FFmpegPath, args...); err != nil {
		_ = os.Remove(out)
		return "", noop, &PreprocessError{Cause: err}
	}
	zap.L().Debug("audio: preprocessed",
		zap.String("input", path),
		zap.String("output", out),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	cleanup := func() {
		if p.cfg.KeepProcessed {
			return
		}
		if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("audio: remove processed file", zap.String("path", out), zap.Error(err))
		}
	}
	return out, cleanup, nil
}

func execRun(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// Duration returns the playback length of a WAV file.
func Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrap(err, "audio: open wav")
	}
	defer f.Close() //nolint:errcheck

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, eris.Errorf("audio: %s is not a valid wav file", path)
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, eris.Wrap(err, "audio: wav duration")
	}
	return d, nil
}
