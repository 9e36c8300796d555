package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("RIFF"), 0o600))
	return p
}

func TestCheckFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	assert.NoError(t, CheckFile(writeFile(t, dir, "in.mp3")))
	assert.ErrorIs(t, CheckFile(filepath.Join(dir, "missing.wav")), ErrFileNotFound)
	assert.ErrorIs(t, CheckFile(dir), ErrFileNotFound)
}

func TestPrepare_BuildsFFmpegArgs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeFile(t, dir, "in.mp3")

	p := NewPreprocessor(Config{FFmpegPath: "/opt/ffmpeg", TempDir: dir})
	var gotName string
	var gotArgs []string
	p.run = func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return os.WriteFile(args[len(args)-1], []byte("wav"), 0o600)
	}

	out, cleanup, err := p.Prepare(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "/opt/ffmpeg", gotName)
	assert.Equal(t, []string{"-y", "-i", in, "-ac", "1", "-ar", "16000", "-vn", out}, gotArgs)
	assert.Equal(t, dir, filepath.Dir(out))
	assert.True(t, strings.HasSuffix(out, ".proc.wav"))
	assert.FileExists(t, out)

	cleanup()
	assert.NoFileExists(t, out)
	cleanup()
}

func TestPrepare_KeepProcessed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeFile(t, dir, "in.wav")

	p := NewPreprocessor(Config{TempDir: dir, KeepProcessed: true, SampleRate: 8000, Channels: 2})
	var gotArgs []string
	p.run = func(_ context.Context, _ string, args ...string) error {
		gotArgs = args
		return os.WriteFile(args[len(args)-1], []byte("wav"), 0o600)
	}

	out, cleanup, err := p.Prepare(context.Background(), in)
	require.NoError(t, err)
	cleanup()
	assert.FileExists(t, out)
	assert.Contains(t, strings.Join(gotArgs, " "), "-ac 2 -ar 8000")
}

func TestPrepare_MissingInput(t *testing.T) {
	t.Parallel()
	p := NewPreprocessor(Config{TempDir: t.TempDir()})
	p.run = func(context.Context, string, ...string) error {
		t.Fatal("ffmpeg should not run")
		return nil
	}

	_, cleanup, err := p.Prepare(context.Background(), "/does/not/exist.wav")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.NotNil(t, cleanup)
	cleanup()
}

func TestPrepare_FFmpegFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	in := writeFile(t, dir, "in.wav")

	p := NewPreprocessor(Config{TempDir: dir})
	var out string
	p.run = func(_ context.Context, _ string, args ...string) error {
		out = args[len(args)-1]
		_ = os.WriteFile(out, []byte("partial"), 0o600)
		return errors.New("exit status 1: Invalid data found when processing input")
	}

	_, _, err := p.Prepare(context.Background(), in)
	require.ErrorIs(t, err, ErrPreprocess)
	var pe *PreprocessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "exit status 1: Invalid data found when processing input", pe.Cause.Error())
	assert.Contains(t, err.Error(), "Invalid data found")
	assert.NoFileExists(t, out)
}

func TestLastLine(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "b", lastLine("a\nb\n"))
	assert.Empty(t, lastLine(""))
}

func writeWAV(t *testing.T, path string, rate, samples int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           make([]int, samples),
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestDuration(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeWAV(t, path, 16000, 32000)

	d, err := Duration(path)
	require.NoError(t, err)
	assert.InDelta(t, float64(2*time.Second), float64(d), float64(10*time.Millisecond))
}

func TestDuration_Invalid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := Duration(writeFile(t, dir, "junk.wav"))
	assert.Error(t, err)

	_, err = Duration(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)
}

func TestPrepare_RealFFmpeg(t *testing.T) {
	p := NewPreprocessor(Config{TempDir: t.TempDir()})
	if !p.Available() {
		t.Skip("ffmpeg not installed")
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "in.wav")
	writeWAV(t, in, 44100, 44100)

	out, cleanup, err := p.Prepare(context.Background(), in)
	require.NoError(t, err)
	defer cleanup()

	d, err := Duration(out)
	require.NoError(t, err)
	assert.InDelta(t, float64(time.Second), float64(d), float64(50*time.Millisecond))
}
