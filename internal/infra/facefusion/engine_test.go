package facefusion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matCzelusniak/facefusion/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildArgs(t *testing.T) {
	opts := entity.NewOptions(
		entity.Option{Key: "faceSwapperModel", Values: []string{"inswapper_128"}},
		entity.Option{Key: "processors", Values: []string{"face_swapper", "face_enhancer"}},
	)

	args := buildArgs("facefusion.py", "/in/s.png", "/in/t.mp4", "/out/o.webp", opts)

	assert.Equal(t, []string{
		"facefusion.py",
		"run",
		"--execution-providers", "cuda",
		"--source", "/in/s.png",
		"--target", "/in/t.mp4",
		"--output-path", "/out/o.webp",
		"--face-swapper-model", "inswapper_128",
		"--processors", "face_swapper", "face_enhancer",
	}, args)
}

// writeFakeEngine creates a script that stands in for the python
// interpreter, so Run exercises a real child process.
func writeFakeEngine(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "engine.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"+body), 0o755))
	return script
}

func TestRunSuccess(t *testing.T) {
	script := writeFakeEngine(t, "exit 0\n")
	engine := NewEngine(EngineConfig{Python: script, Entrypoint: "facefusion.py", WorkDir: t.TempDir()}, zap.NewNop())

	outcome, err := engine.Run(context.Background(), "/s", "/t", "/o", entity.Options{})
	require.NoError(t, err)
	assert.True(t, outcome.Succeeded())
	assert.Empty(t, outcome.Diagnostics)
}

func TestRunNonZeroExitCapturesStderr(t *testing.T) {
	script := writeFakeEngine(t, "echo 'frame analysis failed' 1>&2\nexit 7\n")
	engine := NewEngine(EngineConfig{Python: script, Entrypoint: "facefusion.py", WorkDir: t.TempDir()}, zap.NewNop())

	outcome, err := engine.Run(context.Background(), "/s", "/t", "/o", entity.Options{})
	require.NoError(t, err, "a non-zero exit is an outcome, not an error")
	assert.Equal(t, 7, outcome.ExitCode)
	assert.Contains(t, outcome.Diagnostics, "frame analysis failed")
}

func TestRunSpawnFailureIsError(t *testing.T) {
	engine := NewEngine(EngineConfig{
		Python:     filepath.Join(t.TempDir(), "missing-binary"),
		Entrypoint: "facefusion.py",
		WorkDir:    t.TempDir(),
	}, zap.NewNop())

	outcome, err := engine.Run(context.Background(), "/s", "/t", "/o", entity.Options{})
	assert.Error(t, err)
	assert.Nil(t, outcome)
}

func TestRunReceivesOptionFlags(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := writeFakeEngine(t, "echo \"$@\" > "+argsFile+"\nexit 0\n")
	engine := NewEngine(EngineConfig{Python: script, Entrypoint: "facefusion.py", WorkDir: dir}, zap.NewNop())

	opts := entity.NewOptions(entity.Option{Key: "pixelBoost", Values: []string{"512x512"}})
	_, err := engine.Run(context.Background(), "/s", "/t", "/o", opts)
	require.NoError(t, err)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(recorded), "--pixel-boost 512x512")
	assert.Contains(t, string(recorded), "--output-path /o")
}
