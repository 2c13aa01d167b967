package facefusion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/matCzelusniak/facefusion/internal/domain/entity"
	"go.uber.org/zap"
)

// Engine invokes the external FaceFusion process for one job. The process
// is treated as an opaque black box: the real output is the file it writes
// at the output path, not anything on stdout.
type Engine struct {
	python     string
	entrypoint string
	workDir    string
	logger     *zap.Logger
}

type EngineConfig struct {
	// Python is the interpreter used to launch the engine.
	Python string
	// Entrypoint is the engine script, resolved relative to WorkDir.
	Entrypoint string
	// WorkDir is the engine installation root; the child runs with this
	// as its working directory.
	WorkDir string
}

func NewEngine(cfg EngineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		python:     cfg.Python,
		entrypoint: cfg.Entrypoint,
		workDir:    cfg.WorkDir,
		logger:     logger,
	}
}

// Run launches the engine and blocks until it terminates. A non-zero exit
// comes back as a ProcessingOutcome carrying the accumulated stderr; an
// error return means the process could not be spawned at all.
func (e *Engine) Run(ctx context.Context, sourcePath, targetPath, outputPath string, opts entity.Options) (*entity.ProcessingOutcome, error) {
	args := buildArgs(e.entrypoint, sourcePath, targetPath, outputPath, opts)

	cmd := exec.CommandContext(ctx, e.python, args...)
	cmd.Dir = e.workDir
	cmd.Stdout = io.Discard

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug("starting engine",
		zap.String("python", e.python),
		zap.Strings("args", args),
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn engine: %w", err)
	}

	err := cmd.Wait()
	if err == nil {
		return &entity.ProcessingOutcome{ExitCode: 0}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &entity.ProcessingOutcome{
			ExitCode:    exitErr.ExitCode(),
			Diagnostics: stderr.String(),
		}, nil
	}

	return nil, fmt.Errorf("engine process: %w", err)
}

// buildArgs assembles the fixed invocation prefix followed by the
// flattened option flags.
func buildArgs(entrypoint, sourcePath, targetPath, outputPath string, opts entity.Options) []string {
	args := []string{
		entrypoint,
		"run",
		"--execution-providers", "cuda",
		"--source", sourcePath,
		"--target", targetPath,
		"--output-path", outputPath,
	}
	return append(args, opts.Flags()...)
}
