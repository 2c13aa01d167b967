package port

import (
	"context"

	"github.com/matCzelusniak/facefusion/internal/domain/entity"
)

// Engine drives one external processing run to completion. A returned error
// means the process could not be spawned at all; a non-zero exit comes back
// as a ProcessingOutcome carrying the engine's diagnostics.
type Engine interface {
	Run(ctx context.Context, sourcePath, targetPath, outputPath string, opts entity.Options) (*entity.ProcessingOutcome, error)
}
