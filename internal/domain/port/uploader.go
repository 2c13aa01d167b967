package port

import (
	"context"

	"github.com/matCzelusniak/facefusion/internal/domain/entity"
)

// ArtifactUploader pushes a finished artifact to remote storage and returns
// its remote id plus a retrievable URL. Implementations stream from the
// given path rather than buffering the file.
type ArtifactUploader interface {
	UploadImage(ctx context.Context, path, jobID string) (*entity.UploadResult, error)
	UploadVideo(ctx context.Context, path, jobID, ext string) (*entity.UploadResult, error)
}
