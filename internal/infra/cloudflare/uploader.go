package cloudflare

import (
	"context"

	"github.com/matCzelusniak/facefusion/internal/domain/entity"
)

// Uploader selects the upload strategy by media kind: Images for image
// artifacts, Stream for video.
type Uploader struct {
	images *ImagesClient
	stream *StreamClient
}

func NewUploader(images *ImagesClient, stream *StreamClient) *Uploader {
	return &Uploader{images: images, stream: stream}
}

func (u *Uploader) UploadImage(ctx context.Context, path, jobID string) (*entity.UploadResult, error) {
	return u.images.UploadImage(ctx, path, jobID)
}

func (u *Uploader) UploadVideo(ctx context.Context, path, jobID, ext string) (*entity.UploadResult, error) {
	return u.stream.UploadVideo(ctx, path, jobID, ext)
}
