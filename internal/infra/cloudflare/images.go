package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/matCzelusniak/facefusion/internal/domain/entity"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

type apiError struct {
	Message string `json:"message"`
}

func errorMessage(errs []apiError) string {
	if len(errs) > 0 && errs[0].Message != "" {
		return errs[0].Message
	}
	return "Unknown error"
}

// ImagesClient uploads image artifacts to Cloudflare Images.
type ImagesClient struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *zap.Logger
}

type ImagesConfig struct {
	AccountID string
	APIToken  string
	// BaseURL overrides the Cloudflare API root, for tests.
	BaseURL string
}

func NewImagesClient(cfg ImagesConfig, logger *zap.Logger) *ImagesClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &ImagesClient{
		endpoint: fmt.Sprintf("%s/accounts/%s/images/v1", base, cfg.AccountID),
		token:    cfg.APIToken,
		client:   &http.Client{Timeout: 5 * time.Minute},
		logger:   logger,
	}
}

type imagesResponse struct {
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
	Result  struct {
		ID       string   `json:"id"`
		Variants []string `json:"variants"`
	} `json:"result"`
}

// UploadImage streams the artifact at path as a single multipart POST. The
// uploaded file is named {jobId}.webp with a fixed image/webp content type.
func (c *ImagesClient) UploadImage(ctx context.Context, filePath, jobID string) (*entity.UploadResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s.webp"`, jobID))
		header.Set("Content-Type", "image/webp")

		part, err := form.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, pr)
	if err != nil {
		return nil, fmt.Errorf("build image upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", form.FormDataContentType())

	c.logger.Info("uploading image to Cloudflare Images", zap.String("job_id", jobID))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	var body imagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode image upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !body.Success {
		return nil, fmt.Errorf("failed to upload image: %s", errorMessage(body.Errors))
	}
	if body.Result.ID == "" || len(body.Result.Variants) == 0 {
		return nil, fmt.Errorf("failed to upload image: response missing id or variant URL")
	}

	return &entity.UploadResult{
		ID:  body.Result.ID,
		URL: body.Result.Variants[0],
	}, nil
}
