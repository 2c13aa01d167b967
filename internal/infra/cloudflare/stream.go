package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/eventials/go-tus"
	"github.com/eventials/go-tus/memorystore"
	"github.com/matCzelusniak/facefusion/internal/domain/entity"
	"go.uber.org/zap"
)

// streamChunkSize keeps resumable transfers tolerant of large files and
// flaky connections.
const streamChunkSize = 5 * 1024 * 1024

const defaultRetention = 31 * 24 * time.Hour

// StreamClient uploads video artifacts to Cloudflare Stream over the tus
// resumable protocol.
type StreamClient struct {
	endpoint  string
	token     string
	client    *http.Client
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

type StreamConfig struct {
	AccountID string
	APIToken  string
	// BaseURL overrides the Cloudflare API root, for tests.
	BaseURL string
	// Retention is the scheduled-deletion horizon for uploaded videos.
	// Zero means the 31-day default.
	Retention time.Duration
}

func NewStreamClient(cfg StreamConfig, logger *zap.Logger) *StreamClient {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	return &StreamClient{
		endpoint:  fmt.Sprintf("%s/accounts/%s/stream", base, cfg.AccountID),
		token:     cfg.APIToken,
		client:    &http.Client{Timeout: 10 * time.Minute},
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

type videoDetailsResponse struct {
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
	Result  struct {
		UID      string `json:"uid"`
		Preview  string `json:"preview"`
		Playback struct {
			HLS  string `json:"hls"`
			Dash string `json:"dash"`
		} `json:"playback"`
	} `json:"result"`
}

// UploadVideo uploads the artifact at filePath in resumable chunks, then
// resolves the assigned video id from the upload session's terminal
// location and reads the video's details for its playback URL. Progress
// events are logged only; they never affect completion.
func (c *StreamClient) UploadVideo(ctx context.Context, filePath, jobID, ext string) (*entity.UploadResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	contentType := "video/webm"
	if ext == ".mp4" {
		contentType = "video/mp4"
	}

	metadata := tus.Metadata{
		"name":              jobID + ext,
		"filetype":          contentType,
		"scheduleddeletion": c.now().UTC().Add(c.retention).Format(time.RFC3339),
	}
	fingerprint := fmt.Sprintf("%s-%d-%d", jobID, info.Size(), info.ModTime().UnixNano())
	upload := tus.NewUpload(file, info.Size(), metadata, fingerprint)

	store, err := memorystore.NewMemoryStore()
	if err != nil {
		return nil, fmt.Errorf("create upload store: %w", err)
	}
	defer store.Close()

	header := make(http.Header)
	header.Set("Authorization", "Bearer "+c.token)

	tusClient, err := tus.NewClient(c.endpoint, &tus.Config{
		ChunkSize:  streamChunkSize,
		Resume:     true,
		Store:      store,
		Header:     header,
		HttpClient: c.client,
	})
	if err != nil {
		return nil, fmt.Errorf("create tus client: %w", err)
	}

	uploader, err := tusClient.CreateUpload(upload)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}

	// The session location is assigned at creation time; grab it now so
	// the id survives any store cleanup on completion.
	location, ok := store.Get(fingerprint)
	if !ok || location == "" {
		return nil, fmt.Errorf("failed to upload video: missing upload location")
	}

	progress := make(chan tus.Upload)
	uploader.NotifyUploadProgress(progress)
	go func() {
		for u := range progress {
			c.logger.Debug("video upload progress",
				zap.String("job_id", jobID),
				zap.Int64("percent", u.Progress()),
			)
		}
	}()

	err = uploader.Upload()
	close(progress)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}

	videoID := path.Base(strings.TrimSuffix(location, "/"))
	if videoID == "" || videoID == "." || videoID == "/" {
		return nil, fmt.Errorf("failed to upload video: cannot resolve video id from %q", location)
	}

	c.logger.Info("video uploaded, fetching details",
		zap.String("job_id", jobID),
		zap.String("video_id", videoID),
	)

	details, err := c.videoDetails(ctx, videoID)
	if err != nil {
		return nil, err
	}

	playbackURL := details.Result.Playback.HLS
	if playbackURL == "" {
		playbackURL = details.Result.Preview
	}
	if playbackURL == "" {
		return nil, fmt.Errorf("failed to get video details: no playback URL for %s", videoID)
	}

	return &entity.UploadResult{
		ID:  videoID,
		URL: playbackURL,
	}, nil
}

func (c *StreamClient) videoDetails(ctx context.Context, videoID string) (*videoDetailsResponse, error) {
	url := fmt.Sprintf("%s/%s", c.endpoint, videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build video details request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get video details: %w", err)
	}
	defer resp.Body.Close()

	var body videoDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode video details response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !body.Success {
		return nil, fmt.Errorf("failed to get video details: %s", errorMessage(body.Errors))
	}
	return &body, nil
}
