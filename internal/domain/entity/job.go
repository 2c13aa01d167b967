package entity

import (
	"path/filepath"
	"strings"
	"time"
)

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// videoExtensions is the closed set of output suffixes classified as video.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".webm": {},
	".avi":  {},
}

// MediaKindForPath classifies an artifact by its file suffix.
func MediaKindForPath(path string) MediaKind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; ok {
		return MediaKindVideo
	}
	return MediaKindImage
}

// Job is one processing request. It lives only in the call stack of the
// background task that drives it; there is no persisted representation.
type Job struct {
	ID         string
	SourcePath string
	TargetPath string
	OutputPath string
	WorkDir    string
	Options    Options
	CreatedAt  time.Time
}

// ProcessingOutcome is the result of one engine invocation. Success is
// defined strictly by exit code; the output file is checked only when the
// artifact is consumed for upload.
type ProcessingOutcome struct {
	ExitCode    int
	Diagnostics string
}

func (o *ProcessingOutcome) Succeeded() bool {
	return o.ExitCode == 0
}

// UploadResult is the remote-storage reference for an uploaded artifact.
// Both fields are populated or the upload reported failure.
type UploadResult struct {
	ID  string
	URL string
}

// Notification is the single terminal webhook message for a job.
type Notification struct {
	JobID         string `json:"jobId"`
	Success       bool   `json:"success"`
	MediaType     string `json:"mediaType,omitempty"`
	CloudflareID  string `json:"cloudflareId,omitempty"`
	CloudflareURL string `json:"cloudflareUrl,omitempty"`
	Error         string `json:"error,omitempty"`
}

// NewSuccessNotification builds the terminal message for a completed job.
func NewSuccessNotification(jobID string, kind MediaKind, upload *UploadResult) Notification {
	return Notification{
		JobID:         jobID,
		Success:       true,
		MediaType:     string(kind),
		CloudflareID:  upload.ID,
		CloudflareURL: upload.URL,
	}
}

// NewFailureNotification builds the terminal message for a failed job.
func NewFailureNotification(jobID string, errMsg string) Notification {
	return Notification{
		JobID:   jobID,
		Success: false,
		Error:   errMsg,
	}
}
