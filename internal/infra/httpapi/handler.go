package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/matCzelusniak/facefusion/internal/domain/entity"
	"github.com/matCzelusniak/facefusion/internal/usecase"
	"go.uber.org/zap"
)

// maxUploadMemory bounds what ParseMultipartForm keeps in memory before
// spilling parts to disk.
const maxUploadMemory = 32 << 20

// Submitter accepts a validated job and returns its id before processing
// starts.
type Submitter interface {
	Submit(ctx context.Context, req usecase.SubmitRequest) (string, error)
}

// Handler is the thin HTTP boundary: multipart parsing, temp-file
// persistence and response codes. Everything with failure semantics lives
// in the usecase.
type Handler struct {
	uc       Submitter
	workRoot string
	logger   *zap.Logger
}

func NewHandler(uc Submitter, workRoot string, logger *zap.Logger) *Handler {
	return &Handler{uc: uc, workRoot: workRoot, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Process accepts a job submission and acknowledges it before the engine
// runs. 202 with the job id on accept, 400 on validation failure.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	jobID := r.FormValue("jobId")

	var opts entity.Options
	if raw := r.FormValue("options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			// The original API fell back to defaults on a bad options
			// payload rather than rejecting the job.
			h.logger.Warn("ignoring malformed options", zap.Error(err))
			opts = entity.Options{}
		}
	}

	sourceFile, sourceHeader, err := r.FormFile("sourceImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing required files")
		return
	}
	defer sourceFile.Close()

	targetFile, targetHeader, err := r.FormFile("targetMedia")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing required files")
		return
	}
	defer targetFile.Close()

	workDir := filepath.Join(h.workRoot, fmt.Sprintf("%d_%s", time.Now().UnixMilli(), uuid.NewString()))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		h.logger.Error("create work dir", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist uploads")
		return
	}

	sourcePath, err := saveUpload(workDir, "source", sourceFile, sourceHeader)
	if err == nil {
		var targetPath string
		targetPath, err = saveUpload(workDir, "target", targetFile, targetHeader)
		if err == nil {
			h.submit(w, r, jobID, sourcePath, targetPath, workDir, opts)
			return
		}
	}

	h.logger.Error("persist upload", zap.Error(err))
	os.RemoveAll(workDir)
	writeError(w, http.StatusInternalServerError, "failed to persist uploads")
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, jobID, sourcePath, targetPath, workDir string, opts entity.Options) {
	acceptedID, err := h.uc.Submit(r.Context(), usecase.SubmitRequest{
		JobID:      jobID,
		SourcePath: sourcePath,
		TargetPath: targetPath,
		WorkDir:    workDir,
		Options:    opts,
	})
	if err != nil {
		// No background task was started, so the work dir is ours to
		// clean up.
		os.RemoveAll(workDir)
		if errors.Is(err, usecase.ErrMissingJobID) || errors.Is(err, usecase.ErrMissingInputMedia) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("submit job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Unknown error occurred")
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{Success: true, JobID: acceptedID})
}

// saveUpload persists one multipart file into the job's work dir, keeping
// the client's extension or sniffing one when the filename has none.
func saveUpload(workDir, name string, file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := filepath.Ext(header.Filename)
	if ext == "" {
		mtype, err := mimetype.DetectReader(file)
		if err != nil {
			return "", fmt.Errorf("sniff %s media type: %w", name, err)
		}
		ext = mtype.Extension()
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewind %s upload: %w", name, err)
		}
	}

	dest := filepath.Join(workDir, name+ext)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s file: %w", name, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("write %s file: %w", name, err)
	}
	return dest, nil
}
