package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/matCzelusniak/facefusion/internal/domain/entity"
	"go.uber.org/zap"
)

// Notifier delivers the terminal job outcome to the configured callback URL
// as a single JSON POST. One attempt, no retries; the job has no other way
// to resume, so a lost notification only surfaces as an absent callback on
// the caller's side.
type Notifier struct {
	callbackURL string
	client      *http.Client
	logger      *zap.Logger
}

func NewNotifier(callbackURL string, logger *zap.Logger) *Notifier {
	return &Notifier{
		callbackURL: callbackURL,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, payload entity.Notification) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error("notification request failed",
			zap.String("job_id", payload.JobID),
			zap.Error(err),
		)
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Error("notification rejected",
			zap.String("job_id", payload.JobID),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("notification failed with status %d", resp.StatusCode)
	}

	n.logger.Info("notification delivered",
		zap.String("job_id", payload.JobID),
		zap.Bool("success", payload.Success),
	)
	return nil
}
