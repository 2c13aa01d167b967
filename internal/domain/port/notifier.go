package port

import (
	"context"

	"github.com/matCzelusniak/facefusion/internal/domain/entity"
)

// Notifier delivers the terminal job outcome to the caller's callback.
// Delivery is best-effort and single-attempt; callers log the returned
// error and move on.
type Notifier interface {
	Notify(ctx context.Context, n entity.Notification) error
}
