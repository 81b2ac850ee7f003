package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clipshare/internal/logging"
	"clipshare/internal/queue"
)

// Repairer is the repair surface the handler needs. IntegrityService
// implements it; tests use a fake.
type Repairer interface {
	SweepOrphans(ctx context.Context, limit int) (int, error)
	ReconcileRoot(ctx context.Context, rootID int64) (bool, error)
	ReconcilePostCommentCount(ctx context.Context, postID int64) error
	ReconcileFollowCounts(ctx context.Context, userIDs ...int64) error
}

// EventOrphanSweepLimit bounds the sweep triggered by a single event.
const EventOrphanSweepLimit = 100

// Handler processes integrity events from the queue.
type Handler struct {
	repair Repairer
	logger *zap.Logger
}

func NewHandler(repair Repairer, logger *zap.Logger) *Handler {
	return &Handler{repair: repair, logger: logging.OrNop(logger).Named("worker")}
}

// HandleEvent routes an event by type. Every handler recomputes from the
// database, so redelivery is harmless.
func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	start := time.Now()
	var err error

	switch event.Type {
	case queue.EventCommentSubtreeDeleted:
		err = h.handleSubtreeDeleted(ctx, event)
	case queue.EventFollowChanged:
		err = h.repair.ReconcileFollowCounts(ctx, event.FollowerID, event.FolloweeID)
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		return fmt.Errorf("handle %s: %w", event.Type, err)
	}
	h.logger.Debug("event handled", zap.String("type", event.Type), zap.Duration("took", time.Since(start)))
	return nil
}

// handleSubtreeDeleted removes replies that raced the cascade, then fixes
// the counter that tracked the deleted comment.
func (h *Handler) handleSubtreeDeleted(ctx context.Context, event queue.Event) error {
	if _, err := h.repair.SweepOrphans(ctx, EventOrphanSweepLimit); err != nil {
		return err
	}
	if event.RootID != nil {
		_, err := h.repair.ReconcileRoot(ctx, *event.RootID)
		return err
	}
	return h.repair.ReconcilePostCommentCount(ctx, event.PostID)
}
