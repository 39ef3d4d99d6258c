package services

import (
	"context"

	"github.com/google/uuid"

	redisclient "github.com/uxlens/uxlens-backend/internal/clients/redis"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
	"github.com/uxlens/uxlens-backend/internal/sse"
)

// SessionNotifier pushes pipeline lifecycle events to the owner's SSE
// channel. With a redis bus configured, events are also published across
// replicas; without one, only locally connected clients hear them.
type SessionNotifier interface {
	SessionProgress(ctx context.Context, ownerUserID, sessionID uuid.UUID, stage string)
	SessionCompleted(ctx context.Context, ownerUserID, sessionID, resultID uuid.UUID)
	SessionFailed(ctx context.Context, ownerUserID, sessionID uuid.UUID, stage, errorMessage string)
}

type sessionNotifier struct {
	log *logger.Logger
	hub *sse.SSEHub
	bus redisclient.SSEBus
}

// NewSessionNotifier builds a notifier. bus may be nil for single-replica
// deployments.
func NewSessionNotifier(log *logger.Logger, hub *sse.SSEHub, bus redisclient.SSEBus) SessionNotifier {
	return &sessionNotifier{
		log: log.With("service", "SessionNotifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *sessionNotifier) SessionProgress(ctx context.Context, ownerUserID, sessionID uuid.UUID, stage string) {
	n.emit(ctx, sse.SSEMessage{
		Channel: ownerUserID.String(),
		Event:   sse.SSEEventSessionProgress,
		Data: map[string]any{
			"session_id": sessionID,
			"stage":      stage,
		},
	})
}

func (n *sessionNotifier) SessionCompleted(ctx context.Context, ownerUserID, sessionID, resultID uuid.UUID) {
	n.emit(ctx, sse.SSEMessage{
		Channel: ownerUserID.String(),
		Event:   sse.SSEEventSessionCompleted,
		Data: map[string]any{
			"session_id": sessionID,
			"result_id":  resultID,
		},
	})
}

func (n *sessionNotifier) SessionFailed(ctx context.Context, ownerUserID, sessionID uuid.UUID, stage, errorMessage string) {
	n.emit(ctx, sse.SSEMessage{
		Channel: ownerUserID.String(),
		Event:   sse.SSEEventSessionFailed,
		Data: map[string]any{
			"session_id": sessionID,
			"stage":      stage,
			"error":      errorMessage,
		},
	})
}

func (n *sessionNotifier) emit(ctx context.Context, msg sse.SSEMessage) {
	if n.hub != nil {
		n.hub.Broadcast(msg)
	}
	if n.bus != nil {
		if err := n.bus.Publish(ctx, msg); err != nil {
			n.log.Warn("failed to publish SSE message to bus", "event", msg.Event, "error", err)
		}
	}
}
