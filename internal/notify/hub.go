// Package notify fans job progress out to connected subscribers. The hub
// never blocks job processing: a subscriber that fails to accept an event is
// dropped.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"subtide/internal/logging"
)

// Event types delivered to subscribers.
const (
	TypeProgress  = "progress"
	TypeHeartbeat = "heartbeat"
)

// Event is one message delivered to every subscriber.
type Event struct {
	Type      string `json:"type"`
	VideoID   string `json:"videoId,omitempty"`
	Progress  int    `json:"progress,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ProgressEvent describes a job checkpoint.
func ProgressEvent(videoID string, progress int) Event {
	return Event{
		Type:      TypeProgress,
		VideoID:   videoID,
		Progress:  progress,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// HeartbeatEvent keeps idle subscriber connections alive.
func HeartbeatEvent() Event {
	return Event{
		Type:      TypeHeartbeat,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Sender delivers events to one subscriber. Send errors mark the subscriber
// dead.
type Sender interface {
	Send(Event) error
}

// Hub tracks subscribers and broadcasts events to all of them.
type Hub struct {
	mu        sync.Mutex
	senders   map[Sender]struct{}
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewHub builds a hub. heartbeat <= 0 disables the periodic heartbeat loop.
func NewHub(heartbeat time.Duration, logger *slog.Logger) *Hub {
	return &Hub{
		senders:   make(map[Sender]struct{}),
		logger:    logging.WithComponent(logger, "notify"),
		heartbeat: heartbeat,
	}
}

// Add registers a subscriber for future broadcasts.
func (h *Hub) Add(sender Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.senders[sender] = struct{}{}
	h.logger.Info("subscriber connected", logging.Int("subscribers", len(h.senders)))
}

// Remove unregisters a subscriber.
func (h *Hub) Remove(sender Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.senders, sender)
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.senders)
}

// Broadcast delivers the event to every subscriber. Failing subscribers are
// removed; delivery to the rest continues.
func (h *Hub) Broadcast(event Event) {
	h.mu.Lock()
	targets := make([]Sender, 0, len(h.senders))
	for sender := range h.senders {
		targets = append(targets, sender)
	}
	h.mu.Unlock()

	for _, sender := range targets {
		if err := sender.Send(event); err != nil {
			h.logger.Warn("dropping subscriber", logging.Error(err))
			h.Remove(sender)
		}
	}
}

// Run emits heartbeat events until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.heartbeat <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Broadcast(HeartbeatEvent())
		}
	}
}
