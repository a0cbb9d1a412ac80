package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/pkg/metrics"
	"go.uber.org/zap"
)

const defaultBufferSize = 16

// Snapshotter supplies the current job state for the synthetic connected
// event sent to late joiners.
type Snapshotter interface {
	Snapshot(jobID uuid.UUID) (processed, total int, ok bool)
}

// Subscription is one live progress stream. Events arrives in per-channel
// FIFO order; the channel is closed on unsubscribe or when the hub prunes a
// subscriber that stopped draining.
type Subscription struct {
	JobID  uuid.UUID
	Events <-chan Event

	ch chan Event
}

// Hub fans progress events out to every live subscriber of a job.
//
// Delivery is best-effort: there is no durability and no replay, and a
// subscriber whose buffer is full is pruned in an explicit post-publish step
// rather than blocking the publisher.
type Hub struct {
	bufferSize int
	snapshots  Snapshotter
	log        *zap.SugaredLogger

	mu   sync.Mutex
	subs map[uuid.UUID]map[*Subscription]struct{}
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBufferSize sets the per-subscriber channel depth.
func WithBufferSize(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithSnapshotter wires the source of join-time job snapshots.
func WithSnapshotter(s Snapshotter) HubOption {
	return func(h *Hub) {
		h.snapshots = s
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		bufferSize: defaultBufferSize,
		log:        zap.S().Named("events"),
		subs:       make(map[uuid.UUID]map[*Subscription]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Subscribe registers a new progress stream for jobID. The connected
// snapshot event is queued before the subscription is returned, so it always
// precedes any later progress event on the channel.
func (h *Hub) Subscribe(jobID uuid.UUID) *Subscription {
	sub := &Subscription{
		JobID: jobID,
		ch:    make(chan Event, h.bufferSize),
	}
	sub.Events = sub.ch

	connected := Event{
		Type:      EventConnected,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
	}
	if h.snapshots != nil {
		if processed, total, ok := h.snapshots.Snapshot(jobID); ok {
			connected.Processed = processed
			connected.Total = total
			if total > 0 {
				connected.Percent = float64(processed) / float64(total) * 100
			}
		}
	}

	// Enqueue the snapshot before the subscription becomes visible to
	// Publish: the buffer holds at least one event and no other goroutine
	// owns the channel yet, so the send never blocks and the connected
	// event is always first.
	sub.ch <- connected

	h.mu.Lock()
	set, ok := h.subs[jobID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[jobID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// for subscriptions the hub already pruned.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	h.remove(sub)
	h.mu.Unlock()
}

// Publish delivers the event to every currently registered subscriber of
// the job. Subscribers that cannot accept the event are pruned.
func (h *Hub) Publish(jobID uuid.UUID, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.JobID = jobID

	h.mu.Lock()
	defer h.mu.Unlock()

	var stale []*Subscription
	for sub := range h.subs[jobID] {
		select {
		case sub.ch <- event:
			metrics.IncreaseEventsMetric("delivered")
		default:
			stale = append(stale, sub)
		}
	}

	for _, sub := range stale {
		h.log.Debugw("pruning slow subscriber", "job_id", jobID)
		metrics.IncreaseEventsMetric("dropped")
		h.remove(sub)
	}
}

// SubscriberCount returns the number of live subscribers for a job.
func (h *Hub) SubscriberCount(jobID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[jobID])
}

// Close drops every subscription, closing all channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for sub := range set {
			close(sub.ch)
			delete(set, sub)
		}
	}
	h.subs = make(map[uuid.UUID]map[*Subscription]struct{})
}

// remove must be called with h.mu held.
func (h *Hub) remove(sub *Subscription) {
	set, ok := h.subs[sub.JobID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.JobID)
	}
}
