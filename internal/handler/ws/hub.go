package ws

import (
	"context"
	"encoding/json"
	"sync"

	"KOLStats/internal/domain/models"
	"KOLStats/internal/handler/api"
	xlogger "KOLStats/pkg/logger"
)

// ViewResolver answers a live-view state for a channel.
type ViewResolver interface {
	ResolveView(ctx context.Context, channelID string, v models.ViewState) (*models.Resolution, error)
}

// SubscriberGauge tracks connected live-view clients.
type SubscriberGauge interface {
	SubscriberAdded()
	SubscriberRemoved()
}

// Frame is a server to client message.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	FrameResolution = "resolution"
	FrameError      = "error"
)

// Hub tracks live-view subscribers per channel and pushes fresh resolutions on change.
type Hub struct {
	resolver ViewResolver
	gauge    SubscriberGauge
	l        *xlogger.Logger

	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

func NewHub(r ViewResolver, gauge SubscriberGauge, l *xlogger.Logger) *Hub {
	if l == nil {
		l = xlogger.Nop()
	}
	return &Hub{resolver: r, gauge: gauge, l: l, subs: make(map[string]map[*subscriber]struct{})}
}

type subscriber struct {
	channelID string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	view *models.ViewState
}

func (s *subscriber) setView(v models.ViewState) {
	s.mu.Lock()
	s.view = &v
	s.mu.Unlock()
}

func (s *subscriber) currentView() (models.ViewState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return models.ViewState{}, false
	}
	return *s.view, true
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.done) }) }

func (h *Hub) subscribe(channelID string, buffer int) *subscriber {
	sub := &subscriber{channelID: channelID, send: make(chan []byte, buffer), done: make(chan struct{})}
	h.mu.Lock()
	set, ok := h.subs[channelID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[channelID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()
	if h.gauge != nil {
		h.gauge.SubscriberAdded()
	}
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	set, ok := h.subs[sub.channelID]
	if ok {
		if _, found := set[sub]; found {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, sub.channelID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()
	sub.close()
	if ok && h.gauge != nil {
		h.gauge.SubscriberRemoved()
	}
}

// Subscribers reports the number of live views of channelID.
func (h *Hub) Subscribers(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channelID])
}

// NotifyChannel re-resolves the last view of every subscriber of channelID.
func (h *Hub) NotifyChannel(ctx context.Context, channelID string) {
	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs[channelID]))
	for sub := range h.subs[channelID] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		if v, ok := sub.currentView(); ok {
			h.answer(ctx, sub, v)
		}
	}
}

// answer resolves v and queues the frame for sub.
func (h *Hub) answer(ctx context.Context, sub *subscriber, v models.ViewState) {
	res, err := h.resolver.ResolveView(ctx, sub.channelID, v)
	if err != nil {
		appErr := api.MapError(err)
		if appErr.Status >= 500 {
			h.l.Warn("live view resolve failed", xlogger.String("channel_id", sub.channelID), xlogger.Error(err))
		}
		h.push(sub, Frame{Type: FrameError, Data: appErr})
		return
	}
	h.push(sub, Frame{Type: FrameResolution, Data: res})
}

// push drops the frame when the subscriber's buffer is full.
func (h *Hub) push(sub *subscriber, f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		h.l.Error("marshal live view frame", xlogger.Error(err))
		return
	}
	select {
	case <-sub.done:
	case sub.send <- b:
	default:
		h.l.Warn("live view send buffer full, frame dropped", xlogger.String("channel_id", sub.channelID))
	}
}
