package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fcurrie/led-matrix-controller/internal/bus"
	"github.com/fcurrie/led-matrix-controller/internal/model"
)

// keepAliveInterval is the SSE comment-ping cadence of spec.md §4.7.
const keepAliveInterval = 15 * time.Second

// playlistEvent is the {items, action} wire shape of the playlist SSE
// topic, per spec.md §6.
type playlistEvent struct {
	Items  model.Playlist `json:"items"`
	Action bus.Action     `json:"action"`
}

// brightnessEvent is the {brightness} wire shape of the brightness topic.
type brightnessEvent struct {
	Brightness model.Brightness `json:"brightness"`
}

// snapshot builds the full current-state payload for topic, used both for
// the initial connect event and for a resync after a dropped message,
// sourced directly from the State Store / Preview Lock Manager rather than
// from the (possibly stale) last bus event.
func (h *Handlers) snapshot(topic bus.Topic) any {
	switch topic {
	case bus.TopicPlaylist:
		return playlistEvent{Items: h.store.List(), Action: ""}
	case bus.TopicBrightness:
		return brightnessEvent{Brightness: h.store.Brightness()}
	case bus.TopicEditor:
		return h.preview.Lock()
	default:
		return nil
	}
}

// payloadFor translates one bus.Event into the wire shape documented for
// its topic in spec.md §6.
func payloadFor(ev bus.Event) any {
	switch ev.Topic {
	case bus.TopicPlaylist:
		items, _ := ev.Data.(model.Playlist)
		return playlistEvent{Items: items, Action: ev.Action}
	case bus.TopicBrightness:
		b, _ := ev.Data.(model.Brightness)
		return brightnessEvent{Brightness: b}
	case bus.TopicEditor:
		lock, _ := ev.Data.(model.EditorLock)
		return lock
	default:
		return ev.Data
	}
}

// writeSSE marshals payload and writes it as one SSE "data:" frame.
func writeSSE(w http.ResponseWriter, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// sseHandler returns a handler streaming topic's events as Server-Sent
// Events: an initial full-state event on connect, then one event per Event
// Bus message, with a ":\n\n" keep-alive comment every 15s and full
// resync on a dropped-message notification, per spec.md §4.5/§4.7.
func (h *Handlers) sseHandler(topic bus.Topic) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		sub := h.bus.Subscribe(topic)
		defer sub.Close()

		if err := writeSSE(w, h.snapshot(topic)); err != nil {
			logf("httpapi: sse %s initial write: %v", topic, err)
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ":\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case ev, ok := <-sub.Events:
				if !ok {
					return
				}
				payload := payloadFor(ev)
				if ev.Resync {
					payload = h.snapshot(topic)
				}
				if err := writeSSE(w, payload); err != nil {
					logf("httpapi: sse %s write: %v", topic, err)
					return
				}
				flusher.Flush()
			}
		}
	}
}
