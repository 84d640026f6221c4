// Package bus implements the Event Bus (C5): a small in-process MPMC
// broadcast with bounded per-subscriber queues and drop-oldest backpressure,
// grounded on the teacher's internal/fluidnc/websocket.go non-blocking
// "select default: skip this update" channel pump and, for the per-topic
// hub/replay shape, on the SSE hub in the video-sync example's server
// package. Channels are the idiomatic primitive the whole retrieval pack
// reaches for in-process; no external broker is wired in here.
package bus

import "sync"

// Topic names the three event channels of C5.
type Topic string

const (
	TopicPlaylist   Topic = "playlist"
	TopicBrightness Topic = "brightness"
	TopicEditor     Topic = "editor"
)

// Action tags a playlist mutation event.
type Action string

const (
	ActionAdd               Action = "Add"
	ActionUpdate            Action = "Update"
	ActionDelete            Action = "Delete"
	ActionReorder           Action = "Reorder"
	ActionBrightnessChanged Action = "BrightnessChanged"
)

// Event is one message published on a topic. Data is the new full state for
// the topic (playlist slice, brightness value, or editor lock view),
// already JSON-marshalable by the caller. Resync is set on the first event
// delivered to a subscriber after the bus had to drop messages for it.
type Event struct {
	Topic  Topic
	Action Action
	Data   any
	Resync bool
}

const subscriberQueueDepth = 32

// Subscription is a handle returned by Bus.Subscribe. Events yields until
// Close is called, which closes the channel.
type Subscription struct {
	Events <-chan Event
	bus    *Bus
	topic  Topic
	id     uint64
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.topic, s.id)
}

type subscriber struct {
	id      uint64
	ch      chan Event
	dropped bool
}

// Bus is the C5 Event Bus: per-topic subscriber registries guarded by a
// single mutex, each topic caching the last event published so new subscribers (and SSE
// reconnects) can replay current state immediately.
type Bus struct {
	mu      sync.Mutex
	nextID  uint64
	subs    map[Topic][]*subscriber
	lastMsg map[Topic]Event
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{
		subs:    make(map[Topic][]*subscriber),
		lastMsg: make(map[Topic]Event),
	}
}

// Subscribe registers a new subscriber on topic. If the topic already has a
// cached last event, the caller can retrieve it via Last before relying on
// the channel, matching the SSE "send full state, then stream" contract.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscriber{id: b.nextID, ch: make(chan Event, subscriberQueueDepth)}
	b.subs[topic] = append(b.subs[topic], sub)

	return &Subscription{Events: sub.ch, bus: b, topic: topic, id: sub.id}
}

// Last returns the most recently published event on topic, if any.
func (b *Bus) Last(topic Topic) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.lastMsg[topic]
	return ev, ok
}

func (b *Bus) unsubscribe(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			close(s.ch)
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every current subscriber of ev.Topic, never
// blocking: a subscriber whose queue is full has its oldest message
// dropped to make room, and its next delivered event is marked Resync.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastMsg[ev.Topic] = ev

	for _, s := range b.subs[ev.Topic] {
		out := ev
		if s.dropped {
			out.Resync = true
			s.dropped = false
		}
		select {
		case s.ch <- out:
		default:
			// Drop the oldest queued event to make room, then retry once,
			// tagging the retried event so the subscriber knows it lost one.
			select {
			case <-s.ch:
			default:
			}
			out.Resync = true
			select {
			case s.ch <- out:
			default:
				// Queue is being drained concurrently faster than expected;
				// mark the next delivery as a resync and move on.
				s.dropped = true
			}
		}
	}
}
