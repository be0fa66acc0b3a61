// Package memory provides an in-process Publisher that records admission
// events instead of sending them anywhere. It backs tests and runs where
// Pub/Sub is disabled.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Event is one recorded publish call.
type Event struct {
	Topic   string
	Payload any
}

// Publisher collects events in arrival order. Safe for concurrent use.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns a synthetic message ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Payload: payload})
	return fmt.Sprintf("mem-%d", len(p.events)), nil
}

// Messages returns a copy of every recorded event.
func (p *Publisher) Messages() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// TopicMessages returns the events recorded for a single topic.
func (p *Publisher) TopicMessages(topic string) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Event
	for _, ev := range p.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}
