// Package memory keeps run-completion events in process. It backs the
// service when no Pub/Sub project is configured and lets tests inspect
// what a run announced.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher retains every event it is handed, in publish order.
type Publisher struct {
	mu     sync.RWMutex
	events []Event
}

// Event is one recorded run-completion announcement.
type Event struct {
	Topic   string
	Payload any
}

// New returns an empty in-process Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish appends the event and returns a sequential pseudo ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Payload: payload})
	return fmt.Sprintf("event-%d", len(p.events)), nil
}

// Messages returns a copy of the recorded events.
func (p *Publisher) Messages() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
