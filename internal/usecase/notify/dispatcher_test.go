package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	err    error
	panics bool
}

func (p *recordingPublisher) Publish(ctx context.Context, evt event.Event) error {
	if p.panics {
		panic("publisher down")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func TestDispatcher_Emit(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, nil)

	d.Emit(event.Event{Type: event.TypeRequestCreated, RequestID: uuid.New()},
		event.Event{Type: event.TypeStatusChanged, RequestID: uuid.New()})
	d.Wait()

	assert.Len(t, pub.events, 2)
}

func TestDispatcher_ErrorsDoNotPropagate(t *testing.T) {
	d := NewDispatcher(&recordingPublisher{err: errors.New("redis down")}, nil)
	d.Emit(event.Event{Type: event.TypeRequestCreated})
	d.Wait()

	p := NewDispatcher(&recordingPublisher{panics: true}, nil)
	assert.NotPanics(t, func() {
		p.Emit(event.Event{Type: event.TypeRequestCreated})
		p.Wait()
	})
}

func TestDispatcher_NilSafe(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() {
		d.Emit(event.Event{})
		d.Wait()
	})
}
