// Package notifyfake records notifications synchronously for tests.
package notifyfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-hr-tenancy/internal/notify"
)

var _ notify.Notifier = (*Recorder)(nil)

type Recorder struct {
	lock   sync.Mutex
	events []notify.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, event notify.Event) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []notify.Event {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]notify.Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	var types []string
	for _, e := range r.Events() {
		types = append(types, e.Type)
	}
	return types
}
