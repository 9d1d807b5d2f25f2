// Package notify publishes fire-and-forget events to role or account channels.
package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
)

const (
	EventRegistrationSubmitted = "registration.submitted"
	EventRegistrationApproved  = "registration.approved"
	EventTenantCreated         = "tenant.created"
	EventTenantActivated       = "tenant.activated"
	EventTenantSuspended       = "tenant.suspended"
	EventTenantUpdated         = "tenant.updated"
	EventTenantDeleted         = "tenant.deleted"
	EventAccountAdded          = "account.added"
	EventAccountUpdated        = "account.updated"
)

// Channel addresses an audience: every holder of a role, or one account.
type Channel string

func RoleChannel(role accounts.Role) Channel {
	return Channel("role:" + string(role))
}

func AccountChannel(accountID string) Channel {
	return Channel("account:" + accountID)
}

func (c Channel) IsRole() bool {
	return strings.HasPrefix(string(c), "role:")
}

type Event struct {
	Type       string            `json:"type"`
	Channel    Channel           `json:"channel"`
	TenantID   string            `json:"tenant_id,omitempty"`
	Subject    string            `json:"subject,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

// Publisher delivers a single event to the transport.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Notifier is what the domain services depend on. Notify must never block
// on, or fail because of, delivery.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

var (
	_ Publisher = Nop{}
	_ Notifier  = Nop{}
)

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Notify(context.Context, Event)        {}
func (Nop) Close() error                         { return nil }

// Dispatcher hands events to a Publisher on background goroutines.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	nowFunc   func() time.Time
	wg        sync.WaitGroup
}

var _ Notifier = (*Dispatcher)(nil)

type DispatcherOption func(*Dispatcher)

func WithPublishTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

func WithNowFunc(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.nowFunc = now
	}
}

func NewDispatcher(publisher Publisher, options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		timeout:   5 * time.Second,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Notify publishes asynchronously. The request context only contributes its
// values; cancellation of the request does not cancel delivery.
func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.nowFunc().UTC()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.publisher.Publish(pubCtx, event); err != nil {
			log.Warn().Err(err).
				Str("event", event.Type).
				Str("channel", string(event.Channel)).
				Msg("notification dropped")
		}
	}()
}

// Flush waits for in-flight notifications.
func (d *Dispatcher) Flush() {
	d.wg.Wait()
}

// Close flushes and closes the publisher.
func (d *Dispatcher) Close() error {
	d.Flush()
	return d.publisher.Close()
}
