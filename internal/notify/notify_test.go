package notify_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-hr-tenancy/accounts"
	"github.com/jrsteele09/go-hr-tenancy/internal/notify"
)

type fakeWriter struct {
	lock     sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByChannel(t *testing.T) {
	w := &fakeWriter{}
	p := notify.NewKafkaPublisherWithWriter(w)

	err := p.Publish(context.Background(), notify.Event{
		Type:     notify.EventTenantSuspended,
		Channel:  notify.RoleChannel(accounts.RoleAdmin),
		TenantID: "acme",
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	require.Equal(t, "role:admin", string(w.messages[0].Key))

	var decoded notify.Event
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	require.Equal(t, "acme", decoded.TenantID)
	require.Equal(t, notify.EventTenantSuspended, decoded.Type)
}

func TestDispatcherDeliversAfterRequestCancelled(t *testing.T) {
	w := &fakeWriter{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := notify.NewDispatcher(notify.NewKafkaPublisherWithWriter(w), notify.WithNowFunc(func() time.Time { return now }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, notify.Event{Type: notify.EventRegistrationApproved, Channel: notify.AccountChannel("a1")})
	require.NoError(t, d.Close())

	require.Len(t, w.messages, 1)
	require.True(t, w.closed)
	var decoded notify.Event
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	require.Equal(t, now, decoded.OccurredAt)
}

func TestDispatcherSwallowsPublishFailure(t *testing.T) {
	w := &fakeWriter{err: fmt.Errorf("broker down")}
	d := notify.NewDispatcher(notify.NewKafkaPublisherWithWriter(w))

	require.NotPanics(t, func() {
		d.Notify(context.Background(), notify.Event{Type: notify.EventTenantDeleted, Channel: notify.RoleChannel(accounts.RoleHR)})
		d.Flush()
	})
	require.Empty(t, w.messages)
}

func TestChannels(t *testing.T) {
	require.True(t, notify.RoleChannel(accounts.RoleHR).IsRole())
	require.False(t, notify.AccountChannel("a1").IsRole())
	require.Equal(t, notify.Channel("account:a1"), notify.AccountChannel("a1"))
}
