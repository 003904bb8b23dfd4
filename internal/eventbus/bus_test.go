package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeFiltersByPrefix(t *testing.T) {
	b := New()
	alerts, unsubAlerts := b.Subscribe(4, "alert.")
	defer unsubAlerts()
	all, unsubAll := b.Subscribe(4)
	defer unsubAll()

	b.Publish(Event{Type: RecordAssembled})
	b.Publish(Event{Type: AlertSent, Data: "x"})

	require.Len(t, alerts, 1)
	e := <-alerts
	assert.Equal(t, AlertSent, e.Type)
	assert.False(t, e.Time.IsZero())
	assert.Len(t, all, 2)
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: AlertEmitted})
	b.Publish(Event{Type: AlertEmitted})
	assert.Len(t, ch, 1)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	_, ok := <-ch
	assert.False(t, ok)
	b.Publish(Event{Type: AlertFailed})
}
