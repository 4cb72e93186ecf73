package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lnwallet/app/models/transaction"
)

func makeEvent(eventType EventType, hash string) Event {
	return Event{
		Type: eventType,
		Transaction: transaction.Transaction{
			Kind:        string(transaction.KindInvoice),
			PaymentHash: hash,
			Status:      string(transaction.StatusPending),
		},
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus(8)
	first := bus.Subscribe()
	second := bus.Subscribe()

	bus.Publish(makeEvent(EventInvoiceCreated, "aa"))

	for _, sub := range []*Subscriber{first, second} {
		select {
		case event := <-sub.C:
			assert.Equal(t, EventInvoiceCreated, event.Type)
			assert.Equal(t, "aa", event.Transaction.PaymentHash)
		default:
			t.Fatal("订阅者未收到事件")
		}
	}
}

func TestLateSubscriberGetsNoHistory(t *testing.T) {
	bus := NewBus(8)
	early := bus.Subscribe()

	bus.Publish(makeEvent(EventInvoiceCreated, "aa"))

	late := bus.Subscribe()
	bus.Publish(makeEvent(EventInvoiceSettled, "aa"))

	// 先订阅者两条都收到
	assert.Len(t, drain(early), 2)
	// 后订阅者只能收到订阅之后的那条
	events := drain(late)
	require.Len(t, events, 1)
	assert.Equal(t, EventInvoiceSettled, events[0].Type)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus(8)
	// 不应 panic，也不是错误
	bus.Publish(makeEvent(EventInvoiceCreated, "aa"))
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestSlowSubscriberObservesGap(t *testing.T) {
	bus := NewBus(2)
	slow := bus.Subscribe()

	for i := 0; i < 5; i++ {
		bus.Publish(makeEvent(EventInvoiceCreated, "aa"))
	}

	// 缓冲只有 2，其余 3 条被丢弃而不是阻塞发布方
	assert.Len(t, drain(slow), 2)
	assert.Equal(t, int64(3), slow.Dropped())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(8)
	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	_, open := <-sub.C
	assert.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount())

	// 重复退订不应 panic
	bus.Unsubscribe(sub)
}

func drain(sub *Subscriber) []Event {
	var events []Event
	for {
		select {
		case event := <-sub.C:
			events = append(events, event)
		default:
			return events
		}
	}
}
