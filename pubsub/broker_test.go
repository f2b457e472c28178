package pubsub

import (
	"testing"
	"time"

	"github.com/saiganesh141124/flora-intel/models"
)

func TestPublishReachesSubscriber(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("user-1")
	defer sub.Unsubscribe()

	event := models.HistoryEvent{
		Type:        models.EventRecordCreated,
		PrincipalID: "user-1",
		RecordID:    "rec-1",
		Timestamp:   time.Now(),
	}
	broker.Publish(event)

	select {
	case got := <-sub.C:
		if got.RecordID != "rec-1" || got.Type != models.EventRecordCreated {
			t.Errorf("received event = %+v, want %+v", got, event)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestPublishIsPrincipalScoped(t *testing.T) {
	broker := NewBroker()
	mine := broker.Subscribe("user-1")
	theirs := broker.Subscribe("user-2")
	defer mine.Unsubscribe()
	defer theirs.Unsubscribe()

	broker.Publish(models.HistoryEvent{
		Type:        models.EventRecordDeleted,
		PrincipalID: "user-1",
		RecordID:    "rec-1",
	})

	select {
	case <-mine.C:
	case <-time.After(time.Second):
		t.Fatal("owner's subscriber did not receive event")
	}

	select {
	case got := <-theirs.C:
		t.Errorf("other principal's subscriber received %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNoDeliveryAfterUnsubscribe(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("user-1")
	sub.Unsubscribe()

	broker.Publish(models.HistoryEvent{
		Type:        models.EventRecordCreated,
		PrincipalID: "user-1",
		RecordID:    "rec-1",
	})

	// The channel is closed on unsubscribe; a zero-value receive with
	// ok == false is the only permitted outcome.
	select {
	case _, ok := <-sub.C:
		if ok {
			t.Error("received event after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
		t.Error("channel not closed after unsubscribe")
	}

	if broker.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", broker.SubscriberCount())
	}
}

func TestUnsubscribeDiscardsBufferedEvents(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("user-1")

	// Fill the buffer without a consumer, then tear down.
	for i := 0; i < 5; i++ {
		broker.Publish(models.HistoryEvent{
			Type:        models.EventRecordCreated,
			PrincipalID: "user-1",
			RecordID:    "rec-1",
		})
	}
	sub.Unsubscribe()

	if got, ok := <-sub.C; ok {
		t.Errorf("received buffered event %+v after unsubscribe", got)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe("user-1")
	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestEachSubscriberGetsOneCopy(t *testing.T) {
	broker := NewBroker()
	a := broker.Subscribe("user-1")
	b := broker.Subscribe("user-1")
	defer a.Unsubscribe()
	defer b.Unsubscribe()

	broker.Publish(models.HistoryEvent{
		Type:        models.EventRecordCreated,
		PrincipalID: "user-1",
		RecordID:    "rec-1",
	})

	for _, sub := range []*Subscription{a, b} {
		select {
		case <-sub.C:
		case <-time.After(time.Second):
			t.Fatal("a subscriber missed the event")
		}
	}
}
