// Package pubsub implements the in-process change-notification channel for
// history partitions. Delivery is at-least-once and scoped per principal;
// unsubscribing discards anything still buffered, and the closed channel is
// the consumer's terminal signal.
package pubsub

import (
	"sync"

	"github.com/apex/log"

	"github.com/saiganesh141124/flora-intel/models"
)

const subscriberBuffer = 16

// Subscription receives change events for one principal's partition.
type Subscription struct {
	// C delivers events. It is closed on unsubscribe.
	C <-chan models.HistoryEvent

	broker      *Broker
	principalID string
	ch          chan models.HistoryEvent
	once        sync.Once
}

// Unsubscribe tears the subscription down. It is safe to call more than
// once; after it returns a receive on C reports closed, and events that
// were still buffered have been discarded.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.remove(s)
	})
}

// Broker fans out history events to subscribers keyed by principal id.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers interest in one principal's history partition.
func (b *Broker) Subscribe(principalID string) *Subscription {
	ch := make(chan models.HistoryEvent, subscriberBuffer)
	sub := &Subscription{
		C:           ch,
		broker:      b,
		principalID: principalID,
		ch:          ch,
	}

	b.mu.Lock()
	if b.subs[principalID] == nil {
		b.subs[principalID] = make(map[*Subscription]struct{})
	}
	b.subs[principalID][sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Publish delivers an event to every subscriber of the event's principal.
// A subscriber that cannot keep up is dropped rather than blocking the
// publisher; the consumer re-fetches on the next event anyway.
func (b *Broker) Publish(event models.HistoryEvent) {
	b.mu.RLock()
	var slow []*Subscription
	for sub := range b.subs[event.PrincipalID] {
		select {
		case sub.ch <- event:
		default:
			slow = append(slow, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range slow {
		log.Warnf("Dropping slow history subscriber for principal %s", event.PrincipalID)
		sub.Unsubscribe()
	}
}

// SubscriberCount returns the number of active subscriptions across all
// principals.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, set := range b.subs {
		n += len(set)
	}
	return n
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[sub.principalID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.principalID)
	}
	close(sub.ch)
	// Discard anything still buffered so a subsequent receive reports
	// closed instead of replaying stale events.
	for range sub.ch {
	}
}
