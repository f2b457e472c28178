package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/streadway/amqp"

	"github.com/saiganesh141124/flora-intel/metrics"
	"github.com/saiganesh141124/flora-intel/models"
	"github.com/saiganesh141124/flora-intel/pubsub"
)

const reconnectDelay = 5 * time.Second

// Subscriber consumes history-change events published by other service
// instances and republishes them into the local broker, so websocket
// clients attached to this instance see changes made elsewhere.
type Subscriber struct {
	amqpURL    string
	exchange   string
	routingKey string
	queue      string
	broker     *pubsub.Broker

	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewSubscriber creates a subscriber bound to the given broker.
func NewSubscriber(amqpURL, exchange, routingKey, queue string, broker *pubsub.Broker) *Subscriber {
	return &Subscriber{
		amqpURL:    amqpURL,
		exchange:   exchange,
		routingKey: routingKey,
		queue:      queue,
		broker:     broker,
		stopChan:   make(chan struct{}),
	}
}

// Start runs the consume loop in a goroutine, reconnecting with a fixed
// delay until Stop is called.
func (s *Subscriber) Start() {
	go func() {
		for {
			select {
			case <-s.stopChan:
				return
			default:
			}

			if err := s.consume(); err != nil {
				log.Errorf("RabbitMQ consume loop ended: %v, reconnecting in %v", err, reconnectDelay)
				metrics.RabbitMQConnected.Set(0)
			}

			select {
			case <-s.stopChan:
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()
}

// Stop terminates the consume loop and closes the connection.
func (s *Subscriber) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		_ = s.channel.Close()
		s.channel = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Subscriber) consume() error {
	conn, err := amqp.Dial(s.amqpURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.channel = ch
	s.mu.Unlock()

	// Every exit releases the connection; the reconnect loop dials a fresh
	// one, so anything left open here would leak once per cycle.
	defer func() {
		s.mu.Lock()
		if s.channel != nil {
			_ = s.channel.Close()
			s.channel = nil
		}
		if s.conn != nil {
			_ = s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()
	}()

	if err := ch.ExchangeDeclare(s.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	queue, err := ch.QueueDeclare(s.queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(queue.Name, s.routingKey, s.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	deliveries, err := ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	metrics.RabbitMQConnected.Set(1)
	log.Infof("RabbitMQ subscriber consuming queue %s", queue.Name)

	for {
		select {
		case <-s.stopChan:
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			s.handle(delivery)
		}
	}
}

func (s *Subscriber) handle(delivery amqp.Delivery) {
	var event models.HistoryEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		log.Errorf("Failed to unmarshal history event: %v", err)
		// Malformed payloads never become parseable; drop without requeue.
		if err := delivery.Nack(false, false); err != nil {
			log.Errorf("Failed to nack malformed delivery: %v", err)
		}
		return
	}

	s.broker.Publish(event)
	metrics.HistoryEventsTotal.WithLabelValues("remote").Inc()

	if err := delivery.Ack(false); err != nil {
		log.Errorf("Failed to ack delivery: %v", err)
	}
}
