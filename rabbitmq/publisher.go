package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/streadway/amqp"
)

// Publisher represents a RabbitMQ publisher instance
type Publisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

// NewPublisher creates a new RabbitMQ publisher instance
func NewPublisher(amqpURL, exchangeName, routingKey string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:       conn,
		channel:    channel,
		exchange:   exchangeName,
		routingKey: routingKey,
	}, nil
}

// Publish sends a JSON message to the exchange with the configured routing key
func (p *Publisher) Publish(message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON: %w", err)
	}

	err = p.channel.Publish(
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the publisher connection and channel
func (p *Publisher) Close() error {
	var err error

	if p.channel != nil {
		if channelErr := p.channel.Close(); channelErr != nil {
			log.Errorf("Failed to close channel: %v", channelErr)
			err = channelErr
		}
	}
	if p.conn != nil {
		if connErr := p.conn.Close(); connErr != nil {
			log.Errorf("Failed to close connection: %v", connErr)
			if err == nil {
				err = connErr
			}
		}
	}
	return err
}
