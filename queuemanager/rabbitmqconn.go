package queuemanager

import (
	"fmt"
	"strconv"
	"sync"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	"github.com/streadway/amqp"
)

// QueueConnParams holds the RabbitMQ connection and queue settings
type QueueConnParams struct {
	Host           string `json:"host" env:"RABBITMQ_HOST"`
	Port           int    `json:"port" env:"RABBITMQ_PORT"`
	UserName       string `json:"user_name" env:"RABBITMQ_USER"`
	Password       string `json:"password" env:"RABBITMQ_PASSWORD"`
	QueueName      string `json:"queue_name" env:"RABBITMQ_QUEUE"`
	Durable        bool   `json:"durable"`
	DeleteUnused   bool   `json:"delete_unused"`
	Exclusive      bool   `json:"exclusive"`
	NoWait         bool   `json:"no_wait"`
	TTL            int    `json:"ttl"`
	MaxQueueLength int    `json:"max_queue_length"`
}

// QueueMessageParams describes one message to publish
type QueueMessageParams struct {
	Exchange  string `json:"exchange"`
	QueueName string `json:"queue_name"`
	Msg       string `json:"msg"`
	Priority  uint8  `json:"priority"`
	Mandatory bool   `json:"mandatory"`
	Immediate bool   `json:"immediate"`
}

// amqpChannel is the part of *amqp.Channel the publisher uses
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher owns a RabbitMQ channel. Publishing is serialized since an
// amqp channel must not be shared across goroutines.
type Publisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     amqpChannel
	params QueueConnParams
}

// InitRabbitMQConn dials RabbitMQ and declares the queue
func InitRabbitMQConn(qParams QueueConnParams) (*Publisher, error) {
	conn, err := amqp.Dial("amqp://" + fmt.Sprintf("%s:%s@%s:%s", qParams.UserName, qParams.Password, qParams.Host, strconv.Itoa(qParams.Port)))
	if err != nil {
		ymlogger.LogErrorf("InitRabbitMQ", "Failed to connect to RabbitMQ. Error: [%#v]", err)
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		ymlogger.LogErrorf("InitRabbitMQ", "Failed to open a channel. Error: [%#v]", err)
		conn.Close()
		return nil, err
	}
	args := make(amqp.Table)
	if qParams.TTL > 0 {
		args["x-message-ttl"] = qParams.TTL
	}
	if qParams.MaxQueueLength > 0 {
		args["x-max-length"] = qParams.MaxQueueLength
	}
	q, err := ch.QueueDeclare(
		qParams.QueueName,
		qParams.Durable,
		qParams.DeleteUnused,
		qParams.Exclusive,
		qParams.NoWait,
		args,
	)
	if err != nil {
		ymlogger.LogErrorf("InitRabbitMQ", "Failed to declare the queue. Error: [%#v]", err)
		conn.Close()
		return nil, err
	}
	ymlogger.LogDebugf("QueueStats", "QueueName: [%s] NumOfMessages: [%d]", q.Name, q.Messages)
	return &Publisher{conn: conn, ch: ch, params: qParams}, nil
}

// Enqueue publishes the message
func (p *Publisher) Enqueue(param QueueMessageParams) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         []byte(param.Msg),
	}
	if param.Priority > 0 {
		msg.Priority = param.Priority
	}
	p.mu.Lock()
	err := p.ch.Publish(
		param.Exchange,
		param.QueueName,
		param.Mandatory,
		param.Immediate,
		msg,
	)
	p.mu.Unlock()
	if err != nil {
		ymlogger.LogErrorf("EnqueueMsg", "Error while enqueuing the msg. Queue: [%s] Error: [%#v]", param.QueueName, err)
		return err
	}
	return nil
}

// Close closes the channel and the connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
