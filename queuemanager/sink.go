package queuemanager

import (
	"context"
	"encoding/json"

	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
)

// Name identifies the sink in logs
func (p *Publisher) Name() string { return "amqp" }

// Store publishes the call record to the configured queue
func (p *Publisher) Store(ctx context.Context, rec *callstore.CallRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.Enqueue(QueueMessageParams{
		QueueName: p.params.QueueName,
		Msg:       string(body),
	})
}
