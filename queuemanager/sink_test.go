package queuemanager

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
	"github.com/streadway/amqp"
)

type fakeChannel struct {
	key    string
	msg    amqp.Publishing
	err    error
	closed bool
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.key = key
	f.msg = msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestStorePublishesRecord(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{ch: ch, params: QueueConnParams{QueueName: "call-records"}}
	rec := &callstore.CallRecord{CallID: "C1", EndReason: "farewell", StartTime: time.Now()}

	if err := p.Store(context.Background(), rec); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if ch.key != "call-records" || ch.msg.ContentType != "application/json" || ch.msg.DeliveryMode != amqp.Persistent {
		t.Errorf("unexpected publish key=%s msg=%+v", ch.key, ch.msg)
	}
	var got callstore.CallRecord
	if err := json.Unmarshal(ch.msg.Body, &got); err != nil || got.CallID != "C1" {
		t.Errorf("body = %s (%v)", ch.msg.Body, err)
	}
	if p.Name() != "amqp" {
		t.Errorf("name = %s", p.Name())
	}
	if err := p.Close(); err != nil || !ch.closed {
		t.Errorf("Close = %v, closed %v", err, ch.closed)
	}
}

func TestStorePublishError(t *testing.T) {
	p := &Publisher{ch: &fakeChannel{err: errors.New("channel closed")}}
	if err := p.Store(context.Background(), &callstore.CallRecord{CallID: "C1"}); err == nil {
		t.Fatal("expected error")
	}
}
