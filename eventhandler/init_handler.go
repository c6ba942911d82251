package eventhandler

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/eventstream"
	"bitbucket.org/yellowmessenger/voice-orchestrator/globals"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// InitHandler keeps the event feed connected and dispatches its events until
// ctx is done. Transport failures are retried after the reconnect delay
// without limit. Only a fatal handshake error (bad credentials) is returned.
func (cH *CallHandlers) InitHandler(ctx context.Context, src EventSource) error {
	for attempt := 1; ; attempt++ {
		err := src.Connect(ctx)
		if err == nil {
			ymlogger.LogInfof("EventLoop", "Connected to the event stream. Attempt: [%d]", attempt)
			attempt = 0
			err = cH.consume(ctx, src)
			src.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		var connErr *eventstream.ConnectionError
		if errors.As(err, &connErr) && connErr.Fatal() {
			ymlogger.LogCriticalf("EventLoop", "Event stream rejected the credentials. Error: [%#v]", err)
			return err
		}
		globals.IncrementReconnects()
		ymlogger.LogErrorf("EventLoop", "Event stream lost, reconnecting in [%s]. Error: [%v]", cH.conf.ReconnectDelay, err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cH.conf.ReconnectDelay):
		}
	}
}

// consume dispatches events in delivery order until the stream ends
func (cH *CallHandlers) consume(ctx context.Context, src EventSource) error {
	cH.connected.Store(true)
	defer cH.connected.Store(false)

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go cH.pingLoop(pingCtx)

	for {
		ev, err := src.Next(ctx)
		if err != nil {
			return err
		}
		cH.Dispatch(ev)
	}
}

// pingLoop checks the control plane while the stream is up
func (cH *CallHandlers) pingLoop(ctx context.Context) {
	if cH.conf.HealthPing <= 0 {
		return
	}
	ticker := time.NewTicker(cH.conf.HealthPing)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cH.control.Ping(ctx); err != nil && ctx.Err() == nil {
				ymlogger.LogErrorf("EventLoop", "Error while pinging the control plane. Error: [%#v]", err)
			}
		}
	}
}
