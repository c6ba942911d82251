package eventhandler

import (
	"context"

	"bitbucket.org/yellowmessenger/voice-orchestrator/call"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// Shutdown ends every live call and waits for their teardown until ctx is
// done. The registry is cleared afterwards.
func (cH *CallHandlers) Shutdown(ctx context.Context) error {
	sessions := cH.registry.Sessions()
	for _, sess := range sessions {
		sess.RequestEnd(call.EndReasonShutdown)
	}
	ymlogger.LogInfof("Shutdown", "Ending [%d] live calls", len(sessions))

	done := make(chan struct{})
	go func() {
		cH.tasks.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		ymlogger.LogWarningf("Shutdown", "Gave up waiting for call teardown. Error: [%v]", err)
	}
	cH.registry.Clear()
	return err
}
