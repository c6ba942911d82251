package eventhandler

import (
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventstream"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/asterisk"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// recordingHandler hands the outcome of a recording to the capture waiting on it
func (cH *CallHandlers) recordingHandler(ev eventstream.Event) {
	rec := ev.Recording
	if rec == nil {
		return
	}
	completion := asterisk.Completion{
		ID:              rec.Name,
		Failed:          ev.Kind == eventstream.KindRecordingFailed,
		Cause:           rec.Cause,
		Duration:        rec.Duration,
		TalkingDuration: rec.TalkingDuration,
	}
	if !cH.waiters.Notify(completion) {
		ymlogger.LogDebugf("EventLoop", "Nobody waits for recording [%s]", rec.Name)
	}
}
