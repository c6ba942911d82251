package eventhandler

import (
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventstream"
	"bitbucket.org/yellowmessenger/voice-orchestrator/utils/asterisk"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

func (cH *CallHandlers) playbackFinishedHandler(ev eventstream.Event) {
	pb := ev.Playback
	if pb == nil {
		return
	}
	completion := asterisk.Completion{
		ID:     pb.ID,
		Failed: pb.State == "failed",
	}
	if !cH.waiters.Notify(completion) {
		ymlogger.LogDebugf("EventLoop", "Nobody waits for playback [%s]", pb.ID)
	}
}
