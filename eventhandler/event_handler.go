package eventhandler

import (
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventstream"
	"bitbucket.org/yellowmessenger/voice-orchestrator/globals"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// Dispatch routes one event. It never blocks on a call's work so events
// are applied in the order they were delivered.
func (cH *CallHandlers) Dispatch(ev eventstream.Event) {
	switch ev.Kind {
	case eventstream.KindCallStarted:
		cH.callStartedHandler(ev)
	case eventstream.KindCallEnded:
		cH.callEndedHandler(ev)
	case eventstream.KindHangupRequested:
		cH.hangupRequestHandler(ev)
	case eventstream.KindChannelStateChanged:
		cH.channelStateChangeHandler(ev)
	case eventstream.KindRecordingFinished, eventstream.KindRecordingFailed:
		cH.recordingHandler(ev)
	case eventstream.KindPlaybackFinished:
		cH.playbackFinishedHandler(ev)
	default:
		globals.IncrementDroppedEvents()
		ymlogger.LogDebugf(ev.ChannelID(), "Dropping event of type [%s]", ev.Type)
	}
}
