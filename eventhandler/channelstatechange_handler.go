package eventhandler

import (
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventstream"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

func (cH *CallHandlers) channelStateChangeHandler(ev eventstream.Event) {
	if ev.Channel == nil {
		return
	}
	if !cH.registry.SetChannelState(ev.Channel.ID, ev.Channel.State) {
		ymlogger.LogDebugf(ev.Channel.ID, "State change for an untracked channel. State: [%s]", ev.Channel.State)
		return
	}
	ymlogger.LogDebugf(ev.Channel.ID, "Channel state is now [%s]", ev.Channel.State)
}
