package eventhandler

import (
	"context"
	"os"

	"bitbucket.org/yellowmessenger/voice-orchestrator/call"
	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventstream"
	"bitbucket.org/yellowmessenger/voice-orchestrator/globals"
	"bitbucket.org/yellowmessenger/voice-orchestrator/metrics"
	"bitbucket.org/yellowmessenger/voice-orchestrator/newrelic"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// callEndedHandler ends the call owning the channel. Unknown channels and
// repeated end events are no-ops.
func (cH *CallHandlers) callEndedHandler(ev eventstream.Event) {
	id := ev.ChannelID()
	ch, ok := cH.registry.GetChannel(id)
	if !ok {
		ymlogger.LogDebugf(id, "End event of type [%s] for an unknown channel", ev.Type)
		return
	}
	sess, ok := cH.registry.GetSession(ch.SessionID)
	if !ok {
		return
	}
	if ch.Role == call.RoleMedia {
		if _, mediaID := sess.Media(); mediaID == id && sess.RequestEnd(call.EndReasonMediaLost) {
			ymlogger.LogWarningf(sess.CallID, "Media channel [%s] went away", id)
		}
		return
	}
	if sess.RequestEnd(call.EndReasonCallEnded) {
		ymlogger.LogInfof(sess.CallID, "Caller left. Event: [%s] Cause: [%d %s]", ev.Type, ev.Cause, ev.CauseText)
	}
}

func (cH *CallHandlers) hangupRequestHandler(ev eventstream.Event) {
	id := ev.ChannelID()
	sess, ok := cH.registry.GetSession(id)
	if !ok {
		return
	}
	if sess.RequestEnd(call.EndReasonHangupRequested) {
		ymlogger.LogInfof(sess.CallID, "Hangup requested. Cause: [%d %s]", ev.Cause, ev.CauseText)
	}
}

// teardown releases everything the call holds at the platform and in the
// registry. Every step is attempted; failures are logged.
func (cH *CallHandlers) teardown(sess *call.Session, reason call.EndReason) {
	if reason == call.EndReasonNone {
		reason = call.EndReasonCommandFailed
	}
	sess.RequestEnd(reason)
	final := sess.EndReason()
	if err := sess.Transition(call.StateEnding); err != nil {
		ymlogger.LogErrorf(sess.CallID, "Lifecycle error. Error: [%v]", err)
	}
	ymlogger.LogInfof(sess.CallID, "Ending call. Reason: [%s]", final)

	ctx, cancel := context.WithTimeout(context.Background(), cH.conf.CleanupTimeout)
	defer cancel()

	bridgeID, mediaID := sess.Media()
	if bridgeID != "" && final.PlaysFarewell() {
		if err := cH.conv.Farewell(ctx, sess.CallID); err != nil {
			ymlogger.LogErrorf(sess.CallID, "Error while playing the farewell. Error: [%#v]", err)
		}
	}
	if bridgeID != "" {
		if err := cH.control.DeleteBridge(ctx, sess.CallID, bridgeID); err != nil {
			ymlogger.LogWarningf(sess.CallID, "Error while deleting bridge [%s]. Error: [%#v]", bridgeID, err)
		}
	}
	if mediaID != "" {
		if err := cH.control.Hangup(ctx, sess.CallID, mediaID, "normal"); err != nil {
			ymlogger.LogWarningf(sess.CallID, "Error while hanging up media channel [%s]. Error: [%v]", mediaID, err)
		}
	}
	// a replaced session shares its channel id with the live call
	if final != call.EndReasonReplaced {
		err := cH.control.Hangup(ctx, sess.CallID, sess.CallID, "normal")
		switch {
		case err == nil:
		case final == call.EndReasonCallEnded:
			// the caller channel is usually gone already
			ymlogger.LogDebugf(sess.CallID, "Error while hanging up the caller. Error: [%v]", err)
		default:
			ymlogger.LogWarningf(sess.CallID, "Error while hanging up the caller. Error: [%v]", err)
		}
	}

	cH.publish(ctx, sess, final, bridgeID)

	if err := sess.Transition(call.StateTerminated); err != nil {
		ymlogger.LogErrorf(sess.CallID, "Lifecycle error. Error: [%v]", err)
	}
	if bridgeID != "" {
		cH.registry.RemoveBridge(bridgeID)
	}
	if mediaID != "" {
		cH.registry.RemoveChannel(mediaID)
	}
	if final != call.EndReasonReplaced {
		cH.registry.RemoveChannel(sess.CallID)
	}
	cH.registry.RemoveSession(sess)
	globals.DecrementNoOfCalls()
	ymlogger.LogInfof(sess.CallID, "Call terminated. Reason: [%s] Turns: [%d]", final, sess.Transcript.Len())
}

// publish hands the call record to the sinks and reports the call metrics
func (cH *CallHandlers) publish(ctx context.Context, sess *call.Session, final call.EndReason, bridgeID string) {
	end := cH.now()
	record := &callstore.CallRecord{
		CallID:      sess.CallID,
		Caller:      sess.Caller,
		CallerE164:  sess.CallerE164,
		BridgeID:    bridgeID,
		StartTime:   sess.StartedAt,
		EndTime:     end,
		Duration:    elapsed(sess.StartedAt, end),
		EndReason:   final.String(),
		Messages:    sess.Transcript.Turns(),
		LatencyInfo: sess.Latencies.GetLatencies(),
	}
	record.Host, _ = os.Hostname()
	if cH.sink != nil {
		if err := cH.sink.Store(ctx, record); err != nil {
			ymlogger.LogErrorf(sess.CallID, "Error while publishing the call record. Error: [%v]", err)
		}
	}

	if metrics.Enabled() {
		metric, err := metrics.NewMetric("voice_call",
			map[string]string{"end_reason": record.EndReason},
			map[string]interface{}{"duration_sec": record.Duration, "turns": len(record.Messages)})
		if err == nil {
			err = metrics.SendMetric(metric)
		}
		if err != nil {
			ymlogger.LogErrorf(sess.CallID, "Error while sending the call metric. Error: [%v]", err)
		}
	}
	if err := newrelic.SendCustomEvent("VoiceCallEnded", map[string]interface{}{
		"call_id":      sess.CallID,
		"end_reason":   record.EndReason,
		"duration_sec": record.Duration,
		"turns":        len(record.Messages),
	}); err != nil && err != newrelic.ErrNoApp {
		ymlogger.LogErrorf(sess.CallID, "Error while sending the call event. Error: [%v]", err)
	}
}
