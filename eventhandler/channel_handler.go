package eventhandler

import (
	"context"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/call"
	"bitbucket.org/yellowmessenger/voice-orchestrator/eventstream"
	"bitbucket.org/yellowmessenger/voice-orchestrator/globals"
	"bitbucket.org/yellowmessenger/voice-orchestrator/phonenumber"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
	"github.com/google/uuid"
)

// callStartedHandler registers a new call and starts its task
func (cH *CallHandlers) callStartedHandler(ev eventstream.Event) {
	if ev.Channel == nil || ev.Channel.ID == "" {
		globals.IncrementDroppedEvents()
		return
	}
	chEv := ev.Channel
	// the external media leg enters the application too
	if known, ok := cH.registry.GetChannel(chEv.ID); ok && known.Role == call.RoleMedia {
		cH.registry.SetChannelState(chEv.ID, chEv.State)
		return
	}

	initial := call.StateRinging
	if chEv.State == "Up" {
		initial = call.StateAnswered
	}
	startedAt := ev.Time()
	if startedAt.IsZero() {
		startedAt = cH.now()
	}
	sess := call.NewSession(chEv.ID, chEv.Caller.Number, initial, startedAt)
	sess.CallerE164 = phonenumber.Normalize(chEv.Caller.Number, cH.conf.DefaultRegion)

	cH.registry.UpsertChannel(call.Channel{
		ID:           chEv.ID,
		Name:         chEv.Name,
		CallerNumber: chEv.Caller.Number,
		State:        chEv.State,
		CreatedAt:    startedAt,
		SessionID:    sess.CallID,
		Role:         call.RoleCaller,
	})
	if stale := cH.registry.PutSession(sess); stale != nil {
		stale.RequestEnd(call.EndReasonReplaced)
	}
	globals.IncrementNoOfCalls()
	ymlogger.LogInfof(sess.CallID, "Call started. Caller: [%s] State: [%s]", sess.CallerE164, initial)

	ctx := sess.Start(context.Background())
	cH.tasks.Add(1)
	go cH.runCall(ctx, sess)
}

// runCall is the task of one call. Teardown always runs, on this goroutine.
func (cH *CallHandlers) runCall(ctx context.Context, sess *call.Session) {
	defer cH.tasks.Done()
	defer sess.Finish()

	reason := call.EndReasonNone
	defer func() {
		if r := recover(); r != nil {
			ymlogger.LogCriticalf(sess.CallID, "Recovered from panic in call task. Panic: [%v]", r)
			reason = call.EndReasonCommandFailed
		}
		cH.teardown(sess, reason)
	}()
	reason = cH.drive(ctx, sess)
}

// drive takes the call from Ringing to the end of its conversation
func (cH *CallHandlers) drive(ctx context.Context, sess *call.Session) call.EndReason {
	if sess.State() == call.StateRinging {
		if err := cH.control.Answer(ctx, sess.CallID, sess.CallID); err != nil {
			return cH.commandFailure(ctx, sess, "answer", err)
		}
		if err := sess.Transition(call.StateAnswered); err != nil {
			return cH.illegal(sess, err)
		}
	}

	if err := cH.setupMedia(ctx, sess); err != nil {
		return cH.commandFailure(ctx, sess, "bridge setup", err)
	}
	if err := sess.Transition(call.StateBridged); err != nil {
		return cH.illegal(sess, err)
	}

	if err := cH.conv.Greet(ctx, sess.CallID); err != nil {
		return cH.commandFailure(ctx, sess, "greeting", err)
	}
	if err := sess.Transition(call.StateConversing); err != nil {
		return cH.illegal(sess, err)
	}
	sess.Touch(cH.now())
	ymlogger.LogInfof(sess.CallID, "Conversation started")
	return cH.conv.Run(ctx, sess.CallID)
}

// setupMedia creates the mixing bridge and joins the caller and, in
// external media mode, the media leg
func (cH *CallHandlers) setupMedia(ctx context.Context, sess *call.Session) error {
	bridgeID, err := cH.control.CreateBridge(ctx, sess.CallID, "mixing", "bridge-"+sess.CallID)
	if err != nil {
		return err
	}
	cH.registry.PutBridge(call.NewBridge(bridgeID, "bridge-"+sess.CallID, "mixing", sess.CallID))
	sess.SetMedia(bridgeID, "")

	if err = cH.control.AddChannelToBridge(ctx, sess.CallID, bridgeID, sess.CallID); err != nil {
		return err
	}
	cH.registry.AddBridgeMember(bridgeID, sess.CallID)

	if cH.conf.BridgeMode != BridgeModeExternalMedia {
		return nil
	}
	mediaID := uuid.NewString()
	// registered first so its StasisStart is recognised
	cH.registry.UpsertChannel(call.Channel{
		ID:        mediaID,
		SessionID: sess.CallID,
		Role:      call.RoleMedia,
		CreatedAt: cH.now(),
	})
	sess.SetMedia(bridgeID, mediaID)
	if err = cH.control.CreateExternalMedia(ctx, sess.CallID, mediaID, cH.conf.ExternalMediaHost, cH.conf.ExternalMediaFormat); err != nil {
		return err
	}
	if err = cH.control.AddChannelToBridge(ctx, sess.CallID, bridgeID, mediaID); err != nil {
		return err
	}
	cH.registry.AddBridgeMember(bridgeID, mediaID)
	return nil
}

// commandFailure maps a failed command to an end reason. A command cut short
// because the call is already ending keeps the recorded reason.
func (cH *CallHandlers) commandFailure(ctx context.Context, sess *call.Session, op string, err error) call.EndReason {
	if ctx.Err() != nil {
		ymlogger.LogDebugf(sess.CallID, "Stopped during %s. Reason: [%s]", op, sess.EndReason())
		return call.EndReasonNone
	}
	ymlogger.LogErrorf(sess.CallID, "Error during %s. Error: [%#v]", op, err)
	return call.EndReasonCommandFailed
}

func (cH *CallHandlers) illegal(sess *call.Session, err error) call.EndReason {
	ymlogger.LogErrorf(sess.CallID, "Lifecycle error. Error: [%v]", err)
	return call.EndReasonCommandFailed
}

// elapsed returns whole seconds between two instants
func elapsed(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / time.Second)
}
