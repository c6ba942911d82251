package conversation

import (
	"context"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/call"
	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// monitor ends the call once a limit is crossed. It checks every poll
// interval, so a limit is acted on at most one interval late.
func (s *Supervisor) monitor(ctx context.Context, sess *call.Session) {
	ticker := time.NewTicker(s.conf.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reason := s.checkLimits(sess, s.now())
			if reason == call.EndReasonNone {
				continue
			}
			ymlogger.LogInfof(sess.CallID, "Call limit reached. Reason: [%s] Duration: [%s]", reason, s.now().Sub(sess.StartedAt).Round(time.Second))
			sess.RequestEnd(reason)
			return
		}
	}
}

func (s *Supervisor) checkLimits(sess *call.Session, now time.Time) call.EndReason {
	if s.conf.MaxDuration > 0 && now.Sub(sess.StartedAt) >= s.conf.MaxDuration {
		return call.EndReasonMaxDuration
	}
	if s.conf.SilenceTimeout > 0 && now.Sub(sess.LastActivity()) >= s.conf.SilenceTimeout {
		return call.EndReasonSilenceTimeout
	}
	return call.EndReasonNone
}
