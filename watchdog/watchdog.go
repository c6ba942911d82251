package watchdog

import (
	"context"
	"time"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// Registrar answers whether an application is registered with the control plane
type Registrar interface {
	IsRegistered(ctx context.Context, app string) (bool, error)
}

// Process is the supervised client
type Process interface {
	Kill(ctx context.Context) error
	Start(ctx context.Context) error
	Alive() bool
}

// Config holds the watchdog timings
type Config struct {
	Application   string
	CheckInterval time.Duration
	SettleDelay   time.Duration
	StartupGrace  time.Duration
	RecheckDelay  time.Duration
	MaxRestarts   int
	RestartWindow time.Duration
}

// Outcome is the result of one check
type Outcome int

const (
	OutcomeRegistered Outcome = iota
	OutcomeRestarted
	OutcomeSuppressed
	OutcomeRestartFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRegistered:
		return "registered"
	case OutcomeRestarted:
		return "restarted"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeRestartFailed:
		return "restart-failed"
	}
	return "unknown"
}

// Watchdog restarts the client when its application drops off the control plane
type Watchdog struct {
	conf   Config
	reg    Registrar
	proc   Process
	budget *RestartBudget
	sleep  func(ctx context.Context, d time.Duration) error
}

// New returns a watchdog with the defaults filled in
func New(conf Config, reg Registrar, proc Process) *Watchdog {
	if conf.CheckInterval <= 0 {
		conf.CheckInterval = 30 * time.Second
	}
	if conf.SettleDelay <= 0 {
		conf.SettleDelay = 5 * time.Second
	}
	if conf.MaxRestarts <= 0 {
		conf.MaxRestarts = 3
	}
	if conf.RestartWindow <= 0 {
		conf.RestartWindow = 5 * time.Minute
	}
	return &Watchdog{
		conf:   conf,
		reg:    reg,
		proc:   proc,
		budget: NewRestartBudget(conf.MaxRestarts, conf.RestartWindow),
		sleep:  sleepCtx,
	}
}

// Run checks immediately and then every check interval until ctx is done
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.conf.CheckInterval)
	defer ticker.Stop()
	for {
		w.CheckOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CheckOnce verifies the registration and restarts the client if the
// budget allows
func (w *Watchdog) CheckOnce(ctx context.Context) Outcome {
	if w.registered(ctx) {
		ymlogger.LogDebugf("Watchdog", "Application [%s] is registered", w.conf.Application)
		return OutcomeRegistered
	}
	if !w.budget.Take() {
		ymlogger.LogWarningf("Watchdog", "Application [%s] is not registered but the restart budget of [%d] per [%s] is spent. Next restart at [%s]",
			w.conf.Application, w.conf.MaxRestarts, w.conf.RestartWindow, w.budget.NextAllowed().Format(time.RFC3339))
		return OutcomeSuppressed
	}
	ymlogger.LogWarningf("Watchdog", "Application [%s] is not registered, restarting the client. Restarts left: [%d]",
		w.conf.Application, w.budget.Remaining())

	if err := w.proc.Kill(ctx); err != nil {
		ymlogger.LogErrorf("Watchdog", "Error while killing the client. Error: [%#v]", err)
	}
	if w.sleep(ctx, w.conf.SettleDelay) != nil {
		return OutcomeRestartFailed
	}
	if err := w.proc.Start(ctx); err != nil {
		ymlogger.LogErrorf("Watchdog", "Error while starting the client. Error: [%#v]", err)
		return OutcomeRestartFailed
	}
	if w.sleep(ctx, w.conf.StartupGrace) != nil {
		return OutcomeRestartFailed
	}
	if !w.proc.Alive() {
		ymlogger.LogErrorf("Watchdog", "Client exited within [%s] of starting", w.conf.StartupGrace)
		return OutcomeRestartFailed
	}
	if w.sleep(ctx, w.conf.RecheckDelay) != nil {
		return OutcomeRestarted
	}
	if w.registered(ctx) {
		ymlogger.LogInfof("Watchdog", "Application [%s] registered again after restart", w.conf.Application)
	} else {
		ymlogger.LogWarningf("Watchdog", "Application [%s] still not registered after restart", w.conf.Application)
	}
	return OutcomeRestarted
}

// registered treats a failed query as lost registration
func (w *Watchdog) registered(ctx context.Context) bool {
	ok, err := w.reg.IsRegistered(ctx, w.conf.Application)
	if err != nil {
		ymlogger.LogErrorf("Watchdog", "Error while listing the registered applications. Error: [%v]", err)
		return false
	}
	return ok
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
