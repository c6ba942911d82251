package watchdog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"bitbucket.org/yellowmessenger/voice-orchestrator/ymlogger"
)

// ExecProcess controls the call-control client as an operating system process
type ExecProcess struct {
	mu      sync.Mutex
	argv    []string
	pattern string
	logFile string
	cmd     *exec.Cmd
	exited  chan struct{}
}

// NewExecProcess returns a controller for argv. pattern matches every
// instance of the client in the process table, including ones this
// watchdog did not start.
func NewExecProcess(argv []string, pattern, logFile string) *ExecProcess {
	return &ExecProcess{argv: argv, pattern: pattern, logFile: logFile}
}

// Kill forcefully stops every instance. No running instance is not an error.
func (p *ExecProcess) Kill(ctx context.Context) error {
	p.mu.Lock()
	cmd, exited := p.cmd, p.exited
	p.cmd = nil
	p.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			ymlogger.LogErrorf("Watchdog", "Error while killing the client [%d]. Error: [%#v]", cmd.Process.Pid, err)
		}
		<-exited
	}
	if p.pattern == "" {
		return nil
	}
	err := exec.CommandContext(ctx, "pkill", "-9", "-f", p.pattern).Run()
	var exitErr *exec.ExitError
	// pkill exits 1 when nothing matched
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return nil
	}
	return err
}

// Start launches a new instance
func (p *ExecProcess) Start(ctx context.Context) error {
	if len(p.argv) == 0 {
		return errors.New("client command is empty")
	}
	cmd := exec.Command(p.argv[0], p.argv[1:]...)
	out, closeOut, err := p.output()
	if err != nil {
		return err
	}
	cmd.Stdout = out
	cmd.Stderr = out
	if err = cmd.Start(); err != nil {
		closeOut()
		return fmt.Errorf("starting %s: %w", p.argv[0], err)
	}
	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		closeOut()
		ymlogger.LogInfof("Watchdog", "Client [%d] exited. Error: [%v]", cmd.Process.Pid, err)
		close(exited)
	}()
	p.mu.Lock()
	p.cmd, p.exited = cmd, exited
	p.mu.Unlock()
	ymlogger.LogInfof("Watchdog", "Started the client. Pid: [%d]", cmd.Process.Pid)
	return nil
}

// Alive reports whether the instance started last is still running
func (p *ExecProcess) Alive() bool {
	p.mu.Lock()
	exited := p.exited
	p.mu.Unlock()
	if exited == nil {
		return false
	}
	select {
	case <-exited:
		return false
	default:
		return true
	}
}

func (p *ExecProcess) output() (io.Writer, func(), error) {
	if p.logFile == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(p.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
