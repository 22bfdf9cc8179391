package eventloop

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"desk-bridge/src/command"
	"desk-bridge/src/config"
	"desk-bridge/src/errkind"
	"desk-bridge/src/hotkey"
	"desk-bridge/src/session"
	"desk-bridge/src/singleinstance"
	"desk-bridge/src/tray"
	"desk-bridge/src/worker"
)

// Dispatcher runs one named command.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args command.Args) (any, error)
}

// inputQueueSize bounds input commands waiting behind the one in flight.
const inputQueueSize = 16

// Loop is the single-threaded coordinator for delegated commands and the
// release hotkey. Input commands run in order on one input goroutine so they
// reach the OS queue one at a time; screenshots go to the worker pool. The
// loop goroutine itself never blocks on a command, so the release hotkey is
// serviced even while a hold_key is running.
type Loop struct {
	dispatcher     Dispatcher
	releaseAll     func() error
	pool           *worker.Pool
	srv            singleinstance.Server
	results        chan result
	hotkeyCh       chan struct{}
	inputJobs      chan inputJob
	inputWG        sync.WaitGroup
	inputMu        sync.Mutex
	inputCancel    context.CancelFunc
	pending        int
	defaultTooltip string
	deadline       time.Duration
}

type inputJob struct {
	name   string
	args   command.Args
	target resultTarget
}

type result struct {
	value  any
	err    error
	target resultTarget
	cancel context.CancelFunc
	pooled bool
}

type resultTarget interface {
	OnSuccess(result any) error
	OnFailure(err error) error
	Close()
}

type delegatedResultTarget struct {
	sink session.DelegatedTarget
	conn singleinstance.Conn
}

func newDelegatedResultTarget(conn singleinstance.Conn) delegatedResultTarget {
	return delegatedResultTarget{sink: session.DelegatedTarget{Conn: conn}, conn: conn}
}

func (t delegatedResultTarget) OnSuccess(result any) error { return t.sink.OnSuccess(result) }

func (t delegatedResultTarget) OnFailure(err error) error { return t.sink.OnFailure(err) }

func (t delegatedResultTarget) Close() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
}

// New creates a new event loop with defaults based on config.
// If cfg is nil or cfg.CaptureDeadline <= 0, a 20s deadline is used.
func New(cfg *config.Config, dispatcher Dispatcher, releaseAll func() error) *Loop {
	deadline := 20 * time.Second
	workers := 0
	if cfg != nil {
		if cfg.CaptureDeadline > 0 {
			deadline = cfg.CaptureDeadline
		}
		workers = cfg.CaptureWorkers
	}

	return &Loop{
		dispatcher:     dispatcher,
		releaseAll:     releaseAll,
		pool:           worker.New(workers),
		results:        make(chan result, 1),
		hotkeyCh:       make(chan struct{}, 4),
		inputJobs:      make(chan inputJob, inputQueueSize),
		defaultTooltip: "Desk Bridge",
		deadline:       deadline,
	}
}

// SetDefaultTooltip optionally sets the tray tooltip base text.
func (l *Loop) SetDefaultTooltip(tt string) { l.defaultTooltip = tt }

func (l *Loop) setPending(delta int) {
	l.pending += delta
	if l.pending > 0 {
		tray.UpdateTooltip("Desk Bridge: capturing...")
	} else {
		tray.UpdateTooltip(l.defaultTooltip)
	}
}

// StartHotkey registers the global release hotkey and posts events into the loop.
func (l *Loop) StartHotkey(combo string) error {
	if combo == "" {
		return nil
	}
	return hotkey.Listen(combo, l.RequestReleaseAll)
}

// RequestReleaseAll asks the loop to release every held key. Safe from any goroutine.
func (l *Loop) RequestReleaseAll() {
	select {
	case l.hotkeyCh <- struct{}{}:
	default:
	}
}

// Run starts the singleinstance server and processes client requests.
// It blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()
	defer func() {
		close(l.inputJobs)
		l.inputWG.Wait()
	}()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.inputWG.Add(1)
	go l.runInput(ctx)

	l.srv = singleinstance.NewServer()
	if err := l.srv.Start(ctx); err != nil {
		return err
	}
	defer l.srv.Close()
	if p := l.srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
		tray.SetAboutExtra(fmt.Sprintf("Resident TCP port: %d", p))
	}

	// Accept loop in background to avoid blocking result handling
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				close(reqCh)
				return
			}
			reqCh <- conn
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.hotkeyCh:
			l.handleReleaseAll()
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	req := conn.Request()
	target := newDelegatedResultTarget(conn)
	args := command.Args(req.Args)

	if !command.LongRunning(req.Command) {
		select {
		case l.inputJobs <- inputJob{name: req.Command, args: args, target: target}:
		default:
			log.Printf("handleConn: %s dropped, input queue full", req.Command)
			_ = target.OnFailure(errkind.ErrBusy)
			target.Close()
		}
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	l.setPending(1)
	submitted := l.pool.Submit(jobCtx, req.Command, func() (any, error) {
		return l.dispatcher.Dispatch(jobCtx, req.Command, args)
	}, func(value any, err error) {
		select {
		case l.results <- result{value: value, err: err, target: target, cancel: cancel, pooled: true}:
		case <-ctx.Done():
			cancel()
			target.Close()
		}
	})
	if !submitted {
		cancel()
		l.setPending(-1)
		log.Printf("handleConn: %s dropped, worker queue full", req.Command)
		_ = target.OnFailure(errkind.ErrBusy)
		target.Close()
	}
}

// runInput executes input commands one at a time until inputJobs is closed.
// Jobs still queued after ctx is done are dropped unanswered.
func (l *Loop) runInput(ctx context.Context) {
	defer l.inputWG.Done()
	for job := range l.inputJobs {
		if ctx.Err() != nil {
			job.target.Close()
			continue
		}
		jobCtx, cancel := context.WithCancel(ctx)
		l.setInputCancel(cancel)
		value, err := l.dispatcher.Dispatch(jobCtx, job.name, job.args)
		l.setInputCancel(nil)
		cancel()

		select {
		case l.results <- result{value: value, err: err, target: job.target}:
		case <-ctx.Done():
			job.target.Close()
		}
	}
}

func (l *Loop) setInputCancel(cancel context.CancelFunc) {
	l.inputMu.Lock()
	l.inputCancel = cancel
	l.inputMu.Unlock()
}

// interruptInput cancels the input command in flight, if any.
func (l *Loop) interruptInput() {
	l.inputMu.Lock()
	defer l.inputMu.Unlock()
	if l.inputCancel != nil {
		l.inputCancel()
	}
}

func (l *Loop) handleResult(res result) {
	if res.pooled {
		l.setPending(-1)
	}
	if res.cancel != nil {
		res.cancel()
	}
	l.deliver(res)
}

func (l *Loop) deliver(res result) {
	if res.target == nil {
		log.Printf("deliver: missing target")
		return
	}
	defer res.target.Close()

	if res.err != nil {
		_ = res.target.OnFailure(res.err)
		return
	}
	if err := res.target.OnSuccess(res.value); err != nil {
		log.Printf("deliver: delivery error: %v", err)
	}
}

func (l *Loop) handleReleaseAll() {
	l.interruptInput()
	if l.releaseAll == nil {
		return
	}
	if err := l.releaseAll(); err != nil {
		log.Printf("release all: %v", err)
	}
}

// Deadline returns the configured capture deadline for this loop.
func (l *Loop) Deadline() time.Duration { return l.deadline }
