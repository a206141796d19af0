package frameloop

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/loov/hrtime"
)

type State int

const (
	StateIdle State = iota
	StateAcquiring
	StateRecording
	StateSubmitted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiring:
		return "acquiring"
	case StateRecording:
		return "recording"
	case StateSubmitted:
		return "submitted"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Config struct {
	// AcquireTimeout bounds AcquireNextImage. NoTimeout blocks.
	AcquireTimeout time.Duration
	// ReportInterval logs Stats periodically while Run is active. Zero disables it.
	ReportInterval time.Duration
	Logger         *log.Logger
}

// Loop produces one rendered and presented frame per redraw request. Iterations run
// strictly one after another and at most one submission is in flight.
type Loop struct {
	id     uuid.UUID
	ctx    *Context
	cfg    Config
	logger *log.Logger

	closed int32
	state  State
	frame  uint64

	inFlight   Completion
	suboptimal bool

	stats      Stats
	lastReport time.Duration
}

func New(frameCtx *Context, cfg Config) *Loop {
	id := uuid.New()

	base := cfg.Logger
	if base == nil {
		base = log.Default()
	}
	logger := log.New(base.Writer(), fmt.Sprintf("%s[frameloop %s] ", base.Prefix(), id.String()[:8]), base.Flags())

	return &Loop{
		id:     id,
		ctx:    frameCtx,
		cfg:    cfg,
		logger: logger,
		state:  StateIdle,
	}
}

func (l *Loop) ID() uuid.UUID {
	return l.id
}

func (l *Loop) State() State {
	if l.Closed() {
		return StateClosed
	}
	return l.state
}

func (l *Loop) Stats() Stats {
	return l.stats
}

// RequestClose stops the loop from starting further iterations. Work already submitted
// is left to finish on its own.
func (l *Loop) RequestClose() {
	atomic.StoreInt32(&l.closed, 1)
}

func (l *Loop) Closed() bool {
	return atomic.LoadInt32(&l.closed) != 0
}

// RunIteration runs Idle → Acquiring → Recording → Submitted → Idle once. A failure at
// any stage abandons the frame and is returned as a *FrameError; the loop stays usable.
func (l *Loop) RunIteration(ctx context.Context) error {
	if l.Closed() {
		return ErrClosed
	}

	frame := l.frame
	l.frame++
	start := hrtime.Now()

	// The previous frame's command buffer and sync objects are reused, so it has to be
	// consumed before anything new is acquired.
	if err := l.retire(ctx); err != nil {
		return l.drop(frame, StateIdle, err)
	}

	l.state = StateAcquiring
	acq, err := l.ctx.AcquireNextImage(l.cfg.AcquireTimeout)
	if err != nil {
		return l.drop(frame, StateAcquiring, err)
	}
	l.observeSuboptimal(frame, acq.Suboptimal)

	l.state = StateRecording
	_, cmd, err := l.ctx.RecordFrame(acq.ImageIndex)
	if err != nil {
		l.abandon(frame, acq)
		return l.drop(frame, StateRecording, err)
	}

	l.state = StateSubmitted
	completion, err := l.ctx.SubmitAndPresent(acq, cmd)
	if completion != nil {
		l.inFlight = completion
	} else if err != nil {
		l.abandon(frame, acq)
	}
	if err != nil {
		return l.drop(frame, StateSubmitted, err)
	}

	l.stats.presented(hrtime.Since(start))
	l.state = StateIdle
	return nil
}

// Run drives the loop from host events until a close request arrives or ctx is done.
// Redraws are requested continuously. Per-frame failures are logged and the next redraw
// proceeds as usual.
func (l *Loop) Run(ctx context.Context, host Host) error {
	l.logger.Printf("started with %d swapchain images", l.ctx.Swapchain.ImageCount())
	l.lastReport = hrtime.Now()
	defer func() {
		l.logger.Printf("stopped: %s", l.stats)
	}()

	for !l.Closed() {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, event := range host.PumpEvents() {
			switch event.Kind {
			case EventCloseRequested:
				l.RequestClose()
			case EventsCleared:
				if !l.Closed() {
					host.RequestRedraw()
				}
			case EventRedrawRequested:
				if l.Closed() {
					continue
				}
				if err := l.RunIteration(ctx); err != nil {
					l.logger.Printf("rendering error: %v", err)
				}
			}
		}

		l.maybeReport()
	}

	return nil
}

// Drain waits for the last submitted frame, if any, and releases it.
func (l *Loop) Drain(ctx context.Context) error {
	return l.retire(ctx)
}

func (l *Loop) retire(ctx context.Context) error {
	if l.inFlight == nil {
		return nil
	}

	if done, err := l.inFlight.Done(); err != nil || !done {
		if err := l.inFlight.Wait(ctx); err != nil {
			return errors.Wrap(err, "wait for previous frame")
		}
	}

	l.inFlight.Release()
	l.inFlight = nil
	return nil
}

// abandon gives back an image acquired by a frame that is being dropped, so the
// swapchain and its acquire semaphore are not left pending.
func (l *Loop) abandon(frame uint64, acq Acquisition) {
	completion, err := l.ctx.Abandon(acq)
	if completion != nil {
		l.inFlight = completion
	}
	if err != nil {
		l.logger.Printf("frame %d: %v", frame, err)
	}
}

func (l *Loop) drop(frame uint64, stage State, err error) error {
	l.stats.Dropped++
	l.state = StateIdle
	return &FrameError{Frame: frame, Stage: stage, Err: err}
}

func (l *Loop) observeSuboptimal(frame uint64, suboptimal bool) {
	if suboptimal {
		l.stats.Suboptimal++
		if !l.suboptimal {
			l.logger.Printf("frame %d: swapchain is suboptimal for the surface, continuing", frame)
		}
	}
	l.suboptimal = suboptimal
}

func (l *Loop) maybeReport() {
	if l.cfg.ReportInterval <= 0 {
		return
	}

	now := hrtime.Now()
	if now-l.lastReport < l.cfg.ReportInterval {
		return
	}

	l.lastReport = now
	l.logger.Printf("%s", l.stats)
}
