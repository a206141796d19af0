package frameloop

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type callLog struct {
	calls []string
}

func (c *callLog) add(format string, args ...interface{}) {
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

// only keeps the calls starting with one of the prefixes.
func (c *callLog) only(prefixes ...string) []string {
	var out []string
	for _, call := range c.calls {
		for _, prefix := range prefixes {
			if strings.HasPrefix(call, prefix) {
				out = append(out, call)
				break
			}
		}
	}
	return out
}

type fakeSignal struct {
	name string
}

type fakeSwapchain struct {
	log          *callLog
	images       int
	framebuffers int
	suboptimal   bool
	badIndex     bool
	failOn       map[int]error

	next     int
	acquires int
	timeouts []time.Duration
}

func newFakeSwapchain(log *callLog, images int) *fakeSwapchain {
	return &fakeSwapchain{log: log, images: images, framebuffers: images}
}

func (s *fakeSwapchain) ImageCount() int       { return s.images }
func (s *fakeSwapchain) FramebufferCount() int { return s.framebuffers }

func (s *fakeSwapchain) AcquireNextImage(timeout time.Duration) (Acquisition, error) {
	call := s.acquires
	s.acquires++
	s.timeouts = append(s.timeouts, timeout)

	if err, fail := s.failOn[call]; fail {
		s.log.add("acquire failed")
		return Acquisition{}, err
	}

	index := s.next
	s.next = (s.next + 1) % s.images
	if s.badIndex {
		index = s.images
	}

	s.log.add("acquire %d", index)
	return Acquisition{
		ImageIndex: index,
		Suboptimal: s.suboptimal,
		Ready:      &fakeSignal{name: fmt.Sprintf("acquired-%d", call)},
	}, nil
}

type fakeCommandBuffer struct {
	seq CommandSequence
}

type fakeAllocator struct {
	log     *callLog
	failOn  map[int]error
	encodes int
	seqs    []CommandSequence
}

func (a *fakeAllocator) Encode(seq CommandSequence) (CommandBuffer, error) {
	call := a.encodes
	a.encodes++

	if err, fail := a.failOn[call]; fail {
		a.log.add("encode failed")
		return nil, err
	}

	a.seqs = append(a.seqs, seq)
	a.log.add("encode %d", seq.ImageIndex)
	return &fakeCommandBuffer{seq: seq}, nil
}

type fakeCompletion struct {
	log      *callLog
	name     string
	done     bool
	waitErr  error
	waited   int
	released int
}

func (c *fakeCompletion) Done() (bool, error) {
	return c.done, nil
}

func (c *fakeCompletion) Wait(ctx context.Context) error {
	c.waited++
	c.log.add("wait %s", c.name)
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.waitErr
}

func (c *fakeCompletion) Release() {
	c.released++
	c.log.add("release %s", c.name)
}

type fakeQueue struct {
	log           *callLog
	submitFailOn  map[int]error
	presentFailOn map[int]error
	abandonFailOn map[int]error
	waitErr       error
	finished      bool

	submits     int
	presents    int
	completions []*fakeCompletion
	abandoned   []*fakeCompletion
}

func (q *fakeQueue) Submit(wait Signal, cmd CommandBuffer) (Submission, error) {
	call := q.submits
	q.submits++

	if err, fail := q.submitFailOn[call]; fail {
		q.log.add("submit failed")
		return Submission{}, err
	}

	signal, ok := wait.(*fakeSignal)
	if !ok || signal == nil {
		q.log.add("submit without acquisition signal")
		return Submission{}, fmt.Errorf("submit without acquisition signal")
	}
	buffer := cmd.(*fakeCommandBuffer)

	q.log.add("submit %d after %s", buffer.seq.ImageIndex, signal.name)

	completion := q.completion(fmt.Sprintf("rendered-%d", call))
	q.completions = append(q.completions, completion)
	return Submission{
		RenderDone: &fakeSignal{name: completion.name},
		Completion: completion,
	}, nil
}

func (q *fakeQueue) Present(wait Signal, imageIndex int) error {
	call := q.presents
	q.presents++

	if err, fail := q.presentFailOn[call]; fail {
		q.log.add("present failed")
		return err
	}

	q.log.add("present %d after %s", imageIndex, wait.(*fakeSignal).name)
	return nil
}

func (q *fakeQueue) Abandon(acq Acquisition) (Completion, error) {
	call := len(q.abandoned)
	signal := acq.Ready.(*fakeSignal)

	completion := q.completion(fmt.Sprintf("abandoned-%d", call))
	q.abandoned = append(q.abandoned, completion)

	if err, fail := q.abandonFailOn[call]; fail {
		q.log.add("abandon failed")
		return nil, err
	}

	q.log.add("abandon %d after %s", acq.ImageIndex, signal.name)
	return completion, nil
}

func (q *fakeQueue) completion(name string) *fakeCompletion {
	return &fakeCompletion{log: q.log, name: name, done: q.finished, waitErr: q.waitErr}
}

// fakeHost behaves like a poll-driven window: every pump ends with EventsCleared, and a
// redraw requested during one pump is delivered at the start of the next. Pump number
// closeAt (1-based) delivers only a close request.
type fakeHost struct {
	closeAt int
	extra   map[int][]Event

	pumps   int
	pending bool
	redraws int
}

func (h *fakeHost) PumpEvents() []Event {
	h.pumps++
	if h.pumps >= h.closeAt {
		return []Event{{Kind: EventCloseRequested}}
	}

	var events []Event
	if h.pending {
		h.pending = false
		events = append(events, Event{Kind: EventRedrawRequested})
	}
	events = append(events, h.extra[h.pumps]...)
	return append(events, Event{Kind: EventsCleared})
}

func (h *fakeHost) RequestRedraw() {
	h.redraws++
	h.pending = true
}

type fixture struct {
	log       *callLog
	swapchain *fakeSwapchain
	allocator *fakeAllocator
	queue     *fakeQueue
}

func newFixture(images int) *fixture {
	log := &callLog{}
	return &fixture{
		log:       log,
		swapchain: newFakeSwapchain(log, images),
		allocator: &fakeAllocator{log: log},
		queue:     &fakeQueue{log: log},
	}
}

func (f *fixture) context() (*Context, error) {
	return NewContext(f.swapchain, f.allocator, f.queue, NewScene(800, 600))
}
