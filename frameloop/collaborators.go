package frameloop

import (
	"context"
	"time"
)

// NoTimeout makes AcquireNextImage block until an image is available.
const NoTimeout time.Duration = 0

// Signal is an opaque synchronization primitive owned by a collaborator, such as a
// semaphore signalled when an image becomes available.
type Signal interface{}

// CommandBuffer is an encoded, device-ready command sequence.
type CommandBuffer interface{}

type Acquisition struct {
	ImageIndex int
	// Suboptimal reports that the swapchain still works but no longer matches the
	// surface. The loop records it and carries on.
	Suboptimal bool
	Ready      Signal
}

type Submission struct {
	RenderDone Signal
	Completion Completion
}

// Completion tracks the device-side execution of one submission.
type Completion interface {
	// Done polls without blocking. A completion that reports done needs no Wait.
	Done() (bool, error)
	// Wait blocks until the work finishes, fails, or ctx is done.
	Wait(ctx context.Context) error
	// Release returns the resources held by the submission to their allocator. It must
	// only be called once the work is done.
	Release()
}

// Swapchain is the ring of presentable images together with their framebuffers.
type Swapchain interface {
	ImageCount() int
	FramebufferCount() int
	AcquireNextImage(timeout time.Duration) (Acquisition, error)
}

// CommandAllocator encodes a recorded sequence into a one-time-submit command buffer.
type CommandAllocator interface {
	Encode(seq CommandSequence) (CommandBuffer, error)
}

// Queue is the single graphics and present capable queue every frame is submitted to.
type Queue interface {
	// Submit enqueues cmd to execute once wait is signalled. It does not block.
	Submit(wait Signal, cmd CommandBuffer) (Submission, error)
	// Present enqueues presentation of imageIndex once wait is signalled.
	Present(wait Signal, imageIndex int) error
	// Abandon hands an acquired image back to the swapchain without drawing to it,
	// consuming acq.Ready. The returned Completion, if any, must be awaited like a
	// submission before the sync objects are reused.
	Abandon(acq Acquisition) (Completion, error)
}

type EventKind int

const (
	// EventCloseRequested is delivered when the user asks to close the window.
	EventCloseRequested EventKind = iota
	// EventRedrawRequested asks for one frame.
	EventRedrawRequested
	// EventsCleared marks the end of one batch of pumped events.
	EventsCleared
)

func (k EventKind) String() string {
	switch k {
	case EventCloseRequested:
		return "CloseRequested"
	case EventRedrawRequested:
		return "RedrawRequested"
	case EventsCleared:
		return "EventsCleared"
	}
	return "Unknown"
}

type Event struct {
	Kind EventKind
}

// Host is the window event system driving the loop.
type Host interface {
	// PumpEvents returns the events that arrived since the last call.
	PumpEvents() []Event
	// RequestRedraw schedules an EventRedrawRequested for a later pump.
	RequestRedraw()
}
