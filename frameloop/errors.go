package frameloop

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrClosed               = errors.New("frame loop is closed")
	ErrOutOfDate            = errors.New("swapchain is out of date")
	ErrDeviceLost           = errors.New("device lost")
	ErrImageIndexOutOfRange = errors.New("acquired image index out of range")
	ErrFramebufferMismatch  = errors.New("framebuffer count does not match swapchain image count")
)

// FrameError reports a failed iteration. The frame it describes was dropped; the loop
// itself remains usable.
type FrameError struct {
	Frame uint64
	Stage State
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %s: %v", e.Frame, e.Stage, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsSwapchainInvalid reports whether err means the swapchain no longer matches its
// surface. Nothing rebuilds the swapchain, so such errors repeat on every later frame.
func IsSwapchainInvalid(err error) bool {
	return errors.Is(err, ErrOutOfDate)
}

func IsDeviceLost(err error) bool {
	return errors.Is(err, ErrDeviceLost)
}
