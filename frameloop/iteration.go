package frameloop

import (
	"time"

	"github.com/cockroachdb/errors"
)

// AcquireNextImage waits for the next presentable image and checks that its index
// addresses a framebuffer.
func (c *Context) AcquireNextImage(timeout time.Duration) (Acquisition, error) {
	acq, err := c.Swapchain.AcquireNextImage(timeout)
	if err != nil {
		return Acquisition{}, err
	}

	count := c.Swapchain.FramebufferCount()
	if acq.ImageIndex < 0 || acq.ImageIndex >= count {
		return Acquisition{}, errors.Wrapf(ErrImageIndexOutOfRange, "index %d, %d framebuffers", acq.ImageIndex, count)
	}

	return acq, nil
}

// RecordFrame records a fresh command sequence for imageIndex and encodes it.
func (c *Context) RecordFrame(imageIndex int) (CommandSequence, CommandBuffer, error) {
	seq := RecordFrame(c.Scene, imageIndex)

	cmd, err := c.Allocator.Encode(seq)
	if err != nil {
		return seq, nil, errors.Wrap(err, "encode command buffer")
	}

	return seq, cmd, nil
}

// SubmitAndPresent chains execution of cmd after the acquisition signal and presentation
// after execution, all on the one queue. It returns without waiting for the device.
//
// If presentation fails after the submission was accepted, the returned Completion is
// still non-nil: the work is in flight and must be awaited before its buffer is reused.
func (c *Context) SubmitAndPresent(acq Acquisition, cmd CommandBuffer) (Completion, error) {
	submission, err := c.Queue.Submit(acq.Ready, cmd)
	if err != nil {
		return nil, errors.Wrap(err, "submit")
	}

	err = c.Queue.Present(submission.RenderDone, acq.ImageIndex)
	if err != nil {
		return submission.Completion, errors.Wrapf(err, "present image %d", acq.ImageIndex)
	}

	return submission.Completion, nil
}

// Abandon returns an image acquired by a frame that never reached submission.
func (c *Context) Abandon(acq Acquisition) (Completion, error) {
	completion, err := c.Queue.Abandon(acq)
	if err != nil {
		return completion, errors.Wrapf(err, "abandon image %d", acq.ImageIndex)
	}
	return completion, nil
}
