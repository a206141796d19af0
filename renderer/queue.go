package renderer

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/triangle/frameloop"
)

// resultError classifies a failed call by its VkResult.
func resultError(res common.VkResult, err error) error {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return errors.Mark(err, frameloop.ErrOutOfDate)
	case core1_0.VKErrorDeviceLost:
		return errors.Mark(err, frameloop.ErrDeviceLost)
	}
	return err
}

// The loop keeps a single frame in flight, so one set of sync objects is enough.
func (r *Renderer) createSyncObjects() error {
	var err error

	r.imageAvailableSemaphore, _, err = r.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return err
	}

	r.renderFinishedSemaphore, _, err = r.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return err
	}

	r.inFlightFence, _, err = r.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: core1_0.FenceCreateSignaled,
	})
	return err
}

func (r *Renderer) Submit(wait frameloop.Signal, cmd frameloop.CommandBuffer) (frameloop.Submission, error) {
	imageAvailable, ok := wait.(core1_0.Semaphore)
	if !ok {
		return frameloop.Submission{}, errors.Newf("submit: wait signal is %T, not a semaphore", wait)
	}

	buffer, ok := cmd.(core1_0.CommandBuffer)
	if !ok {
		return frameloop.Submission{}, errors.Newf("submit: command buffer is %T", cmd)
	}

	_, err := r.deviceDriver.ResetFences(r.inFlightFence)
	if err != nil {
		r.deviceDriver.FreeCommandBuffers(buffer)
		return frameloop.Submission{}, err
	}

	res, err := r.deviceDriver.QueueSubmit(r.graphicsQueue, &r.inFlightFence,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{imageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{buffer},
			SignalSemaphores: []core1_0.Semaphore{r.renderFinishedSemaphore},
		},
	)
	if err != nil {
		r.deviceDriver.FreeCommandBuffers(buffer)
		return frameloop.Submission{}, resultError(res, err)
	}

	return frameloop.Submission{
		RenderDone: r.renderFinishedSemaphore,
		Completion: &fenceCompletion{
			driver: r.deviceDriver,
			fence:  r.inFlightFence,
			buffer: buffer,
		},
	}, nil
}

// Present queues imageIndex for display once wait is signalled. A suboptimal result
// still presents and is not reported.
func (r *Renderer) Present(wait frameloop.Signal, imageIndex int) error {
	renderFinished, ok := wait.(core1_0.Semaphore)
	if !ok {
		return errors.Newf("present: wait signal is %T, not a semaphore", wait)
	}

	res, err := r.swapchainExtension.QueuePresent(r.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{renderFinished},
		Swapchains:     []khr_swapchain.Swapchain{r.swapchain},
		ImageIndices:   []int{imageIndex},
	})
	if err != nil {
		return resultError(res, err)
	}

	return nil
}

// Abandon returns an acquired image to the swapchain by presenting it cleared. If even
// the clear cannot be encoded, the image-available semaphore is still consumed by an
// empty batch so the next acquire can signal it, but the image stays acquired.
func (r *Renderer) Abandon(acq frameloop.Acquisition) (frameloop.Completion, error) {
	imageAvailable, ok := acq.Ready.(core1_0.Semaphore)
	if !ok {
		return nil, errors.Newf("abandon: ready signal is %T, not a semaphore", acq.Ready)
	}

	cmd, err := r.Encode(frameloop.ClearFrame(r.scene, acq.ImageIndex))
	if err != nil {
		completion, waitErr := r.consume(imageAvailable)
		if waitErr != nil {
			return nil, waitErr
		}
		return completion, errors.Wrapf(err, "image %d left acquired", acq.ImageIndex)
	}

	submission, err := r.Submit(imageAvailable, cmd)
	if err != nil {
		return nil, err
	}

	return submission.Completion, r.Present(submission.RenderDone, acq.ImageIndex)
}

// consume submits a batch with no commands that only waits on semaphore.
func (r *Renderer) consume(semaphore core1_0.Semaphore) (frameloop.Completion, error) {
	_, err := r.deviceDriver.ResetFences(r.inFlightFence)
	if err != nil {
		return nil, err
	}

	res, err := r.deviceDriver.QueueSubmit(r.graphicsQueue, &r.inFlightFence,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{semaphore},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		},
	)
	if err != nil {
		return nil, resultError(res, err)
	}

	return &fenceCompletion{driver: r.deviceDriver, fence: r.inFlightFence}, nil
}

// fenceCompletion is signalled through the fence passed to QueueSubmit.
type fenceCompletion struct {
	driver   core1_0.CoreDeviceDriver
	fence    core1_0.Fence
	buffer   core1_0.CommandBuffer
	released bool
}

func (c *fenceCompletion) Done() (bool, error) {
	res, err := c.driver.GetFenceStatus(c.fence)
	if err != nil {
		return false, resultError(res, err)
	}
	return res == core1_0.VKSuccess, nil
}

func (c *fenceCompletion) Wait(ctx context.Context) error {
	for {
		res, err := c.driver.WaitForFences(true, fenceWaitSlice, c.fence)
		if err != nil {
			return resultError(res, err)
		}
		if res != core1_0.VKTimeout {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (c *fenceCompletion) Release() {
	if c.released {
		return
	}
	c.released = true
	if c.buffer.Initialized() {
		c.driver.FreeCommandBuffers(c.buffer)
	}
}
