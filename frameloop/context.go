package frameloop

import "github.com/cockroachdb/errors"

// Context bundles the externally constructed handles a loop iteration works with.
// It is owned by the Loop and passed by reference into each iteration.
type Context struct {
	Swapchain Swapchain
	Allocator CommandAllocator
	Queue     Queue
	Scene     Scene
}

func NewContext(swapchain Swapchain, allocator CommandAllocator, queue Queue, scene Scene) (*Context, error) {
	if swapchain == nil || allocator == nil || queue == nil {
		return nil, errors.New("frame context requires a swapchain, a command allocator and a queue")
	}

	imageCount := swapchain.ImageCount()
	if imageCount <= 0 {
		return nil, errors.Newf("swapchain has %d images", imageCount)
	}

	framebufferCount := swapchain.FramebufferCount()
	if framebufferCount != imageCount {
		return nil, errors.Wrapf(ErrFramebufferMismatch, "%d framebuffers for %d swapchain images", framebufferCount, imageCount)
	}

	if err := scene.validate(); err != nil {
		return nil, err
	}

	return &Context{
		Swapchain: swapchain,
		Allocator: allocator,
		Queue:     queue,
		Scene:     scene,
	}, nil
}
