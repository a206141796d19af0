package renderer

import (
	"log"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/triangle/frameloop"
)

// Renderer owns every Vulkan and SDL handle the triangle needs. It serves as the
// swapchain, command allocator and queue of a frameloop.Context.
//
// Renderer must be created and used on the thread that initialized SDL.
type Renderer struct {
	options Options
	scene   frameloop.Scene

	sdlInitialized bool
	window         *sdl.Window

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	physicalDevice core1_0.PhysicalDevice
	queueFamilies  QueueFamilyIndices

	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	swapchainExtension    khr_swapchain.ExtensionDriver
	swapchain             khr_swapchain.Swapchain
	swapchainImages       []core1_0.Image
	swapchainImageFormat  core1_0.Format
	swapchainExtent       core1_0.Extent2D
	swapchainImageViews   []core1_0.ImageView
	swapchainFramebuffers []core1_0.Framebuffer

	renderPass       core1_0.RenderPass
	pipelineLayout   core1_0.PipelineLayout
	graphicsPipeline core1_0.Pipeline

	commandPool core1_0.CommandPool

	vertexBuffer       core1_0.Buffer
	vertexBufferMemory core1_0.DeviceMemory

	imageAvailableSemaphore core1_0.Semaphore
	renderFinishedSemaphore core1_0.Semaphore
	inFlightFence           core1_0.Fence

	destroyed bool
}

// New runs the whole setup sequence. On failure everything created so far is destroyed
// before the error is returned.
func New(options Options) (*Renderer, error) {
	r := &Renderer{options: options}

	steps := []struct {
		name string
		run  func() error
	}{
		{"init window", r.initWindow},
		{"create instance", r.createInstance},
		{"set up debug messenger", r.setupDebugMessenger},
		{"create surface", r.createSurface},
		{"pick physical device", r.pickPhysicalDevice},
		{"create logical device", r.createLogicalDevice},
		{"create swapchain", r.createSwapchain},
		{"create image views", r.createImageViews},
		{"create render pass", r.createRenderPass},
		{"create graphics pipeline", r.createGraphicsPipeline},
		{"create framebuffers", r.createFramebuffers},
		{"create command pool", r.createCommandPool},
		{"create scene", r.createScene},
		{"create sync objects", r.createSyncObjects},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			r.Destroy()
			return nil, errors.Wrap(err, step.name)
		}
	}

	log.Printf("renderer ready: %d swapchain images, %dx%d, format %v",
		len(r.swapchainImages), r.swapchainExtent.Width, r.swapchainExtent.Height, r.swapchainImageFormat)
	return r, nil
}

// createScene fixes the viewport to the initial swapchain extent and uploads the
// triangle.
func (r *Renderer) createScene() error {
	r.scene = frameloop.NewScene(r.swapchainExtent.Width, r.swapchainExtent.Height)
	r.scene.ClearColor = r.options.ClearColor
	return r.createVertexBuffer(r.scene.Vertices)
}

func (r *Renderer) FrameContext() (*frameloop.Context, error) {
	return frameloop.NewContext(r, r, r, r.scene)
}

// Destroy waits for the device to go idle and releases every handle in reverse creation
// order. It is safe on a partially constructed renderer and on repeated calls.
func (r *Renderer) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true

	if r.deviceDriver != nil {
		if _, err := r.deviceDriver.DeviceWaitIdle(); err != nil {
			log.Printf("renderer: wait for device idle: %+v", err)
		}

		if r.inFlightFence.Initialized() {
			r.deviceDriver.DestroyFence(r.inFlightFence, nil)
		}

		if r.renderFinishedSemaphore.Initialized() {
			r.deviceDriver.DestroySemaphore(r.renderFinishedSemaphore, nil)
		}

		if r.imageAvailableSemaphore.Initialized() {
			r.deviceDriver.DestroySemaphore(r.imageAvailableSemaphore, nil)
		}

		if r.vertexBuffer.Initialized() {
			r.deviceDriver.DestroyBuffer(r.vertexBuffer, nil)
		}

		if r.vertexBufferMemory.Initialized() {
			r.deviceDriver.FreeMemory(r.vertexBufferMemory, nil)
		}

		if r.commandPool.Initialized() {
			r.deviceDriver.DestroyCommandPool(r.commandPool, nil)
		}

		for _, framebuffer := range r.swapchainFramebuffers {
			r.deviceDriver.DestroyFramebuffer(framebuffer, nil)
		}
		r.swapchainFramebuffers = nil

		if r.graphicsPipeline.Initialized() {
			r.deviceDriver.DestroyPipeline(r.graphicsPipeline, nil)
		}

		if r.pipelineLayout.Initialized() {
			r.deviceDriver.DestroyPipelineLayout(r.pipelineLayout, nil)
		}

		if r.renderPass.Initialized() {
			r.deviceDriver.DestroyRenderPass(r.renderPass, nil)
		}

		for _, imageView := range r.swapchainImageViews {
			r.deviceDriver.DestroyImageView(imageView, nil)
		}
		r.swapchainImageViews = nil

		if r.swapchain.Initialized() {
			r.swapchainExtension.DestroySwapchain(r.swapchain, nil)
		}
		r.swapchainImages = nil

		r.deviceDriver.DestroyDevice(nil)
	}

	if r.surface.Initialized() {
		r.surfaceExtension.DestroySurface(r.surface, nil)
	}

	if r.debugMessenger.Initialized() {
		r.debugDriver.DestroyDebugUtilsMessenger(r.debugMessenger, nil)
	}

	if r.instanceDriver != nil {
		r.instanceDriver.DestroyInstance(nil)
	}

	if r.window != nil {
		r.window.Destroy()
	}

	if r.sdlInitialized {
		sdl.Quit()
	}
}
