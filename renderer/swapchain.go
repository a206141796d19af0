package renderer

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/triangle/frameloop"
)

var errAcquireTimeout = errors.New("timed out acquiring swapchain image")

type SwapChainSupportDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

func (r *Renderer) querySwapChainSupport(device core1_0.PhysicalDevice) (SwapChainSupportDetails, error) {
	var details SwapChainSupportDetails
	var err error

	details.Capabilities, _, err = r.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(r.surface, device)
	if err != nil {
		return details, err
	}

	details.Formats, _, err = r.surfaceExtension.GetPhysicalDeviceSurfaceFormats(r.surface, device)
	if err != nil {
		return details, err
	}

	details.PresentModes, _, err = r.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(r.surface, device)
	return details, err
}

func chooseSwapSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

// chooseSwapExtent uses the surface's current extent, or the drawable size clamped to
// the surface limits when the surface leaves the choice to the swapchain.
func chooseSwapExtent(capabilities *khr_surface.SurfaceCapabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	width := clamp(drawableWidth, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	height := clamp(drawableHeight, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)

	return core1_0.Extent2D{Width: width, Height: height}
}

// chooseImageCount asks for the driver minimum. A MaxImageCount of 0 means unbounded.
func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount
	if imageCount < 1 {
		imageCount = 1
	}
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func (r *Renderer) createSwapchain() error {
	r.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(r.deviceDriver)

	swapchainSupport, err := r.querySwapChainSupport(r.physicalDevice)
	if err != nil {
		return err
	}

	drawableWidth, drawableHeight := r.window.VulkanGetDrawableSize()
	surfaceFormat := chooseSwapSurfaceFormat(swapchainSupport.Formats)
	extent := chooseSwapExtent(swapchainSupport.Capabilities, int(drawableWidth), int(drawableHeight))
	imageCount := chooseImageCount(swapchainSupport.Capabilities)

	compositeAlpha := khr_surface.CompositeAlphaOpaque
	if swapchainSupport.Capabilities.SupportedCompositeAlpha&khr_surface.CompositeAlphaOpaque == 0 {
		if swapchainSupport.Capabilities.SupportedCompositeAlpha&khr_surface.CompositeAlphaInherit == 0 {
			return errors.New("createSwapchain: no supported composite alpha mode")
		}
		compositeAlpha = khr_surface.CompositeAlphaInherit
	}

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	if *r.queueFamilies.GraphicsFamily != *r.queueFamilies.PresentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *r.queueFamilies.GraphicsFamily, *r.queueFamilies.PresentFamily)
	}

	swapchain, _, err := r.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: r.surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   swapchainSupport.Capabilities.CurrentTransform,
		CompositeAlpha: compositeAlpha,
		PresentMode:    khr_surface.PresentModeFIFO,
		Clipped:        true,
	})
	if err != nil {
		return err
	}
	r.swapchainExtent = extent
	r.swapchain = swapchain
	r.swapchainImageFormat = surfaceFormat.Format

	return nil
}

func (r *Renderer) createImageViews() error {
	images, _, err := r.swapchainExtension.GetSwapchainImages(r.swapchain)
	if err != nil {
		return err
	}
	r.swapchainImages = images

	for _, image := range images {
		view, _, err := r.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   r.swapchainImageFormat,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			return err
		}

		r.swapchainImageViews = append(r.swapchainImageViews, view)
	}

	return nil
}

func (r *Renderer) ImageCount() int {
	return len(r.swapchainImages)
}

func (r *Renderer) FramebufferCount() int {
	return len(r.swapchainFramebuffers)
}

// AcquireNextImage signals the image-available semaphore once the image can be drawn to.
// That semaphore is the returned Ready signal.
func (r *Renderer) AcquireNextImage(timeout time.Duration) (frameloop.Acquisition, error) {
	if timeout == frameloop.NoTimeout {
		timeout = common.NoTimeout
	}

	imageIndex, res, err := r.swapchainExtension.AcquireNextImage(r.swapchain, timeout, &r.imageAvailableSemaphore, nil)
	if err != nil {
		return frameloop.Acquisition{}, resultError(res, err)
	}

	if res == core1_0.VKTimeout || res == core1_0.VKNotReady {
		return frameloop.Acquisition{}, errors.Wrapf(errAcquireTimeout, "after %s", timeout)
	}

	return frameloop.Acquisition{
		ImageIndex: imageIndex,
		Suboptimal: res == khr_swapchain.VKSuboptimal,
		Ready:      r.imageAvailableSemaphore,
	}, nil
}
