package renderer

import (
	"time"

	"github.com/g3n/engine/math32"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

// fenceWaitSlice bounds a single fence wait so a completion can notice cancellation.
const fenceWaitSlice = 100 * time.Millisecond

type Options struct {
	Title         string
	Width, Height int

	EnableValidation bool
	ClearColor       math32.Color4
}

func DefaultOptions() Options {
	return Options{
		Title:            "Vulkan Triangle",
		Width:            800,
		Height:           600,
		EnableValidation: true,
		ClearColor:       math32.Color4{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}
}
