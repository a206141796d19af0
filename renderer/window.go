package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"

	"github.com/vkngwrapper/triangle/frameloop"
)

func (r *Renderer) initWindow() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "init sdl")
	}
	r.sdlInitialized = true

	window, err := sdl.CreateWindow(r.options.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(r.options.Width), int32(r.options.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return errors.Wrap(err, "create window")
	}
	r.window = window

	r.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return errors.Wrap(err, "load vulkan")
	}

	return nil
}

// Host adapts the SDL event queue to the frame loop. Redraws requested during one pump
// are delivered at the start of the next, except while the window is minimized.
type Host struct {
	pending   bool
	minimized bool
}

func (r *Renderer) Host() *Host {
	return &Host{minimized: isMinimized(r.window.GetFlags())}
}

func isMinimized(flags uint32) bool {
	return flags&sdl.WINDOW_MINIMIZED != 0
}

func (h *Host) PumpEvents() []frameloop.Event {
	var events []frameloop.Event
	if h.pending && !h.minimized {
		events = append(events, frameloop.Event{Kind: frameloop.EventRedrawRequested})
	}
	h.pending = false

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			events = append(events, frameloop.Event{Kind: frameloop.EventCloseRequested})
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_CLOSE:
				events = append(events, frameloop.Event{Kind: frameloop.EventCloseRequested})
			case sdl.WINDOWEVENT_MINIMIZED:
				h.minimized = true
			case sdl.WINDOWEVENT_RESTORED:
				h.minimized = false
			}
		}
	}

	return append(events, frameloop.Event{Kind: frameloop.EventsCleared})
}

func (h *Host) RequestRedraw() {
	h.pending = true
}
