package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
)

var ErrNoSuitableDevice = errors.New("failed to find a suitable GPU")

type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

// Unique lists the distinct families, graphics first.
func (i *QueueFamilyIndices) Unique() []int {
	families := []int{*i.GraphicsFamily}
	if *i.PresentFamily != *i.GraphicsFamily {
		families = append(families, *i.PresentFamily)
	}
	return families
}

// findQueueFamilies walks the families in order. A family that can both draw and present
// is preferred, so the frame loop ends up submitting and presenting on one queue.
func findQueueFamilies(graphics []bool, presentSupported func(family int) (bool, error)) (QueueFamilyIndices, error) {
	indices := QueueFamilyIndices{}

	for family, canDraw := range graphics {
		canPresent, err := presentSupported(family)
		if err != nil {
			return indices, err
		}

		if canDraw && canPresent {
			shared := family
			return QueueFamilyIndices{GraphicsFamily: &shared, PresentFamily: &shared}, nil
		}

		if canDraw && indices.GraphicsFamily == nil {
			indices.GraphicsFamily = new(int)
			*indices.GraphicsFamily = family
		}

		if canPresent && indices.PresentFamily == nil {
			indices.PresentFamily = new(int)
			*indices.PresentFamily = family
		}
	}

	return indices, nil
}

func (r *Renderer) findQueueFamilies(device core1_0.PhysicalDevice) (QueueFamilyIndices, error) {
	queueFamilies := r.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(device)

	graphics := make([]bool, len(queueFamilies))
	for family, queueFamily := range queueFamilies {
		graphics[family] = (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0
	}

	return findQueueFamilies(graphics, func(family int) (bool, error) {
		supported, _, err := r.surfaceExtension.GetPhysicalDeviceSurfaceSupport(r.surface, device, family)
		return supported, err
	})
}

func (r *Renderer) pickPhysicalDevice() error {
	physicalDevices, _, err := r.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return err
	}

	for _, device := range physicalDevices {
		if r.isDeviceSuitable(device) {
			r.physicalDevice = device
			break
		}
	}

	if !r.physicalDevice.Initialized() {
		return errors.Wrapf(ErrNoSuitableDevice, "checked %d devices", len(physicalDevices))
	}

	r.queueFamilies, err = r.findQueueFamilies(r.physicalDevice)
	return err
}

func (r *Renderer) isDeviceSuitable(device core1_0.PhysicalDevice) bool {
	indices, err := r.findQueueFamilies(device)
	if err != nil {
		return false
	}

	if !r.checkDeviceExtensionSupport(device) {
		return false
	}

	swapChainSupport, err := r.querySwapChainSupport(device)
	if err != nil {
		return false
	}

	swapChainAdequate := len(swapChainSupport.Formats) > 0 && len(swapChainSupport.PresentModes) > 0
	return indices.IsComplete() && swapChainAdequate
}

func (r *Renderer) checkDeviceExtensionSupport(device core1_0.PhysicalDevice) bool {
	extensions, _, err := r.instanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return false
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func (r *Renderer) createLogicalDevice() error {
	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range r.queueFamilies.Unique() {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	// Needed to run on MoltenVK
	extensions, _, err := r.instanceDriver.EnumerateDeviceExtensionProperties(r.physicalDevice)
	if err != nil {
		return err
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	r.deviceDriver, _, err = r.instanceDriver.CreateDevice(r.physicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueFamilyOptions,
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return err
	}

	r.graphicsQueue = r.deviceDriver.GetQueue(*r.queueFamilies.GraphicsFamily, 0)
	r.presentQueue = r.deviceDriver.GetQueue(*r.queueFamilies.PresentFamily, 0)
	return nil
}
