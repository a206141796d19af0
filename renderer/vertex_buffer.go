package renderer

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/triangle/frameloop"
)

// vertexBytes lays the vertices out the way getVertexAttributeDescriptions describes them.
func vertexBytes(vertices []frameloop.Vertex) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, vertices)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func findMemoryType(memoryTypes []core1_0.MemoryType, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range memoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("failed to find a memory type matching filter %x with flags %v", typeFilter, properties)
}

// createVertexBuffer uploads the scene vertices once into host-visible memory. The
// triangle is never modified, so there is no staging copy.
func (r *Renderer) createVertexBuffer(vertices []frameloop.Vertex) error {
	data, err := vertexBytes(vertices)
	if err != nil {
		return err
	}

	r.vertexBuffer, _, err = r.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        len(data),
		Usage:       core1_0.BufferUsageVertexBuffer,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return err
	}

	memRequirements := r.deviceDriver.GetBufferMemoryRequirements(r.vertexBuffer)
	memProperties := r.instanceDriver.GetPhysicalDeviceMemoryProperties(r.physicalDevice)
	memoryTypeIndex, err := findMemoryType(memProperties.MemoryTypes, memRequirements.MemoryTypeBits,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return err
	}

	r.vertexBufferMemory, _, err = r.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		return err
	}

	_, err = r.deviceDriver.BindBufferMemory(r.vertexBuffer, r.vertexBufferMemory, 0)
	if err != nil {
		return err
	}

	memoryPtr, _, err := r.deviceDriver.MapMemory(r.vertexBufferMemory, 0, len(data), 0)
	if err != nil {
		return err
	}
	defer r.deviceDriver.UnmapMemory(r.vertexBufferMemory)

	copy(unsafe.Slice((*byte)(memoryPtr), len(data)), data)
	return nil
}
