package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/triangle/frameloop"
)

func (r *Renderer) createCommandPool() error {
	pool, _, err := r.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: *r.queueFamilies.GraphicsFamily,
	})
	if err != nil {
		return err
	}

	r.commandPool = pool
	return nil
}

// Encode allocates a fresh primary command buffer and records seq into it for a single
// submission. The buffer goes back to the pool when the submission's completion is
// released.
func (r *Renderer) Encode(seq frameloop.CommandSequence) (frameloop.CommandBuffer, error) {
	if seq.ImageIndex < 0 || seq.ImageIndex >= len(r.swapchainFramebuffers) {
		return nil, errors.Wrapf(frameloop.ErrImageIndexOutOfRange, "encode for image %d", seq.ImageIndex)
	}

	buffers, _, err := r.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        r.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return nil, err
	}
	buffer := buffers[0]

	err = r.record(buffer, seq)
	if err != nil {
		r.deviceDriver.FreeCommandBuffers(buffer)
		return nil, err
	}

	return buffer, nil
}

func (r *Renderer) record(buffer core1_0.CommandBuffer, seq frameloop.CommandSequence) error {
	_, err := r.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return err
	}

	for _, op := range seq.Ops {
		err = r.encodeOp(buffer, op)
		if err != nil {
			return errors.Wrapf(err, "encode %s", op)
		}
	}

	_, err = r.deviceDriver.EndCommandBuffer(buffer)
	return err
}

func (r *Renderer) encodeOp(buffer core1_0.CommandBuffer, op frameloop.Op) error {
	switch op := op.(type) {
	case frameloop.OpBeginRenderPass:
		c := op.ClearColor
		return r.deviceDriver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
			core1_0.RenderPassBeginInfo{
				RenderPass:  r.renderPass,
				Framebuffer: r.swapchainFramebuffers[op.Framebuffer],
				RenderArea: core1_0.Rect2D{
					Offset: core1_0.Offset2D{X: 0, Y: 0},
					Extent: r.swapchainExtent,
				},
				ClearValues: []core1_0.ClearValue{
					core1_0.ClearValueFloat{c.R, c.G, c.B, c.A},
				},
			})
	case frameloop.OpSetViewport:
		v := op.Viewport
		r.deviceDriver.CmdSetViewport(buffer, core1_0.Viewport{
			X:        v.X,
			Y:        v.Y,
			Width:    v.Width,
			Height:   v.Height,
			MinDepth: v.MinDepth,
			MaxDepth: v.MaxDepth,
		})
	case frameloop.OpBindPipeline:
		r.deviceDriver.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, r.graphicsPipeline)
	case frameloop.OpBindVertexBuffer:
		r.deviceDriver.CmdBindVertexBuffers(buffer, op.Binding, []core1_0.Buffer{r.vertexBuffer}, []int{op.Offset})
	case frameloop.OpDraw:
		r.deviceDriver.CmdDraw(buffer, op.VertexCount, op.InstanceCount, uint32(op.FirstVertex), uint32(op.FirstInstance))
	case frameloop.OpEndRenderPass:
		r.deviceDriver.CmdEndRenderPass(buffer)
	default:
		return errors.Newf("unsupported command %T", op)
	}
	return nil
}
