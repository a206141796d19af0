package frameloop

import (
	"fmt"

	"github.com/g3n/engine/math32"
)

// Op is one entry in a recorded command sequence. The set of implementations is closed;
// a CommandAllocator translates each of them into the matching device command.
type Op interface {
	fmt.Stringer
	isOp()
}

type OpBeginRenderPass struct {
	Framebuffer int
	ClearColor  math32.Color4
}

type OpSetViewport struct {
	Viewport Viewport
}

type OpBindPipeline struct{}

type OpBindVertexBuffer struct {
	Binding int
	Offset  int
}

type OpDraw struct {
	VertexCount   int
	InstanceCount int
	FirstVertex   int
	FirstInstance int
}

type OpEndRenderPass struct{}

func (OpBeginRenderPass) isOp()  {}
func (OpSetViewport) isOp()      {}
func (OpBindPipeline) isOp()     {}
func (OpBindVertexBuffer) isOp() {}
func (OpDraw) isOp()             {}
func (OpEndRenderPass) isOp()    {}

func (o OpBeginRenderPass) String() string {
	c := o.ClearColor
	return fmt.Sprintf("BeginRenderPass(framebuffer=%d, clear=[%g %g %g %g])", o.Framebuffer, c.R, c.G, c.B, c.A)
}

func (o OpSetViewport) String() string {
	v := o.Viewport
	return fmt.Sprintf("SetViewport(%g,%g %gx%g depth=%g..%g)", v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
}

func (OpBindPipeline) String() string { return "BindPipeline" }

func (o OpBindVertexBuffer) String() string {
	return fmt.Sprintf("BindVertexBuffer(binding=%d, offset=%d)", o.Binding, o.Offset)
}

func (o OpDraw) String() string {
	return fmt.Sprintf("Draw(vertices=%d, instances=%d, first=%d, firstInstance=%d)",
		o.VertexCount, o.InstanceCount, o.FirstVertex, o.FirstInstance)
}

func (OpEndRenderPass) String() string { return "EndRenderPass" }

// CommandSequence is a single-use list of operations targeting one swapchain image.
type CommandSequence struct {
	ImageIndex int
	Ops        []Op
}

// Draws returns the draw operations in the sequence.
func (s CommandSequence) Draws() []OpDraw {
	var draws []OpDraw
	for _, op := range s.Ops {
		if draw, ok := op.(OpDraw); ok {
			draws = append(draws, draw)
		}
	}
	return draws
}

// RecordFrame builds the commands that render the scene into framebuffer imageIndex.
// It has no side effects: the same scene and index always produce an equal sequence.
func RecordFrame(scene Scene, imageIndex int) CommandSequence {
	return CommandSequence{
		ImageIndex: imageIndex,
		Ops: []Op{
			OpBeginRenderPass{Framebuffer: imageIndex, ClearColor: scene.ClearColor},
			OpSetViewport{Viewport: scene.Viewport},
			OpBindPipeline{},
			OpBindVertexBuffer{Binding: 0, Offset: 0},
			OpDraw{VertexCount: len(scene.Vertices), InstanceCount: 1},
			OpEndRenderPass{},
		},
	}
}

// ClearFrame clears framebuffer imageIndex and draws nothing. Its render pass leaves the
// image ready for presentation, so it can stand in for a frame that failed to record.
func ClearFrame(scene Scene, imageIndex int) CommandSequence {
	return CommandSequence{
		ImageIndex: imageIndex,
		Ops: []Op{
			OpBeginRenderPass{Framebuffer: imageIndex, ClearColor: scene.ClearColor},
			OpEndRenderPass{},
		},
	}
}
