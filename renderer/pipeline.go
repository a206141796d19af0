package renderer

import (
	"embed"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"golang.org/x/sync/errgroup"

	"github.com/vkngwrapper/triangle/frameloop"
)

//go:generate glslc shaders/triangle.vert -o shaders/triangle.vert.spv
//go:generate glslc shaders/triangle.frag -o shaders/triangle.frag.spv

//go:embed shaders
var shaders embed.FS

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}

func readShader(name string) ([]uint32, error) {
	b, err := shaders.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s (run go generate ./renderer to compile the shaders)", name)
	}
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("%s is not SPIR-V: %d bytes", name, len(b))
	}
	return bytesToBytecode(b), nil
}

func getVertexBindingDescription() []core1_0.VertexInputBindingDescription {
	v := frameloop.Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func getVertexAttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := frameloop.Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
	}
}

// createShaderModules builds the vertex and fragment modules side by side.
func (r *Renderer) createShaderModules() (vert, frag core1_0.ShaderModule, err error) {
	group := new(errgroup.Group)

	load := func(name string, module *core1_0.ShaderModule) func() error {
		return func() error {
			code, err := readShader(name)
			if err != nil {
				return err
			}

			*module, _, err = r.deviceDriver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
				Code: code,
			})
			return errors.Wrapf(err, "create shader module %s", name)
		}
	}

	group.Go(load("shaders/triangle.vert.spv", &vert))
	group.Go(load("shaders/triangle.frag.spv", &frag))

	err = group.Wait()
	if err != nil {
		if vert.Initialized() {
			r.deviceDriver.DestroyShaderModule(vert, nil)
		}
		if frag.Initialized() {
			r.deviceDriver.DestroyShaderModule(frag, nil)
		}
		return core1_0.ShaderModule{}, core1_0.ShaderModule{}, err
	}

	return vert, frag, nil
}

func (r *Renderer) createGraphicsPipeline() error {
	vertShader, fragShader, err := r.createShaderModules()
	if err != nil {
		return err
	}
	defer r.deviceDriver.DestroyShaderModule(vertShader, nil)
	defer r.deviceDriver.DestroyShaderModule(fragShader, nil)

	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   getVertexBindingDescription(),
		VertexAttributeDescriptions: getVertexAttributeDescriptions(),
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	// The viewport itself is dynamic and set by every recorded frame.
	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				Width:    float32(r.swapchainExtent.Width),
				Height:   float32(r.swapchainExtent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: r.swapchainExtent,
			},
		},
	}

	dynamicState := &core1_0.PipelineDynamicStateCreateInfo{
		DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeNone,
		FrontFace:   core1_0.FrontFaceCounterClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	r.pipelineLayout, _, err = r.deviceDriver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{})
	if err != nil {
		return err
	}

	pipelines, _, err := r.deviceDriver.CreateGraphicsPipelines(nil, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInput,
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			ColorBlendState:    colorBlend,
			DynamicState:       dynamicState,
			Layout:             r.pipelineLayout,
			RenderPass:         r.renderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		return err
	}
	r.graphicsPipeline = pipelines[0]

	return nil
}
