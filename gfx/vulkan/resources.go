package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/samples/gfx"
	"github.com/vkngwrapper/samples/shaders"
)

type buffer struct {
	desc   gfx.BufferDesc
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
}

type image struct {
	desc    gfx.ImageDesc
	format  core1_0.Format
	image   core1_0.Image
	memory  core1_0.DeviceMemory
	view    core1_0.ImageView
	sampler core1_0.Sampler
}

type shader struct {
	desc      gfx.ShaderDesc
	vert      core1_0.ShaderModule
	frag      core1_0.ShaderModule
	setLayout core1_0.DescriptorSetLayout
	layout    core1_0.PipelineLayout
}

func (s *shader) hasBindings() bool {
	return len(s.desc.UniformBlocks)+len(s.desc.Images) > 0
}

type pipeline struct {
	desc     gfx.PipelineDesc
	shader   gfx.Shader
	pipeline core1_0.Pipeline
}

func (d *Device) alive() error {
	if d.shutdown {
		return gfx.ErrShutdown
	}
	return nil
}

func (d *Device) MakeBuffer(desc gfx.BufferDesc) (gfx.Buffer, error) {
	if err := d.alive(); err != nil {
		return 0, err
	}
	if desc.Size == 0 {
		desc.Size = len(desc.Content)
	}
	if desc.Size <= 0 || len(desc.Content) > desc.Size {
		return 0, errors.Newf("vulkan: buffer %q has invalid size %d for %d bytes of content", desc.Label, desc.Size, len(desc.Content))
	}

	usage := core1_0.BufferUsageTransferDst | core1_0.BufferUsageVertexBuffer
	if desc.Type == gfx.IndexBuffer {
		usage = core1_0.BufferUsageTransferDst | core1_0.BufferUsageIndexBuffer
	}

	b := &buffer{desc: desc}
	var err error
	b.buffer, b.memory, err = d.createBuffer(desc.Size, usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return 0, errors.Wrapf(err, "vulkan: buffer %q", desc.Label)
	}

	if len(desc.Content) > 0 {
		if err := d.stageBuffer(b, desc.Content); err != nil {
			d.destroyBuffer(b)
			return 0, errors.Wrapf(err, "vulkan: buffer %q", desc.Label)
		}
	}
	b.desc.Content = nil

	id, err := d.buffers.Alloc(b)
	if err != nil {
		d.destroyBuffer(b)
		return 0, err
	}
	return gfx.Buffer(id), nil
}

func (d *Device) stageBuffer(b *buffer, content []byte) error {
	stagingBuffer, stagingMemory, err := d.createStagingBuffer(content)
	if err != nil {
		return err
	}
	defer d.deviceDriver.DestroyBuffer(stagingBuffer, nil)
	defer d.deviceDriver.FreeMemory(stagingMemory, nil)

	return d.copyBuffer(stagingBuffer, b.buffer, len(content))
}

func (d *Device) destroyBuffer(b *buffer) {
	if b.buffer.Initialized() {
		d.deviceDriver.DestroyBuffer(b.buffer, nil)
	}
	if b.memory.Initialized() {
		d.deviceDriver.FreeMemory(b.memory, nil)
	}
}

func (d *Device) MakeImage(desc gfx.ImageDesc) (gfx.Image, error) {
	if err := d.alive(); err != nil {
		return 0, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, errors.Newf("vulkan: image %q has invalid size %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Content != nil && len(desc.Content) != desc.ByteSize() {
		return 0, errors.Newf("vulkan: image %q content is %d bytes, want %d", desc.Label, len(desc.Content), desc.ByteSize())
	}
	format, err := pixelFormat(desc.Format)
	if err != nil {
		return 0, err
	}

	img := &image{desc: desc, format: format}
	if err := d.createTexture(img); err != nil {
		d.destroyImage(img)
		return 0, errors.Wrapf(err, "vulkan: image %q", desc.Label)
	}
	img.desc.Content = nil

	id, err := d.images.Alloc(img)
	if err != nil {
		d.destroyImage(img)
		return 0, err
	}
	return gfx.Image(id), nil
}

func (d *Device) createTexture(img *image) error {
	desc := img.desc
	layers := desc.NumLayers()

	var err error
	img.image, img.memory, err = d.createImage(imageSpec{
		width:   desc.Width,
		height:  desc.Height,
		layers:  layers,
		samples: core1_0.Samples1,
		format:  img.format,
		usage:   core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
	})
	if err != nil {
		return err
	}

	content := desc.Content
	if content == nil {
		content = make([]byte, desc.ByteSize())
	}
	if err := d.stageImage(img, core1_0.ImageLayoutUndefined, content); err != nil {
		return err
	}

	viewType := core1_0.ImageViewType2D
	if desc.Type == gfx.ImageArray {
		viewType = core1_0.ImageViewType2DArray
	}
	img.view, err = d.createImageView(img.image, img.format, viewType, core1_0.ImageAspectColor, layers)
	if err != nil {
		return err
	}

	img.sampler, _, err = d.deviceDriver.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    filter(desc.MagFilter),
		MinFilter:    filter(desc.MinFilter),
		AddressModeU: addressMode(desc.WrapU),
		AddressModeV: addressMode(desc.WrapV),
		AddressModeW: addressMode(desc.WrapU),

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeNearest,
		MinLod:     0,
		MaxLod:     0,
	})
	return err
}

func (d *Device) stageImage(img *image, oldLayout core1_0.ImageLayout, content []byte) error {
	stagingBuffer, stagingMemory, err := d.createStagingBuffer(content)
	if err != nil {
		return err
	}
	defer d.deviceDriver.DestroyBuffer(stagingBuffer, nil)
	defer d.deviceDriver.FreeMemory(stagingMemory, nil)

	return d.uploadImage(img.image, oldLayout, stagingBuffer, img.desc.Width, img.desc.Height, img.desc.NumLayers())
}

// UpdateImage replaces the pixels of a dynamic image. It waits for the GPU
// to go idle first, so it is meant for occasional updates.
func (d *Device) UpdateImage(handle gfx.Image, content []byte) error {
	if err := d.alive(); err != nil {
		return err
	}
	img, ok := d.images.Lookup(gfx.ID(handle))
	if !ok {
		return gfx.ErrInvalidHandle
	}
	if !img.desc.Dynamic {
		return errors.Newf("vulkan: image %q is not dynamic", img.desc.Label)
	}
	if len(content) != img.desc.ByteSize() {
		return errors.Newf("vulkan: image %q update is %d bytes, want %d", img.desc.Label, len(content), img.desc.ByteSize())
	}

	if _, err := d.deviceDriver.DeviceWaitIdle(); err != nil {
		return errors.Wrap(err, "vulkan: wait idle")
	}
	if err := d.stageImage(img, core1_0.ImageLayoutShaderReadOnlyOptimal, content); err != nil {
		return errors.Wrapf(err, "vulkan: update image %q", img.desc.Label)
	}
	return nil
}

func (d *Device) destroyImage(img *image) {
	if img.sampler.Initialized() {
		d.deviceDriver.DestroySampler(img.sampler, nil)
	}
	if img.view.Initialized() {
		d.deviceDriver.DestroyImageView(img.view, nil)
	}
	if img.image.Initialized() {
		d.deviceDriver.DestroyImage(img.image, nil)
	}
	if img.memory.Initialized() {
		d.deviceDriver.FreeMemory(img.memory, nil)
	}
}

func (d *Device) MakeShader(desc gfx.ShaderDesc) (gfx.Shader, error) {
	if err := d.alive(); err != nil {
		return 0, err
	}
	if desc.Name == "" {
		return 0, errors.New("vulkan: shader without name")
	}
	for i, block := range desc.UniformBlocks {
		if block.Size <= 0 {
			return 0, errors.Newf("vulkan: shader %q uniform block %d has no size", desc.Name, i)
		}
	}

	s := &shader{desc: desc}
	if err := d.createShader(s); err != nil {
		d.destroyShader(s)
		return 0, errors.Wrapf(err, "vulkan: shader %q", desc.Name)
	}

	id, err := d.shaders.Alloc(s)
	if err != nil {
		d.destroyShader(s)
		return 0, err
	}
	return gfx.Shader(id), nil
}

func (d *Device) loadShaderModule(name string, stage gfx.ShaderStage) (core1_0.ShaderModule, error) {
	code, err := shaders.Bytecode(d.opts.Shaders, name, stage)
	if err != nil {
		return core1_0.ShaderModule{}, err
	}

	module, _, err := d.deviceDriver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	return module, err
}

func (d *Device) createShader(s *shader) error {
	var err error
	s.vert, err = d.loadShaderModule(s.desc.Name, gfx.StageVertex)
	if err != nil {
		return err
	}
	s.frag, err = d.loadShaderModule(s.desc.Name, gfx.StageFragment)
	if err != nil {
		return err
	}

	var setLayouts []core1_0.DescriptorSetLayout
	if s.hasBindings() {
		s.setLayout, _, err = d.deviceDriver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
			Bindings: bindingLayout(s.desc),
		})
		if err != nil {
			return err
		}
		setLayouts = append(setLayouts, s.setLayout)
	}

	s.layout, _, err = d.deviceDriver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: setLayouts,
	})
	return err
}

func (d *Device) destroyShader(s *shader) {
	if s.layout.Initialized() {
		d.deviceDriver.DestroyPipelineLayout(s.layout, nil)
	}
	if s.setLayout.Initialized() {
		d.deviceDriver.DestroyDescriptorSetLayout(s.setLayout, nil)
	}
	if s.frag.Initialized() {
		d.deviceDriver.DestroyShaderModule(s.frag, nil)
	}
	if s.vert.Initialized() {
		d.deviceDriver.DestroyShaderModule(s.vert, nil)
	}
}

func (d *Device) MakePipeline(desc gfx.PipelineDesc) (gfx.Pipeline, error) {
	if err := d.alive(); err != nil {
		return 0, err
	}
	if _, ok := d.shaders.Lookup(gfx.ID(desc.Shader)); !ok {
		return 0, errors.Wrapf(gfx.ErrInvalidHandle, "vulkan: pipeline %q shader", desc.Label)
	}
	if desc.Layout.Empty() {
		return 0, errors.Newf("vulkan: pipeline %q has no vertex layout", desc.Label)
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = d.sampleCount
	}
	if desc.SampleCount != d.sampleCount {
		return 0, errors.Newf("vulkan: pipeline %q sample count %d does not match display %d", desc.Label, desc.SampleCount, d.sampleCount)
	}

	p := &pipeline{desc: desc, shader: desc.Shader}
	if err := d.buildPipeline(p); err != nil {
		return 0, errors.Wrapf(err, "vulkan: pipeline %q", desc.Label)
	}

	id, err := d.pipelines.Alloc(p)
	if err != nil {
		d.destroyPipeline(p)
		return 0, err
	}
	return gfx.Pipeline(id), nil
}

// buildPipeline creates the Vulkan pipeline for the current render pass and
// swapchain extent. The viewport has negative height so that +Y points up in
// clip space as the sample math expects.
func (d *Device) buildPipeline(p *pipeline) error {
	s, ok := d.shaders.Lookup(gfx.ID(p.shader))
	if !ok {
		return errors.Wrap(gfx.ErrInvalidHandle, "shader released")
	}

	vertexInputState, err := vertexInput(p.desc.Layout)
	if err != nil {
		return err
	}

	width := float32(d.swapchainExtent.Width)
	height := float32(d.swapchainExtent.Height)
	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        height,
				Width:    width,
				Height:   -height,
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: d.swapchainExtent,
			},
		},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    cullMode(p.desc.Cull),
		FrontFace:   core1_0.FrontFaceCounterClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: d.msaaSamples,
		MinSampleShading:     1.0,
	}

	depthStencil := &core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:  p.desc.Depth.Enabled(),
		DepthWriteEnable: p.desc.Depth.Write,
		DepthCompareOp:   compareOp(p.desc.Depth.Compare),
	}

	blend := core1_0.PipelineColorBlendAttachmentState{
		BlendEnabled:   p.desc.Blend.Enabled,
		ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
	}
	if p.desc.Blend.Enabled {
		blend.SrcColorBlendFactor = core1_0.BlendFactorSrcAlpha
		blend.DstColorBlendFactor = core1_0.BlendFactorOneMinusSrcAlpha
		blend.ColorBlendOp = core1_0.BlendOpAdd
		blend.SrcAlphaBlendFactor = core1_0.BlendFactorOne
		blend.DstAlphaBlendFactor = core1_0.BlendFactorOneMinusSrcAlpha
		blend.AlphaBlendOp = core1_0.BlendOpAdd
	}
	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments:    []core1_0.PipelineColorBlendAttachmentState{blend},
	}

	var cache *core1_0.PipelineCache
	if d.pipelineCache.Initialized() {
		cache = &d.pipelineCache
	}

	pipelines, _, err := d.deviceDriver.CreateGraphicsPipelines(cache, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{
					Stage:  core1_0.StageVertex,
					Module: s.vert,
					Name:   "main",
				},
				{
					Stage:  core1_0.StageFragment,
					Module: s.frag,
					Name:   "main",
				},
			},
			VertexInputState: vertexInputState,
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               topology(p.desc.Primitive),
				PrimitiveRestartEnable: false,
			},
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			DepthStencilState:  depthStencil,
			ColorBlendState:    colorBlend,
			Layout:             s.layout,
			RenderPass:         d.renderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		return err
	}
	p.pipeline = pipelines[0]
	return nil
}

func (d *Device) destroyPipeline(p *pipeline) {
	if p.pipeline.Initialized() {
		d.deviceDriver.DestroyPipeline(p.pipeline, nil)
		p.pipeline = core1_0.Pipeline{}
	}
}
