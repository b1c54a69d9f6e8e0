package vulkan

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/samples/gfx"
)

var ErrUniformBufferFull = errors.New("vulkan: per-frame uniform buffer exhausted")

type setKey struct {
	shader gfx.Shader
	images string
}

// frame holds what one frame in flight owns: its sync objects, command
// buffer, uniform ring and the descriptor sets pointing into that ring.
type frame struct {
	imageAvailable core1_0.Semaphore
	inFlight       core1_0.Fence
	commandBuffer  core1_0.CommandBuffer

	uniforms      core1_0.Buffer
	uniformMemory core1_0.DeviceMemory
	mapped        []byte
	offset        int

	sets map[setKey]core1_0.DescriptorSet
}

// frameState is the recording state between the first BeginPass and
// CommitFrame.
type frameState struct {
	frame        *frame
	skipped      bool
	imageIndex   int
	inRenderPass bool

	tracker    gfx.Tracker
	pipeline   *pipeline
	shader     *shader
	set        core1_0.DescriptorSet
	dynOffsets []int
	setDirty   bool
}

func (d *Device) createFrames() error {
	for i := range d.frames {
		f := &frame{sets: make(map[setKey]core1_0.DescriptorSet)}
		d.frames[i] = f

		var err error
		f.imageAvailable, _, err = d.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return err
		}

		f.inFlight, _, err = d.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return err
		}

		size := d.opts.UniformBufferSize
		f.uniforms, f.uniformMemory, err = d.createBuffer(size, core1_0.BufferUsageUniformBuffer, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			return err
		}

		ptr, _, err := d.deviceDriver.MapMemory(f.uniformMemory, 0, size, 0)
		if err != nil {
			return err
		}
		f.mapped = unsafe.Slice((*byte)(ptr), size)
	}
	return nil
}

func (d *Device) destroyFrames() {
	for i, f := range d.frames {
		if f == nil {
			continue
		}
		if f.commandBuffer.Initialized() {
			d.deviceDriver.FreeCommandBuffers(f.commandBuffer)
		}
		if f.mapped != nil {
			d.deviceDriver.UnmapMemory(f.uniformMemory)
		}
		if f.uniforms.Initialized() {
			d.deviceDriver.DestroyBuffer(f.uniforms, nil)
		}
		if f.uniformMemory.Initialized() {
			d.deviceDriver.FreeMemory(f.uniformMemory, nil)
		}
		if f.inFlight.Initialized() {
			d.deviceDriver.DestroyFence(f.inFlight, nil)
		}
		if f.imageAvailable.Initialized() {
			d.deviceDriver.DestroySemaphore(f.imageAvailable, nil)
		}
		d.frames[i] = nil
	}
}

// beginFrame waits for the frame slot, acquires a swapchain image and
// starts a fresh command buffer. A minimized or out of date swapchain skips
// the frame: the remaining calls are validated but record nothing.
func (d *Device) beginFrame() error {
	f := d.frames[d.currentFrame]

	_, err := d.deviceDriver.WaitForFences(true, common.NoTimeout, f.inFlight)
	if err != nil {
		return err
	}

	if d.resized || !d.swapchain.Initialized() {
		recreated, err := d.recreateSwapchain()
		if err != nil {
			return err
		}
		if !recreated {
			d.state.skipped = true
			return nil
		}
		d.resized = false
	}

	imageIndex, res, err := d.swapchainExtension.AcquireNextImage(d.swapchain, common.NoTimeout, &f.imageAvailable, nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		d.resized = true
		d.state.skipped = true
		return nil
	} else if err != nil {
		return err
	}

	if d.imagesInFlight[imageIndex].Initialized() {
		_, err := d.deviceDriver.WaitForFences(true, common.NoTimeout, d.imagesInFlight[imageIndex])
		if err != nil {
			return err
		}
	}
	d.imagesInFlight[imageIndex] = f.inFlight

	if f.commandBuffer.Initialized() {
		d.deviceDriver.FreeCommandBuffers(f.commandBuffer)
		f.commandBuffer = core1_0.CommandBuffer{}
	}
	buffers, _, err := d.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return err
	}
	f.commandBuffer = buffers[0]

	_, err = d.deviceDriver.BeginCommandBuffer(f.commandBuffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return err
	}

	f.offset = 0
	d.state.frame = f
	d.state.imageIndex = imageIndex
	return nil
}

// BeginPass starts the swapchain render pass. Color and depth are always
// cleared to the action's values.
func (d *Device) BeginPass(action gfx.PassAction) {
	if d.shutdown {
		d.state.tracker.Fail(gfx.ErrShutdown)
		return
	}
	if !d.state.tracker.BeginPass() {
		return
	}
	if d.state.frame == nil && !d.state.skipped {
		if err := d.beginFrame(); err != nil {
			d.state.tracker.Fail(errors.Wrap(err, "vulkan: begin frame"))
			return
		}
	}
	f := d.state.frame
	if f == nil {
		return
	}

	err := d.deviceDriver.CmdBeginRenderPass(f.commandBuffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  d.renderPass,
			Framebuffer: d.swapchainFramebuffers[d.state.imageIndex],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: d.swapchainExtent,
			},
			ClearValues: clearValues(action),
		})
	if err != nil {
		d.state.tracker.Fail(errors.Wrap(err, "vulkan: begin render pass"))
		return
	}
	d.state.inRenderPass = true
}

func (d *Device) ApplyDrawState(ds gfx.DrawState) {
	t := &d.state.tracker
	if !t.InPass() {
		return
	}

	p, s, err := d.resolveDrawState(ds)
	if err != nil {
		t.SetDrawState(false)
		t.Fail(err)
		return
	}
	t.SetDrawState(true)
	d.state.pipeline = p
	d.state.shader = s

	f := d.state.frame
	if f == nil {
		return
	}

	vb, _ := d.buffers.Lookup(gfx.ID(ds.VertexBuffer))
	d.deviceDriver.CmdBindPipeline(f.commandBuffer, core1_0.PipelineBindPointGraphics, p.pipeline)
	d.deviceDriver.CmdBindVertexBuffers(f.commandBuffer, 0, []core1_0.Buffer{vb.buffer}, []int{0})
	if p.desc.IndexType != gfx.IndexNone {
		ib, _ := d.buffers.Lookup(gfx.ID(ds.IndexBuffer))
		d.deviceDriver.CmdBindIndexBuffer(f.commandBuffer, ib.buffer, 0, indexType(p.desc.IndexType))
	}

	d.state.setDirty = false
	if !s.hasBindings() {
		return
	}
	set, err := d.descriptorSet(f, p.shader, s, ds.Images)
	if err != nil {
		t.Fail(err)
		return
	}
	d.state.set = set
	d.state.dynOffsets = make([]int, len(s.desc.UniformBlocks))
	d.state.setDirty = true
}

func (d *Device) resolveDrawState(ds gfx.DrawState) (*pipeline, *shader, error) {
	p, ok := d.pipelines.Lookup(gfx.ID(ds.Pipeline))
	if !ok {
		return nil, nil, errors.Wrap(gfx.ErrInvalidHandle, "vulkan: draw state pipeline")
	}
	s, ok := d.shaders.Lookup(gfx.ID(p.shader))
	if !ok {
		return nil, nil, errors.Wrapf(gfx.ErrInvalidHandle, "vulkan: pipeline %q shader", p.desc.Label)
	}
	vb, ok := d.buffers.Lookup(gfx.ID(ds.VertexBuffer))
	if !ok || vb.desc.Type != gfx.VertexBuffer {
		return nil, nil, errors.Wrapf(gfx.ErrInvalidHandle, "vulkan: pipeline %q vertex buffer", p.desc.Label)
	}
	if p.desc.IndexType != gfx.IndexNone {
		ib, ok := d.buffers.Lookup(gfx.ID(ds.IndexBuffer))
		if !ok || ib.desc.Type != gfx.IndexBuffer {
			return nil, nil, errors.Wrapf(gfx.ErrInvalidHandle, "vulkan: pipeline %q index buffer", p.desc.Label)
		}
	}
	if len(ds.Images) != len(s.desc.Images) {
		return nil, nil, errors.Newf("vulkan: pipeline %q expects %d images, got %d", p.desc.Label, len(s.desc.Images), len(ds.Images))
	}
	for i, handle := range ds.Images {
		img, ok := d.images.Lookup(gfx.ID(handle))
		if !ok {
			return nil, nil, errors.Wrapf(gfx.ErrInvalidHandle, "vulkan: pipeline %q image %d", p.desc.Label, i)
		}
		if img.desc.Type != s.desc.Images[i].Type {
			return nil, nil, errors.Newf("vulkan: pipeline %q image %d is %s, shader wants %s", p.desc.Label, i, img.desc.Type, s.desc.Images[i].Type)
		}
	}
	return p, s, nil
}

// descriptorSet returns the frame's set for shader and images, writing a
// new one on first use. Uniform bindings point at the frame's ring and are
// positioned with dynamic offsets.
func (d *Device) descriptorSet(f *frame, handle gfx.Shader, s *shader, images []gfx.Image) (core1_0.DescriptorSet, error) {
	key := setKey{shader: handle, images: fmt.Sprint(images)}
	if set, ok := f.sets[key]; ok {
		return set, nil
	}

	sets, _, err := d.deviceDriver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: d.descriptorPool,
		SetLayouts:     []core1_0.DescriptorSetLayout{s.setLayout},
	})
	if err != nil {
		return core1_0.DescriptorSet{}, errors.Wrap(err, "vulkan: allocate descriptor set")
	}
	set := sets[0]

	var writes []core1_0.WriteDescriptorSet
	for i, block := range s.desc.UniformBlocks {
		writes = append(writes, core1_0.WriteDescriptorSet{
			DstSet:          set,
			DstBinding:      i,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeUniformBufferDynamic,

			BufferInfo: []core1_0.DescriptorBufferInfo{
				{
					Buffer: f.uniforms,
					Offset: 0,
					Range:  block.Size,
				},
			},
		})
	}
	for i, imgHandle := range images {
		img, _ := d.images.Lookup(gfx.ID(imgHandle))
		writes = append(writes, core1_0.WriteDescriptorSet{
			DstSet:          set,
			DstBinding:      len(s.desc.UniformBlocks) + i,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					ImageView:   img.view,
					Sampler:     img.sampler,
					ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
				},
			},
		})
	}

	if err := d.deviceDriver.UpdateDescriptorSets(writes, nil); err != nil {
		return core1_0.DescriptorSet{}, errors.Wrap(err, "vulkan: update descriptor set")
	}
	f.sets[key] = set
	return set, nil
}

// ApplyUniforms copies the block into the frame's uniform ring at the next
// aligned offset.
func (d *Device) ApplyUniforms(stage gfx.ShaderStage, slot int, block any) {
	t := &d.state.tracker
	data, err := gfx.EncodeUniforms(block)
	if err != nil {
		t.Fail(err)
		return
	}
	var desc gfx.ShaderDesc
	if d.state.shader != nil {
		desc = d.state.shader.desc
	}
	index, ok := t.CheckUniforms(desc, stage, slot, len(data))
	if !ok {
		return
	}

	f := d.state.frame
	if f == nil {
		return
	}

	size := desc.UniformBlocks[index].Size
	offset := alignUp(f.offset, d.uniformAlign)
	if offset+size > len(f.mapped) {
		t.Fail(errors.Wrapf(ErrUniformBufferFull, "%d bytes", len(f.mapped)))
		return
	}

	dst := f.mapped[offset : offset+size]
	n := copy(dst, data)
	clear(dst[n:])
	f.offset = offset + size

	d.state.dynOffsets[index] = offset
	d.state.setDirty = true
}

func (d *Device) Draw(base, count, instances int) {
	t := &d.state.tracker
	if !t.HasDrawState() {
		return
	}
	if base < 0 || count < 0 || instances < 0 {
		t.Fail(errors.Newf("vulkan: invalid draw range base=%d count=%d instances=%d", base, count, instances))
		return
	}

	f := d.state.frame
	if f == nil || count == 0 || instances == 0 {
		return
	}

	if d.state.setDirty {
		d.deviceDriver.CmdBindDescriptorSets(f.commandBuffer, core1_0.PipelineBindPointGraphics, d.state.shader.layout, 0,
			[]core1_0.DescriptorSet{d.state.set}, d.state.dynOffsets)
		d.state.setDirty = false
	}

	if d.state.pipeline.desc.IndexType != gfx.IndexNone {
		d.deviceDriver.CmdDrawIndexed(f.commandBuffer, count, instances, base, 0, 0)
	} else {
		d.deviceDriver.CmdDraw(f.commandBuffer, count, instances, base, 0)
	}
}

func (d *Device) EndPass() {
	if !d.state.tracker.EndPass() {
		return
	}
	d.endRenderPass()
	d.state.pipeline = nil
	d.state.shader = nil
	d.state.setDirty = false
}

func (d *Device) endRenderPass() {
	if d.state.frame != nil && d.state.inRenderPass {
		d.deviceDriver.CmdEndRenderPass(d.state.frame.commandBuffer)
		d.state.inRenderPass = false
	}
}

// CommitFrame submits and presents the recorded frame, polls window events
// and returns the first error of the frame.
func (d *Device) CommitFrame() error {
	if d.shutdown {
		return gfx.ErrShutdown
	}

	if d.state.frame != nil {
		if err := d.submitFrame(); err != nil {
			d.state.tracker.Fail(errors.Wrap(err, "vulkan: submit frame"))
		}
	}
	d.pollEvents()

	err := d.state.tracker.Commit()
	d.state = frameState{}
	return err
}

func (d *Device) submitFrame() error {
	f := d.state.frame
	d.endRenderPass()

	_, err := d.deviceDriver.EndCommandBuffer(f.commandBuffer)
	if err != nil {
		return err
	}

	_, err = d.deviceDriver.ResetFences(f.inFlight)
	if err != nil {
		return err
	}

	imageIndex := d.state.imageIndex
	_, err = d.deviceDriver.QueueSubmit(d.graphicsQueue, &f.inFlight,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{f.imageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{f.commandBuffer},
			SignalSemaphores: []core1_0.Semaphore{d.renderFinished[imageIndex]},
		},
	)
	if err != nil {
		return err
	}
	d.currentFrame = (d.currentFrame + 1) % MaxFramesInFlight

	res, err := d.swapchainExtension.QueuePresent(d.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{d.renderFinished[imageIndex]},
		Swapchains:     []khr_swapchain.Swapchain{d.swapchain},
		ImageIndices:   []int{imageIndex},
	})
	if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
		d.resized = true
		return nil
	}
	return err
}
