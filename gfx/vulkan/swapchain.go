package vulkan

import (
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/samples/gfx"
)

// attachment is an offscreen render target: the MSAA color buffer or the
// depth buffer.
type attachment struct {
	image  core1_0.Image
	memory core1_0.DeviceMemory
	view   core1_0.ImageView
}

func (d *Device) destroyAttachment(a *attachment) {
	if a.view.Initialized() {
		d.deviceDriver.DestroyImageView(a.view, nil)
	}
	if a.image.Initialized() {
		d.deviceDriver.DestroyImage(a.image, nil)
	}
	if a.memory.Initialized() {
		d.deviceDriver.FreeMemory(a.memory, nil)
	}
	*a = attachment{}
}

func (d *Device) createSwapchainResources() error {
	steps := []func() error{
		d.createSwapchain,
		d.createImageViews,
		d.createRenderPass,
		d.createColorResources,
		d.createDepthResources,
		d.createFramebuffers,
		d.createPresentSync,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) cleanupSwapchain() {
	for _, semaphore := range d.renderFinished {
		d.deviceDriver.DestroySemaphore(semaphore, nil)
	}
	d.renderFinished = nil
	d.imagesInFlight = nil

	for _, framebuffer := range d.swapchainFramebuffers {
		d.deviceDriver.DestroyFramebuffer(framebuffer, nil)
	}
	d.swapchainFramebuffers = nil

	d.destroyAttachment(&d.color)
	d.destroyAttachment(&d.depth)

	if d.renderPass.Initialized() {
		d.deviceDriver.DestroyRenderPass(d.renderPass, nil)
		d.renderPass = core1_0.RenderPass{}
	}

	for _, imageView := range d.swapchainImageViews {
		d.deviceDriver.DestroyImageView(imageView, nil)
	}
	d.swapchainImageViews = nil

	if d.swapchain.Initialized() {
		d.swapchainExtension.DestroySwapchain(d.swapchain, nil)
		d.swapchain = khr_swapchain.Swapchain{}
	}
	d.swapchainImages = nil
}

// recreateSwapchain rebuilds everything that depends on the window size,
// pipelines included since their viewport is baked in. It reports false
// without touching anything while the window is minimized.
func (d *Device) recreateSwapchain() (bool, error) {
	w, h := d.window.VulkanGetDrawableSize()
	if w == 0 || h == 0 {
		return false, nil
	}
	if (d.window.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return false, nil
	}

	_, err := d.deviceDriver.DeviceWaitIdle()
	if err != nil {
		return false, err
	}

	d.pipelines.Each(func(_ gfx.ID, p *pipeline) { d.destroyPipeline(p) })
	d.cleanupSwapchain()

	if err := d.createSwapchainResources(); err != nil {
		return false, err
	}

	var buildErr error
	d.pipelines.Each(func(_ gfx.ID, p *pipeline) {
		if buildErr == nil {
			buildErr = d.buildPipeline(p)
		}
	})
	if buildErr != nil {
		return false, buildErr
	}

	d.logger.Printf("vulkan: swapchain recreated at %dx%d", d.swapchainExtent.Width, d.swapchainExtent.Height)
	return true, nil
}

func (d *Device) createSwapchain() error {
	d.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(d.deviceDriver)

	swapchainSupport, err := d.querySwapchainSupport(d.physicalDevice)
	if err != nil {
		return err
	}

	surfaceFormat := chooseSwapSurfaceFormat(swapchainSupport.Formats)
	presentMode := chooseSwapPresentMode(swapchainSupport.PresentModes)
	extent := d.chooseSwapExtent(swapchainSupport.Capabilities)

	imageCount := swapchainSupport.Capabilities.MinImageCount + 1
	if swapchainSupport.Capabilities.MaxImageCount > 0 && swapchainSupport.Capabilities.MaxImageCount < imageCount {
		imageCount = swapchainSupport.Capabilities.MaxImageCount
	}

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	indices := d.queueFamilies
	if *indices.GraphicsFamily != *indices.PresentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *indices.GraphicsFamily, *indices.PresentFamily)
	}

	swapchain, _, err := d.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: d.surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   swapchainSupport.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return err
	}
	d.swapchainExtent = extent
	d.swapchain = swapchain
	d.swapchainImageFormat = surfaceFormat.Format

	return nil
}

func (d *Device) createImageViews() error {
	images, _, err := d.swapchainExtension.GetSwapchainImages(d.swapchain)
	if err != nil {
		return err
	}
	d.swapchainImages = images

	for _, img := range images {
		view, err := d.createImageView(img, d.swapchainImageFormat, core1_0.ImageViewType2D, core1_0.ImageAspectColor, 1)
		if err != nil {
			return err
		}
		d.swapchainImageViews = append(d.swapchainImageViews, view)
	}
	return nil
}

// createRenderPass renders straight into the swapchain image without MSAA
// and into a multisampled color target resolved to it otherwise.
func (d *Device) createRenderPass() error {
	depth := core1_0.AttachmentDescription{
		Format:         d.depthFormat,
		Samples:        d.msaaSamples,
		LoadOp:         core1_0.AttachmentLoadOpClear,
		StoreOp:        core1_0.AttachmentStoreOpDontCare,
		StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
		StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
		InitialLayout:  core1_0.ImageLayoutUndefined,
		FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpass := core1_0.SubpassDescription{
		PipelineBindPoint: core1_0.PipelineBindPointGraphics,
		ColorAttachments: []core1_0.AttachmentReference{
			{
				Attachment: 0,
				Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
			},
		},
		DepthStencilAttachment: &core1_0.AttachmentReference{
			Attachment: 1,
			Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	var attachments []core1_0.AttachmentDescription
	if d.sampleCount > 1 {
		attachments = []core1_0.AttachmentDescription{
			{
				Format:         d.swapchainImageFormat,
				Samples:        d.msaaSamples,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
			depth,
			{
				Format:         d.swapchainImageFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpDontCare,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		}
		subpass.ResolveAttachments = []core1_0.AttachmentReference{
			{
				Attachment: 2,
				Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
			},
		}
	} else {
		attachments = []core1_0.AttachmentDescription{
			{
				Format:         d.swapchainImageFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
			depth,
		}
	}

	renderPass, _, err := d.deviceDriver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: attachments,
		Subpasses:   []core1_0.SubpassDescription{subpass},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	if err != nil {
		return err
	}

	d.renderPass = renderPass
	return nil
}

func (d *Device) createColorResources() error {
	if d.sampleCount <= 1 {
		return nil
	}

	var err error
	d.color.image, d.color.memory, err = d.createImage(imageSpec{
		width:   d.swapchainExtent.Width,
		height:  d.swapchainExtent.Height,
		layers:  1,
		samples: d.msaaSamples,
		format:  d.swapchainImageFormat,
		usage:   core1_0.ImageUsageTransientAttachment | core1_0.ImageUsageColorAttachment,
	})
	if err != nil {
		return err
	}

	d.color.view, err = d.createImageView(d.color.image, d.swapchainImageFormat, core1_0.ImageViewType2D, core1_0.ImageAspectColor, 1)
	return err
}

func (d *Device) createDepthResources() error {
	var err error
	d.depth.image, d.depth.memory, err = d.createImage(imageSpec{
		width:   d.swapchainExtent.Width,
		height:  d.swapchainExtent.Height,
		layers:  1,
		samples: d.msaaSamples,
		format:  d.depthFormat,
		usage:   core1_0.ImageUsageDepthStencilAttachment,
	})
	if err != nil {
		return err
	}

	d.depth.view, err = d.createImageView(d.depth.image, d.depthFormat, core1_0.ImageViewType2D, core1_0.ImageAspectDepth, 1)
	return err
}

func (d *Device) createFramebuffers() error {
	for _, imageView := range d.swapchainImageViews {
		attachments := []core1_0.ImageView{imageView, d.depth.view}
		if d.sampleCount > 1 {
			attachments = []core1_0.ImageView{d.color.view, d.depth.view, imageView}
		}

		framebuffer, _, err := d.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass:  d.renderPass,
			Layers:      1,
			Attachments: attachments,
			Width:       d.swapchainExtent.Width,
			Height:      d.swapchainExtent.Height,
		})
		if err != nil {
			return err
		}

		d.swapchainFramebuffers = append(d.swapchainFramebuffers, framebuffer)
	}
	return nil
}

// createPresentSync creates one render-finished semaphore per swapchain
// image and resets the image to fence tracking.
func (d *Device) createPresentSync() error {
	for i := 0; i < len(d.swapchainImages); i++ {
		semaphore, _, err := d.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return err
		}
		d.renderFinished = append(d.renderFinished, semaphore)
	}
	d.imagesInFlight = make([]core1_0.Fence, len(d.swapchainImages))
	return nil
}

func chooseSwapSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

func chooseSwapPresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

func (d *Device) chooseSwapExtent(capabilities *khr_surface.SurfaceCapabilities) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	widthInt, heightInt := d.window.VulkanGetDrawableSize()
	return clampExtent(int(widthInt), int(heightInt), capabilities.MinImageExtent, capabilities.MaxImageExtent)
}

func clampExtent(width, height int, min, max core1_0.Extent2D) core1_0.Extent2D {
	if width < min.Width {
		width = min.Width
	}
	if width > max.Width {
		width = max.Width
	}
	if height < min.Height {
		height = min.Height
	}
	if height > max.Height {
		height = max.Height
	}
	return core1_0.Extent2D{Width: width, Height: height}
}
