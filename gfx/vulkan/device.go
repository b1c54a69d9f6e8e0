// Package vulkan implements gfx.Device on top of vkngwrapper with an SDL2
// window. All calls must come from the thread that opened the device, which
// should be locked with runtime.LockOSThread.
package vulkan

import (
	"io/fs"
	"log"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/samples/gfx"
)

const MaxFramesInFlight = 2

// DefaultUniformBufferSize is the per-frame uniform ring size.
const DefaultUniformBufferSize = 64 * 1024

const maxDescriptorSets = 256

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

type Options struct {
	// Shaders holds <name>.vert.spv and <name>.frag.spv for every shader
	// created on the device.
	Shaders fs.FS
	// Validation enables VK_LAYER_KHRONOS_validation and routes its
	// messages to the logger.
	Validation bool
	// PipelineCachePath persists the driver pipeline cache between runs
	// when set.
	PipelineCachePath string
	Logger            *log.Logger
	UniformBufferSize int
}

type queueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i *queueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

type Device struct {
	opts   Options
	setup  gfx.Setup
	logger *log.Logger

	window *sdl.Window

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	physicalDevice core1_0.PhysicalDevice
	properties     *core1_0.PhysicalDeviceProperties
	queueFamilies  queueFamilyIndices
	graphicsQueue  core1_0.Queue
	presentQueue   core1_0.Queue

	commandPool    core1_0.CommandPool
	descriptorPool core1_0.DescriptorPool
	pipelineCache  core1_0.PipelineCache

	maxSampleCount int
	sampleCount    int
	msaaSamples    core1_0.SampleCountFlags
	depthFormat    core1_0.Format
	uniformAlign   int

	swapchainExtension    khr_swapchain.ExtensionDriver
	swapchain             khr_swapchain.Swapchain
	swapchainImages       []core1_0.Image
	swapchainImageFormat  core1_0.Format
	swapchainExtent       core1_0.Extent2D
	swapchainImageViews   []core1_0.ImageView
	swapchainFramebuffers []core1_0.Framebuffer
	renderPass            core1_0.RenderPass
	renderFinished        []core1_0.Semaphore
	imagesInFlight        []core1_0.Fence
	color                 attachment
	depth                 attachment

	buffers   gfx.Pool[*buffer]
	images    gfx.Pool[*image]
	shaders   gfx.Pool[*shader]
	pipelines gfx.Pool[*pipeline]

	frames       [MaxFramesInFlight]*frame
	currentFrame int
	state        frameState

	quit     bool
	resized  bool
	shutdown bool
}

// Open creates the window and the Vulkan device described by setup.
func Open(setup gfx.Setup, opts Options) (*Device, error) {
	if opts.Shaders == nil {
		return nil, errors.New("vulkan: no shader filesystem")
	}
	if opts.UniformBufferSize <= 0 {
		opts.UniformBufferSize = DefaultUniformBufferSize
	}
	if setup.SampleCount < 1 {
		setup.SampleCount = 1
	}

	d := &Device{
		opts:   opts,
		setup:  setup,
		logger: opts.Logger,
	}
	if d.logger == nil {
		d.logger = log.Default()
	}

	if err := d.init(); err != nil {
		d.destroy()
		return nil, err
	}
	return d, nil
}

// OpenFunc adapts Open to gfx.OpenFunc.
func OpenFunc(opts Options) gfx.OpenFunc {
	return func(setup gfx.Setup) (gfx.Device, error) {
		d, err := Open(setup, opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

func (d *Device) init() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"window", d.initWindow},
		{"instance", d.createInstance},
		{"debug messenger", d.setupDebugMessenger},
		{"surface", d.createSurface},
		{"physical device", d.pickPhysicalDevice},
		{"logical device", d.createLogicalDevice},
		{"command pool", d.createCommandPool},
		{"descriptor pool", d.createDescriptorPool},
		{"pipeline cache", d.loadPipelineCache},
		{"frames", d.createFrames},
		{"swapchain", d.createSwapchainResources},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return errors.Wrapf(err, "vulkan: %s", step.name)
		}
	}

	d.logger.Printf("vulkan: %s, %dx%d, msaa %d (requested %d)",
		d.properties.DeviceName, d.swapchainExtent.Width, d.swapchainExtent.Height,
		d.sampleCount, d.setup.SampleCount)
	return nil
}

func (d *Device) QueryFeature(f gfx.Feature) bool {
	switch f {
	case gfx.FeatureTextureArray, gfx.FeatureInstancing:
		return true
	case gfx.FeatureMSAA:
		return d.maxSampleCount > 1
	}
	return false
}

func (d *Device) DisplayAttrs() gfx.DisplayAttrs {
	attrs := gfx.DisplayAttrs{
		FramebufferWidth:  d.swapchainExtent.Width,
		FramebufferHeight: d.swapchainExtent.Height,
		SampleCount:       d.sampleCount,
		WindowTitle:       d.setup.Title,
	}
	if attrs.FramebufferWidth == 0 || attrs.FramebufferHeight == 0 {
		attrs.FramebufferWidth = d.setup.Width
		attrs.FramebufferHeight = d.setup.Height
	}
	return attrs
}

func (d *Device) QuitRequested() bool {
	return d.quit
}

func (d *Device) pollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			d.quit = true
		case *sdl.WindowEvent:
			switch e.Event {
			case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED, sdl.WINDOWEVENT_RESTORED:
				d.resized = true
			}
		}
	}
}

// Shutdown waits for the GPU, persists the pipeline cache and releases
// every resource and the window.
func (d *Device) Shutdown() error {
	if d.shutdown {
		return gfx.ErrShutdown
	}
	d.shutdown = true

	var err error
	if d.deviceDriver != nil {
		if _, waitErr := d.deviceDriver.DeviceWaitIdle(); waitErr != nil {
			err = errors.CombineErrors(err, errors.Wrap(waitErr, "vulkan: wait idle"))
		}
	}
	err = errors.CombineErrors(err, d.savePipelineCache())
	d.destroy()
	return err
}

func (d *Device) destroy() {
	if d.deviceDriver != nil {
		d.pipelines.Each(func(_ gfx.ID, p *pipeline) { d.destroyPipeline(p) })
		d.shaders.Each(func(_ gfx.ID, s *shader) { d.destroyShader(s) })
		d.images.Each(func(_ gfx.ID, img *image) { d.destroyImage(img) })
		d.buffers.Each(func(_ gfx.ID, b *buffer) { d.destroyBuffer(b) })
		d.pipelines = gfx.Pool[*pipeline]{}
		d.shaders = gfx.Pool[*shader]{}
		d.images = gfx.Pool[*image]{}
		d.buffers = gfx.Pool[*buffer]{}

		d.cleanupSwapchain()
		d.destroyFrames()

		if d.pipelineCache.Initialized() {
			d.deviceDriver.DestroyPipelineCache(d.pipelineCache, nil)
			d.pipelineCache = core1_0.PipelineCache{}
		}
		if d.descriptorPool.Initialized() {
			d.deviceDriver.DestroyDescriptorPool(d.descriptorPool, nil)
			d.descriptorPool = core1_0.DescriptorPool{}
		}
		if d.commandPool.Initialized() {
			d.deviceDriver.DestroyCommandPool(d.commandPool, nil)
			d.commandPool = core1_0.CommandPool{}
		}
		d.deviceDriver.DestroyDevice(nil)
		d.deviceDriver = nil
	}

	if d.debugMessenger.Initialized() {
		d.debugDriver.DestroyDebugUtilsMessenger(d.debugMessenger, nil)
		d.debugMessenger = ext_debug_utils.DebugUtilsMessenger{}
	}
	if d.surface.Initialized() {
		d.surfaceExtension.DestroySurface(d.surface, nil)
		d.surface = khr_surface.Surface{}
	}
	if d.instanceDriver != nil {
		d.instanceDriver.DestroyInstance(nil)
		d.instanceDriver = nil
	}
	if d.window != nil {
		d.window.Destroy()
		d.window = nil
		sdl.Quit()
	}
}
