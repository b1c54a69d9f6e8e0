package vulkan

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type imageSpec struct {
	width, height int
	layers        int
	samples       core1_0.SampleCountFlags
	format        core1_0.Format
	usage         core1_0.ImageUsageFlags
}

func (d *Device) createImage(spec imageSpec) (core1_0.Image, core1_0.DeviceMemory, error) {
	img, _, err := d.deviceDriver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  spec.width,
			Height: spec.height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   spec.layers,
		Format:        spec.format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         spec.usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       spec.samples,
	})
	if err != nil {
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	memReqs := d.deviceDriver.GetImageMemoryRequirements(img)
	memoryIndex, err := d.findMemoryType(memReqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		d.deviceDriver.DestroyImage(img, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	imageMemory, _, err := d.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		d.deviceDriver.DestroyImage(img, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	_, err = d.deviceDriver.BindImageMemory(img, imageMemory, 0)
	if err != nil {
		d.deviceDriver.DestroyImage(img, nil)
		d.deviceDriver.FreeMemory(imageMemory, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	return img, imageMemory, nil
}

func (d *Device) createImageView(img core1_0.Image, format core1_0.Format, viewType core1_0.ImageViewType, aspect core1_0.ImageAspectFlags, layers int) (core1_0.ImageView, error) {
	imageView, _, err := d.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    img,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     layers,
		},
	})
	return imageView, err
}

func (d *Device) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buf, _, err := d.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memRequirements := d.deviceDriver.GetBufferMemoryRequirements(buf)
	memoryTypeIndex, err := d.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		d.deviceDriver.DestroyBuffer(buf, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memory, _, err := d.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		d.deviceDriver.DestroyBuffer(buf, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	_, err = d.deviceDriver.BindBufferMemory(buf, memory, 0)
	if err != nil {
		d.deviceDriver.DestroyBuffer(buf, nil)
		d.deviceDriver.FreeMemory(memory, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}
	return buf, memory, nil
}

// createStagingBuffer returns a host visible transfer source holding data.
func (d *Device) createStagingBuffer(data []byte) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buf, memory, err := d.createBuffer(len(data), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return buf, memory, err
	}

	if err := writeData(d.deviceDriver, memory, 0, data); err != nil {
		d.deviceDriver.DestroyBuffer(buf, nil)
		d.deviceDriver.FreeMemory(memory, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}
	return buf, memory, nil
}

func (d *Device) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := d.instanceDriver.GetPhysicalDeviceMemoryProperties(d.physicalDevice)
	for i, memoryType := range memProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Newf("no memory type with properties %s", properties)
}

func (d *Device) beginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := d.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, err
	}

	buf := buffers[0]
	_, err = d.deviceDriver.BeginCommandBuffer(buf, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		d.deviceDriver.FreeCommandBuffers(buf)
		return core1_0.CommandBuffer{}, err
	}
	return buf, nil
}

func (d *Device) endSingleTimeCommands(buf core1_0.CommandBuffer) error {
	defer d.deviceDriver.FreeCommandBuffers(buf)

	_, err := d.deviceDriver.EndCommandBuffer(buf)
	if err != nil {
		return err
	}

	_, err = d.deviceDriver.QueueSubmit(d.graphicsQueue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buf},
		},
	)
	if err != nil {
		return err
	}

	_, err = d.deviceDriver.QueueWaitIdle(d.graphicsQueue)
	return err
}

func (d *Device) copyBuffer(srcBuffer core1_0.Buffer, dstBuffer core1_0.Buffer, size int) error {
	buf, err := d.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = d.deviceDriver.CmdCopyBuffer(buf, srcBuffer, dstBuffer,
		core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	)
	if err != nil {
		d.deviceDriver.FreeCommandBuffers(buf)
		return err
	}

	return d.endSingleTimeCommands(buf)
}

func layoutTransition(oldLayout, newLayout core1_0.ImageLayout) (srcAccess, dstAccess core1_0.AccessFlags, srcStage, dstStage core1_0.PipelineStageFlags, err error) {
	switch {
	case oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal:
		return 0, core1_0.AccessTransferWrite, core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageTransfer, nil
	case oldLayout == core1_0.ImageLayoutShaderReadOnlyOptimal && newLayout == core1_0.ImageLayoutTransferDstOptimal:
		return core1_0.AccessShaderRead, core1_0.AccessTransferWrite, core1_0.PipelineStageFragmentShader, core1_0.PipelineStageTransfer, nil
	case oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal:
		return core1_0.AccessTransferWrite, core1_0.AccessShaderRead, core1_0.PipelineStageTransfer, core1_0.PipelineStageFragmentShader, nil
	}
	return 0, 0, 0, 0, errors.Newf("unexpected layout transition: %s -> %s", oldLayout, newLayout)
}

// uploadImage copies staged pixels for every layer into img and leaves it
// ready for sampling.
func (d *Device) uploadImage(img core1_0.Image, oldLayout core1_0.ImageLayout, staging core1_0.Buffer, width, height, layers int) error {
	cmd, err := d.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	subresources := core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     layers,
	}
	barrier := func(from, to core1_0.ImageLayout) error {
		srcAccess, dstAccess, srcStage, dstStage, err := layoutTransition(from, to)
		if err != nil {
			return err
		}
		return d.deviceDriver.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
			{
				OldLayout:           from,
				NewLayout:           to,
				SrcQueueFamilyIndex: -1,
				DstQueueFamilyIndex: -1,
				Image:               img,
				SubresourceRange:    subresources,
				SrcAccessMask:       srcAccess,
				DstAccessMask:       dstAccess,
			},
		})
	}

	err = barrier(oldLayout, core1_0.ImageLayoutTransferDstOptimal)
	if err == nil {
		err = d.deviceDriver.CmdCopyBufferToImage(cmd, staging, img, core1_0.ImageLayoutTransferDstOptimal,
			core1_0.BufferImageCopy{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     layers,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
			},
		)
	}
	if err == nil {
		err = barrier(core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	}
	if err != nil {
		d.deviceDriver.FreeCommandBuffers(cmd)
		return err
	}

	return d.endSingleTimeCommands(cmd)
}

func writeData(driver core1_0.DeviceDriver, memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)

	memoryPtr, _, err := driver.MapMemory(memory, offset, bufferSize, 0)
	if err != nil {
		return err
	}
	defer driver.UnmapMemory(memory)

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), bufferSize)

	buf := &bytes.Buffer{}
	err = binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return err
	}

	copy(dataBuffer, buf.Bytes())
	return nil
}
