package vulkan

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/samples/gfx"
)

func TestVertexInput(t *testing.T) {
	layout := gfx.NewVertexLayout(
		gfx.VertexComponent{Attr: gfx.AttrPosition, Format: gfx.Float3},
		gfx.VertexComponent{Attr: gfx.AttrTexCoord0, Format: gfx.Float2},
	)

	info, err := vertexInput(layout)
	require.NoError(t, err)
	require.Len(t, info.VertexBindingDescriptions, 1)
	assert.Equal(t, 20, info.VertexBindingDescriptions[0].Stride)

	require.Len(t, info.VertexAttributeDescriptions, 2)
	assert.Equal(t, core1_0.FormatR32G32B32SignedFloat, info.VertexAttributeDescriptions[0].Format)
	assert.Equal(t, 0, info.VertexAttributeDescriptions[0].Offset)
	assert.Equal(t, core1_0.FormatR32G32SignedFloat, info.VertexAttributeDescriptions[1].Format)
	assert.Equal(t, 12, info.VertexAttributeDescriptions[1].Offset)
	assert.Equal(t, uint32(gfx.AttrTexCoord0), info.VertexAttributeDescriptions[1].Location)
}

func TestUnsupportedFormats(t *testing.T) {
	_, err := vertexFormat(gfx.VertexFormat(99))
	assert.ErrorIs(t, err, gfx.ErrUnsupported)

	_, err = pixelFormat(gfx.PixelFormat(99))
	assert.ErrorIs(t, err, gfx.ErrUnsupported)

	format, err := pixelFormat(gfx.PixelFormatRGBA8)
	require.NoError(t, err)
	assert.Equal(t, core1_0.FormatR8G8B8A8UnsignedNormalized, format)
}

func TestStateMappings(t *testing.T) {
	assert.Equal(t, core1_0.PrimitiveTopologyTriangleList, topology(gfx.Triangles))
	assert.Equal(t, core1_0.PrimitiveTopologyTriangleStrip, topology(gfx.TriangleStrip))
	assert.Equal(t, core1_0.CompareOpLessOrEqual, compareOp(gfx.CompareLessEqual))
	assert.Equal(t, core1_0.CompareOpAlways, compareOp(gfx.CompareAlways))
	assert.Equal(t, core1_0.CullModeNone, cullMode(gfx.CullNone))
	assert.Equal(t, core1_0.CullModeBack, cullMode(gfx.CullBack))
	assert.Equal(t, core1_0.FilterNearest, filter(gfx.FilterNearest))
	assert.Equal(t, core1_0.SamplerAddressModeClampToEdge, addressMode(gfx.WrapClampToEdge))
	assert.Equal(t, core1_0.SamplerAddressModeRepeat, addressMode(gfx.WrapRepeat))
	assert.Equal(t, core1_0.IndexTypeUInt16, indexType(gfx.IndexUInt16))
	assert.Equal(t, core1_0.IndexTypeUInt32, indexType(gfx.IndexUInt32))
}

func TestSampleCount(t *testing.T) {
	supported := core1_0.Samples1 | core1_0.Samples2 | core1_0.Samples4 | core1_0.Samples8

	tests := []struct {
		requested int
		count     int
		flag      core1_0.SampleCountFlags
	}{
		{requested: 1, count: 1, flag: core1_0.Samples1},
		{requested: 4, count: 4, flag: core1_0.Samples4},
		{requested: 3, count: 2, flag: core1_0.Samples2},
		{requested: 16, count: 8, flag: core1_0.Samples8},
		{requested: 0, count: 1, flag: core1_0.Samples1},
	}
	for _, tt := range tests {
		count, flag := sampleCount(tt.requested, supported)
		assert.Equal(t, tt.count, count, "requested %d", tt.requested)
		assert.Equal(t, tt.flag, flag, "requested %d", tt.requested)
	}
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, alignUp(0, 256))
	assert.Equal(t, 256, alignUp(1, 256))
	assert.Equal(t, 256, alignUp(256, 256))
	assert.Equal(t, 512, alignUp(257, 256))
	assert.Equal(t, 96, alignUp(96, 0))
}

func TestBindingLayout(t *testing.T) {
	desc := gfx.ShaderDesc{
		UniformBlocks: []gfx.UniformBlockDesc{
			{Stage: gfx.StageVertex, Size: 96},
			{Stage: gfx.StageFragment, Size: 16},
		},
		Images: []gfx.ShaderImageDesc{{Stage: gfx.StageFragment, Type: gfx.ImageArray}},
	}

	bindings := bindingLayout(desc)
	require.Len(t, bindings, 3)
	assert.Equal(t, 0, bindings[0].Binding)
	assert.Equal(t, core1_0.DescriptorTypeUniformBufferDynamic, bindings[0].DescriptorType)
	assert.Equal(t, core1_0.StageVertex, bindings[0].StageFlags)
	assert.Equal(t, core1_0.StageFragment, bindings[1].StageFlags)
	assert.Equal(t, 2, bindings[2].Binding)
	assert.Equal(t, core1_0.DescriptorTypeCombinedImageSampler, bindings[2].DescriptorType)

	assert.Empty(t, bindingLayout(gfx.ShaderDesc{}))
}

func TestClearValues(t *testing.T) {
	values := clearValues(gfx.ClearPass(mgl32.Vec4{0.2, 0.2, 0.3, 1}))
	require.Len(t, values, 2)
	assert.Equal(t, core1_0.ClearValueFloat{0.2, 0.2, 0.3, 1}, values[0])
	assert.Equal(t, core1_0.ClearValueDepthStencil{Depth: 1}, values[1])
}

func TestClampExtent(t *testing.T) {
	min := core1_0.Extent2D{Width: 1, Height: 1}
	max := core1_0.Extent2D{Width: 4096, Height: 2048}

	assert.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, clampExtent(800, 600, min, max))
	assert.Equal(t, core1_0.Extent2D{Width: 4096, Height: 2048}, clampExtent(8000, 6000, min, max))
	assert.Equal(t, core1_0.Extent2D{Width: 1, Height: 1}, clampExtent(0, 0, min, max))
}

func TestLayoutTransition(t *testing.T) {
	srcAccess, dstAccess, srcStage, dstStage, err := layoutTransition(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.AccessFlags(0), srcAccess)
	assert.Equal(t, core1_0.AccessTransferWrite, dstAccess)
	assert.Equal(t, core1_0.PipelineStageTopOfPipe, srcStage)
	assert.Equal(t, core1_0.PipelineStageTransfer, dstStage)

	_, _, srcStage, _, err = layoutTransition(core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, core1_0.PipelineStageFragmentShader, srcStage)

	_, _, _, _, err = layoutTransition(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutShaderReadOnlyOptimal)
	assert.Error(t, err)
}
