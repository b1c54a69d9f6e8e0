package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/samples/gfx"
)

func vertexFormat(f gfx.VertexFormat) (core1_0.Format, error) {
	switch f {
	case gfx.Float2:
		return core1_0.FormatR32G32SignedFloat, nil
	case gfx.Float3:
		return core1_0.FormatR32G32B32SignedFloat, nil
	case gfx.Float4:
		return core1_0.FormatR32G32B32A32SignedFloat, nil
	case gfx.UByte4N:
		return core1_0.FormatR8G8B8A8UnsignedNormalized, nil
	}
	return 0, errors.Wrapf(gfx.ErrUnsupported, "vertex format %s", f)
}

func vertexInput(layout gfx.VertexLayout) (*core1_0.PipelineVertexInputStateCreateInfo, error) {
	info := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions: []core1_0.VertexInputBindingDescription{
			{
				Binding:   0,
				Stride:    layout.Stride(),
				InputRate: core1_0.VertexInputRateVertex,
			},
		},
	}

	for i, component := range layout.Components {
		format, err := vertexFormat(component.Format)
		if err != nil {
			return nil, err
		}
		info.VertexAttributeDescriptions = append(info.VertexAttributeDescriptions, core1_0.VertexInputAttributeDescription{
			Binding:  0,
			Location: uint32(component.Attr),
			Format:   format,
			Offset:   layout.Offset(i),
		})
	}
	return info, nil
}

func pixelFormat(f gfx.PixelFormat) (core1_0.Format, error) {
	if f == gfx.PixelFormatRGBA8 {
		return core1_0.FormatR8G8B8A8UnsignedNormalized, nil
	}
	return 0, errors.Wrapf(gfx.ErrUnsupported, "pixel format %s", f)
}

func topology(p gfx.PrimitiveType) core1_0.PrimitiveTopology {
	switch p {
	case gfx.TriangleStrip:
		return core1_0.PrimitiveTopologyTriangleStrip
	case gfx.Lines:
		return core1_0.PrimitiveTopologyLineList
	}
	return core1_0.PrimitiveTopologyTriangleList
}

func compareOp(c gfx.CompareFunc) core1_0.CompareOp {
	switch c {
	case gfx.CompareLess:
		return core1_0.CompareOpLess
	case gfx.CompareLessEqual:
		return core1_0.CompareOpLessOrEqual
	}
	return core1_0.CompareOpAlways
}

func cullMode(c gfx.CullMode) core1_0.CullModeFlags {
	switch c {
	case gfx.CullBack:
		return core1_0.CullModeBack
	case gfx.CullFront:
		return core1_0.CullModeFront
	}
	return core1_0.CullModeNone
}

func filter(f gfx.Filter) core1_0.Filter {
	if f == gfx.FilterLinear {
		return core1_0.FilterLinear
	}
	return core1_0.FilterNearest
}

func addressMode(w gfx.Wrap) core1_0.SamplerAddressMode {
	switch w {
	case gfx.WrapClampToEdge:
		return core1_0.SamplerAddressModeClampToEdge
	case gfx.WrapMirroredRepeat:
		return core1_0.SamplerAddressModeMirroredRepeat
	}
	return core1_0.SamplerAddressModeRepeat
}

func indexType(t gfx.IndexType) core1_0.IndexType {
	if t == gfx.IndexUInt16 {
		return core1_0.IndexTypeUInt16
	}
	return core1_0.IndexTypeUInt32
}

func shaderStage(s gfx.ShaderStage) core1_0.ShaderStageFlags {
	if s == gfx.StageFragment {
		return core1_0.StageFragment
	}
	return core1_0.StageVertex
}

var sampleCountFlags = []struct {
	count int
	flag  core1_0.SampleCountFlags
}{
	{64, core1_0.Samples64},
	{32, core1_0.Samples32},
	{16, core1_0.Samples16},
	{8, core1_0.Samples8},
	{4, core1_0.Samples4},
	{2, core1_0.Samples2},
	{1, core1_0.Samples1},
}

// sampleCount picks the largest supported sample count not above requested.
func sampleCount(requested int, supported core1_0.SampleCountFlags) (int, core1_0.SampleCountFlags) {
	for _, s := range sampleCountFlags {
		if s.count <= requested && supported&s.flag != 0 {
			return s.count, s.flag
		}
	}
	return 1, core1_0.Samples1
}

func clearValues(action gfx.PassAction) []core1_0.ClearValue {
	c := action.Color
	return []core1_0.ClearValue{
		core1_0.ClearValueFloat{c[0], c[1], c[2], c[3]},
		core1_0.ClearValueDepthStencil{Depth: action.Depth, Stencil: 0},
	}
}

func alignUp(value, alignment int) int {
	if alignment <= 1 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// bindingLayout lists the descriptor bindings of a shader: uniform blocks
// first, images after them.
func bindingLayout(desc gfx.ShaderDesc) []core1_0.DescriptorSetLayoutBinding {
	var bindings []core1_0.DescriptorSetLayoutBinding
	for i, block := range desc.UniformBlocks {
		bindings = append(bindings, core1_0.DescriptorSetLayoutBinding{
			Binding:         i,
			DescriptorType:  core1_0.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      shaderStage(block.Stage),
		})
	}
	for i, img := range desc.Images {
		bindings = append(bindings, core1_0.DescriptorSetLayoutBinding{
			Binding:         len(desc.UniformBlocks) + i,
			DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      shaderStage(img.Stage),
		})
	}
	return bindings
}
