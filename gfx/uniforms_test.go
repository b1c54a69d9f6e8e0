package gfx

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testParams struct {
	MVP    mgl32.Mat4
	Offset mgl32.Vec2
	_      [2]float32
}

func TestEncodeUniformsLayout(t *testing.T) {
	params := testParams{MVP: mgl32.Ident4(), Offset: mgl32.Vec2{0.5, -2}}

	data, err := EncodeUniforms(&params)
	require.NoError(t, err)
	require.Len(t, data, 80)

	float := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	assert.Equal(t, float32(1), float(0))
	assert.Equal(t, float32(0), float(1))
	assert.Equal(t, float32(1), float(15))
	assert.Equal(t, float32(0.5), float(16))
	assert.Equal(t, float32(-2), float(17))
	assert.Equal(t, float32(0), float(18))
	assert.Equal(t, float32(0), float(19))
}

func TestEncodeUniformsRejectsVariableSize(t *testing.T) {
	_, err := EncodeUniforms(map[string]float32{"time": 1})
	assert.Error(t, err)
}

func TestEncodeUniformsPassesRawBytes(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	data, err := EncodeUniforms(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

type fakeDevice struct {
	Device
}

func (fakeDevice) QueryFeature(Feature) bool { return true }

func TestWithoutFeatures(t *testing.T) {
	dev := WithoutFeatures(fakeDevice{}, FeatureTextureArray)
	assert.False(t, dev.QueryFeature(FeatureTextureArray))
	assert.True(t, dev.QueryFeature(FeatureMSAA))

	same := WithoutFeatures(fakeDevice{})
	assert.Equal(t, fakeDevice{}, same)
}
