package vulkan

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
)

func encodeHeader(t *testing.T, header cacheHeader, trailer []byte) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, common.ByteOrder, header))
	buf.Write(trailer)
	return buf.Bytes()
}

func testHeader() cacheHeader {
	return cacheHeader{
		HeaderLength:  cacheHeaderSize,
		HeaderVersion: common.PipelineCacheHeaderVersion1,
		VendorID:      0x10de,
		DeviceID:      0x2484,
		CacheUUID:     uuid.MustParse("3f1c8d5e-2b7a-4c11-9e0f-6a5b4c3d2e1f"),
	}
}

func TestReadCacheHeader(t *testing.T) {
	want := testHeader()
	data := encodeHeader(t, want, []byte("driver blob"))

	header, err := readCacheHeader(data)
	require.NoError(t, err)
	assert.Equal(t, want, header)
	assert.NoError(t, header.validate(want))
}

func TestReadCacheHeaderShort(t *testing.T) {
	data := encodeHeader(t, testHeader(), nil)

	_, err := readCacheHeader(data[:20])
	assert.Error(t, err)

	_, err = readCacheHeader(nil)
	assert.Error(t, err)
}

func TestValidateCacheHeader(t *testing.T) {
	want := testHeader()

	tests := []struct {
		name   string
		mutate func(h *cacheHeader)
		msg    string
	}{
		{name: "length", mutate: func(h *cacheHeader) { h.HeaderLength = 0 }, msg: "bad header length"},
		{name: "truncated length", mutate: func(h *cacheHeader) { h.HeaderLength = 16 }, msg: "bad header length 0x10"},
		{name: "version", mutate: func(h *cacheHeader) { h.HeaderVersion++ }, msg: "unsupported header version"},
		{name: "vendor", mutate: func(h *cacheHeader) { h.VendorID = 0x1002 }, msg: "vendor ID 0x1002, driver expects 0x10de"},
		{name: "device", mutate: func(h *cacheHeader) { h.DeviceID = 1 }, msg: "device ID 0x1"},
		{name: "uuid", mutate: func(h *cacheHeader) { h.CacheUUID = uuid.Nil }, msg: "UUID 00000000-0000-0000-0000-000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := want
			tt.mutate(&header)
			err := header.validate(want)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
