package vulkan

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// cacheHeader is the version header every driver writes at the start of
// pipeline cache data.
type cacheHeader struct {
	HeaderLength  uint32
	HeaderVersion common.PipelineCacheHeaderVersion
	VendorID      uint32
	DeviceID      uint32
	CacheUUID     uuid.UUID
}

// cacheHeaderSize is the length of a version one header.
const cacheHeaderSize = 32

func readCacheHeader(data []byte) (cacheHeader, error) {
	var header cacheHeader
	r := bytes.NewReader(data)

	fields := []any{&header.HeaderLength, &header.HeaderVersion, &header.VendorID, &header.DeviceID, &header.CacheUUID}
	for _, field := range fields {
		if err := binary.Read(r, common.ByteOrder, field); err != nil {
			return cacheHeader{}, errors.Wrap(err, "short pipeline cache header")
		}
	}
	return header, nil
}

// validate reports every way the header disagrees with the device.
func (h cacheHeader) validate(want cacheHeader) error {
	var err error
	if h.HeaderLength < cacheHeaderSize {
		err = errors.CombineErrors(err, errors.Newf("bad header length 0x%x", h.HeaderLength))
	}
	if h.HeaderVersion != want.HeaderVersion {
		err = errors.CombineErrors(err, errors.Newf("unsupported header version 0x%x", h.HeaderVersion))
	}
	if h.VendorID != want.VendorID {
		err = errors.CombineErrors(err, errors.Newf("vendor ID 0x%x, driver expects 0x%x", h.VendorID, want.VendorID))
	}
	if h.DeviceID != want.DeviceID {
		err = errors.CombineErrors(err, errors.Newf("device ID 0x%x, driver expects 0x%x", h.DeviceID, want.DeviceID))
	}
	if h.CacheUUID != want.CacheUUID {
		err = errors.CombineErrors(err, errors.Newf("UUID %s, driver expects %s", h.CacheUUID, want.CacheUUID))
	}
	return err
}

func (d *Device) expectedCacheHeader() cacheHeader {
	return cacheHeader{
		HeaderVersion: common.PipelineCacheHeaderVersion1,
		VendorID:      d.properties.VendorID,
		DeviceID:      d.properties.DeviceID,
		CacheUUID:     d.properties.PipelineCacheUUID,
	}
}

// loadPipelineCache creates the pipeline cache, seeded from
// PipelineCachePath when the file exists and matches this device. A stale
// file is removed so the next save repopulates it.
func (d *Device) loadPipelineCache() error {
	var initial []byte
	if path := d.opts.PipelineCachePath; path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			d.logger.Printf("vulkan: pipeline cache %s: %v", path, err)
		default:
			header, err := readCacheHeader(data)
			if err == nil {
				err = header.validate(d.expectedCacheHeader())
			}
			if err != nil {
				d.logger.Printf("vulkan: discarding pipeline cache %s: %v", path, err)
				_ = os.Remove(path)
			} else {
				initial = data
			}
		}
	}

	cache, _, err := d.deviceDriver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initial,
	})
	if err != nil {
		return err
	}
	d.pipelineCache = cache
	return nil
}

func (d *Device) savePipelineCache() error {
	path := d.opts.PipelineCachePath
	if path == "" || d.deviceDriver == nil || !d.pipelineCache.Initialized() {
		return nil
	}

	data, _, err := d.deviceDriver.GetPipelineCacheData(d.pipelineCache)
	if err != nil {
		return errors.Wrap(err, "vulkan: read pipeline cache")
	}
	if err := os.WriteFile(path, data, 0666); err != nil {
		return errors.Wrap(err, "vulkan: write pipeline cache")
	}
	d.logger.Printf("vulkan: pipeline cache written to %s", path)
	return nil
}
