package gfx

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// EncodeUniforms encodes a fixed-size parameter struct in little-endian
// order, the byte layout of a std140 block when the struct lays its fields
// out with std140 alignment itself. Blank (_) fields are written as zeros,
// which is how parameter structs pad vec2/vec3 members. Raw []byte blocks
// are passed through.
func EncodeUniforms(block any) ([]byte, error) {
	if raw, ok := block.([]byte); ok {
		return raw, nil
	}

	size := binary.Size(block)
	if size < 0 {
		return nil, errors.Newf("gfx: uniform block of type %T is not fixed-size", block)
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	if err := binary.Write(buf, binary.LittleEndian, block); err != nil {
		return nil, errors.Wrapf(err, "gfx: encode uniform block %T", block)
	}
	return buf.Bytes(), nil
}
