// Package shaders embeds the GLSL programs of the samples and the SPIR-V
// compiled from them. Run `go generate ./shaders` (needs glslc from the
// Vulkan SDK) before building a binary that renders on a GPU.
package shaders

//go:generate sh -c "for f in src/*.vert src/*.frag; do glslc -O \"$f\" -o \"$f.spv\" || exit 1; done"

import (
	"embed"
	"io/fs"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/samples/gfx"
)

//go:embed src
var embedded embed.FS

// FS holds <name>.vert, <name>.frag and, once generated, <name>.vert.spv
// and <name>.frag.spv at its root.
var FS fs.FS

func init() {
	var err error
	FS, err = fs.Sub(embedded, "src")
	if err != nil {
		panic(err)
	}
}

const (
	ArrayTexture   = "arraytex"
	FullscreenQuad = "fullscreenquad"
	DebugText      = "debugtext"
)

// Programs lists every program the samples load.
var Programs = []string{ArrayTexture, FullscreenQuad, DebugText}

func stageSuffix(stage gfx.ShaderStage) string {
	if stage == gfx.StageFragment {
		return ".frag"
	}
	return ".vert"
}

// SourcePath is the GLSL file of a program stage.
func SourcePath(name string, stage gfx.ShaderStage) string {
	return name + stageSuffix(stage)
}

// BytecodePath is the SPIR-V file of a program stage.
func BytecodePath(name string, stage gfx.ShaderStage) string {
	return SourcePath(name, stage) + ".spv"
}

// Bytecode loads a SPIR-V module from fsys as 32-bit words.
func Bytecode(fsys fs.FS, name string, stage gfx.ShaderStage) ([]uint32, error) {
	path := BytecodePath(name, stage)
	b, err := fs.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.WithHintf(errors.Wrapf(err, "shader %s", path), "run `go generate ./shaders` to compile the GLSL sources")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("shader %s: %d bytes is not a SPIR-V module", path, len(b))
	}
	return bytesToBytecode(b), nil
}

// CheckCompiled reports the SPIR-V files of programs that are missing from
// fsys, so a build without generated shaders fails before a window opens.
func CheckCompiled(fsys fs.FS, programs ...string) error {
	var missing []string
	for _, name := range programs {
		for _, stage := range []gfx.ShaderStage{gfx.StageVertex, gfx.StageFragment} {
			path := BytecodePath(name, stage)
			if _, err := fs.Stat(fsys, path); err != nil {
				missing = append(missing, path)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.WithHintf(
		errors.Newf("shaders: missing SPIR-V %s", strings.Join(missing, ", ")),
		"run `go generate ./shaders` to compile the GLSL sources, or pass -headless")
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
