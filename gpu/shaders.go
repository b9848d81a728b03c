//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

// Embedded WGSL kernel sources, compiled to SPIR-V at device init.

//go:embed shaders/exact_band.wgsl
var exactBandShaderSource string

//go:embed shaders/cross_count.wgsl
var crossCountShaderSource string

//go:embed shaders/sign_apply.wgsl
var signApplyShaderSource string

// compileToSPIRV compiles WGSL source to the little-endian 32-bit word
// stream the Vulkan backend consumes.
func compileToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}
