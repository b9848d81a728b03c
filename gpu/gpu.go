//go:build !nogpu

// Package gpu registers the wgpu compute accelerator for GPU-accelerated
// level-set generation.
//
// Import this package to opt in; the engine stays CPU-only otherwise. The
// narrow-band evaluator and sign resolver run as compute kernels; the far
// field is swept on the host from the read-back band.
//
// If GPU initialization fails (no Vulkan available, no adapters), the
// accelerator registers as unavailable and generation silently stays on the
// CPU. Forcing sdfgen.BackendGPU then fails with ErrBackendUnavailable.
//
// Usage:
//
//	import _ "github.com/gogpu/sdfgen/gpu" // enable GPU acceleration
package gpu

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/sdfgen"
)

// accelerator is the package singleton registered on import.
var accelerator = &Accelerator{}

func init() {
	if err := sdfgen.RegisterAccelerator(accelerator); err != nil {
		sdfgen.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider configures the accelerator to share a GPU device with
// the host application instead of opening its own. This avoids a second
// Vulkan instance when the embedding program already drives the GPU.
//
// The provider must also implement the HAL accessor pair
// (HalDevice() any, HalQueue() any) for direct device access.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	return accelerator.SetDeviceProvider(provider)
}
