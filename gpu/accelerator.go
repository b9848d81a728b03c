//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/sdfgen"
	"github.com/gogpu/sdfgen/internal/cpu"
)

// fenceTimeout bounds a single kernel submission. Large grids with dense
// meshes can keep the narrow-band kernel busy for a while.
const fenceTimeout = 30 * time.Second

// kernel bundles the per-pipeline GPU objects of one compute entry point.
type kernel struct {
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// Accelerator runs the narrow-band and sign phases of level-set generation
// on a wgpu/hal compute device. It implements sdfgen.Accelerator.
//
// The exact-band and crossing kernels execute on the GPU; the swept far
// field is resolved on the CPU from the read-back narrow band, because the
// eikonal update is a sequential-in-wavefront recurrence that gains little
// from the device and would otherwise need many tiny dispatches.
type Accelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	exact kernel
	count kernel
	sign  kernel

	gpuReady       bool
	externalDevice bool // shared device, don't destroy on Close

	log atomic.Pointer[slog.Logger]
}

var _ sdfgen.Accelerator = (*Accelerator)(nil)

func (a *Accelerator) Name() string { return "wgpu" }

// SetLogger receives the engine logger; sdfgen propagates it on
// registration and on every SetLogger call.
func (a *Accelerator) SetLogger(l *slog.Logger) {
	a.log.Store(l)
}

func (a *Accelerator) logger() *slog.Logger {
	if l := a.log.Load(); l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// Init probes for a usable device and builds the compute pipelines. A
// missing device is not an error: the accelerator registers as unavailable
// and the engine selects the CPU.
func (a *Accelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.initGPU(); err != nil {
		a.logger().Info("gpu unavailable, level sets stay on cpu", "err", err)
	}
	return nil
}

func (a *Accelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyPipelines()
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.gpuReady = false
	a.externalDevice = false
}

// Available reports whether a device was opened and the pipelines compiled.
func (a *Accelerator) Available() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

// SetDeviceProvider switches the accelerator to a shared GPU device from an
// external provider. The provider must expose HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue.
func (a *Accelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.destroyPipelines()
	if !a.externalDevice && a.device != nil {
		a.device.Destroy()
	}
	if a.instance != nil {
		a.instance.Destroy()
		a.instance = nil
	}

	a.device = device
	a.queue = queue
	a.externalDevice = true

	if err := a.createPipelines(); err != nil {
		a.gpuReady = false
		return fmt.Errorf("gpu: create pipelines with shared device: %w", err)
	}
	a.gpuReady = true
	a.logger().Info("switched to shared gpu device")
	return nil
}

func (a *Accelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	if err := a.createPipelines(); err != nil {
		a.device.Destroy()
		a.device = nil
		a.queue = nil
		return fmt.Errorf("create pipelines: %w", err)
	}
	a.gpuReady = true
	a.logger().Info("gpu accelerator initialized", "adapter", selected.Info.Name)
	return nil
}

func (a *Accelerator) createKernel(label, source string, entries []gputypes.BindGroupLayoutEntry) (kernel, error) {
	var k kernel
	spirv, err := compileToSPIRV(source)
	if err != nil {
		return k, fmt.Errorf("%s: %w", label, err)
	}
	k.shader, err = a.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return k, fmt.Errorf("create %s shader module: %w", label, err)
	}
	k.bindLayout, err = a.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		a.destroyKernel(&k)
		return k, fmt.Errorf("create %s bind group layout: %w", label, err)
	}
	k.pipeLayout, err = a.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: label + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		a.destroyKernel(&k)
		return k, fmt.Errorf("create %s pipeline layout: %w", label, err)
	}
	k.pipeline, err = a.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: label + "_pipeline", Layout: k.pipeLayout,
		Compute: hal.ComputeState{Module: k.shader, EntryPoint: "main"},
	})
	if err != nil {
		a.destroyKernel(&k)
		return k, fmt.Errorf("create %s compute pipeline: %w", label, err)
	}
	return k, nil
}

func (a *Accelerator) destroyKernel(k *kernel) {
	if k.pipeline != nil {
		a.device.DestroyComputePipeline(k.pipeline)
		k.pipeline = nil
	}
	if k.pipeLayout != nil {
		a.device.DestroyPipelineLayout(k.pipeLayout)
		k.pipeLayout = nil
	}
	if k.bindLayout != nil {
		a.device.DestroyBindGroupLayout(k.bindLayout)
		k.bindLayout = nil
	}
	if k.shader != nil {
		a.device.DestroyShaderModule(k.shader)
		k.shader = nil
	}
}

func (a *Accelerator) createPipelines() error {
	uniform := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	roStorage := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	storage := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}

	var err error
	a.exact, err = a.createKernel("exact_band", exactBandShaderSource, []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: uniform},
		{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: roStorage},
		{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: roStorage},
		{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: storage},
	})
	if err != nil {
		return err
	}
	a.count, err = a.createKernel("cross_count", crossCountShaderSource, []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: uniform},
		{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: roStorage},
		{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: roStorage},
		{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: storage},
	})
	if err != nil {
		a.destroyPipelines()
		return err
	}
	a.sign, err = a.createKernel("sign_apply", signApplyShaderSource, []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: uniform},
		{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: roStorage},
		{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: storage},
	})
	if err != nil {
		a.destroyPipelines()
		return err
	}
	return nil
}

func (a *Accelerator) destroyPipelines() {
	if a.device == nil {
		return
	}
	a.destroyKernel(&a.exact)
	a.destroyKernel(&a.count)
	a.destroyKernel(&a.sign)
}

// packParams serializes the kernel uniform block: grid dimensions and
// triangle count, then origin and cell size, then the band width.
func packParams(req *sdfgen.LevelSetRequest) []byte {
	buf := make([]byte, 0, 48)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(req.Nx))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(req.Ny))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(req.Nz))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(req.Triangles)))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(req.Origin.X))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(req.Origin.Y))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(req.Origin.Z))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(req.Dx))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(req.ExactBand))
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	return buf
}

// MakeLevelSet runs the narrow-band and crossing kernels on the device,
// reads the results back, and finishes the far field and signs on the host.
func (a *Accelerator) MakeLevelSet(req *sdfgen.LevelSetRequest) ([]float32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return nil, fmt.Errorf("gpu: no device initialized")
	}

	cells := req.Nx * req.Ny * req.Nz
	upper := float32(req.Nx+req.Ny+req.Nz) * req.Dx

	vertBytes := make([]byte, 0, 12*len(req.Vertices))
	for _, v := range req.Vertices {
		vertBytes = binary.LittleEndian.AppendUint32(vertBytes, math.Float32bits(v.X))
		vertBytes = binary.LittleEndian.AppendUint32(vertBytes, math.Float32bits(v.Y))
		vertBytes = binary.LittleEndian.AppendUint32(vertBytes, math.Float32bits(v.Z))
	}
	triBytes := make([]byte, 0, 12*len(req.Triangles))
	for _, t := range req.Triangles {
		triBytes = binary.LittleEndian.AppendUint32(triBytes, t[0])
		triBytes = binary.LittleEndian.AppendUint32(triBytes, t[1])
		triBytes = binary.LittleEndian.AppendUint32(triBytes, t[2])
	}
	distInit := make([]byte, 4*cells)
	upperBits := math.Float32bits(upper)
	for i := 0; i < cells; i++ {
		binary.LittleEndian.PutUint32(distInit[i*4:], upperBits)
	}
	gridBufSize := uint64(4 * cells)

	type bufSpec struct {
		label string
		size  uint64
		usage gputypes.BufferUsage
	}
	specs := []bufSpec{
		{"levelset_params", 48, gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst},
		{"levelset_verts", uint64(len(vertBytes)), gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{"levelset_tris", uint64(len(triBytes)), gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{"levelset_dist", gridBufSize, gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst},
		{"levelset_counts", gridBufSize, gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{"levelset_inside", gridBufSize, gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc},
		{"levelset_dist_staging", gridBufSize, gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst},
		{"levelset_inside_staging", gridBufSize, gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst},
	}
	bufs := make([]hal.Buffer, len(specs))
	defer func() {
		for _, b := range bufs {
			if b != nil {
				a.device.DestroyBuffer(b)
			}
		}
	}()
	for i, s := range specs {
		b, err := a.device.CreateBuffer(&hal.BufferDescriptor{Label: s.label, Size: s.size, Usage: s.usage})
		if err != nil {
			return nil, fmt.Errorf("create %s buffer: %w", s.label, err)
		}
		bufs[i] = b
	}
	paramsBuf, vertsBuf, trisBuf := bufs[0], bufs[1], bufs[2]
	distBuf, countsBuf, insideBuf := bufs[3], bufs[4], bufs[5]
	distStaging, insideStaging := bufs[6], bufs[7]

	a.queue.WriteBuffer(paramsBuf, 0, packParams(req))
	a.queue.WriteBuffer(vertsBuf, 0, vertBytes)
	a.queue.WriteBuffer(trisBuf, 0, triBytes)
	a.queue.WriteBuffer(distBuf, 0, distInit)
	a.queue.WriteBuffer(countsBuf, 0, make([]byte, gridBufSize))

	binding := func(buf hal.Buffer, size uint64) gputypes.BufferBinding {
		return gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size}
	}
	mkBindGroup := func(label string, layout hal.BindGroupLayout, entries []gputypes.BindGroupEntry) (hal.BindGroup, error) {
		return a.device.CreateBindGroup(&hal.BindGroupDescriptor{Label: label, Layout: layout, Entries: entries})
	}
	exactBG, err := mkBindGroup("exact_band_bind", a.exact.bindLayout, []gputypes.BindGroupEntry{
		{Binding: 0, Resource: binding(paramsBuf, 48)},
		{Binding: 1, Resource: binding(vertsBuf, uint64(len(vertBytes)))},
		{Binding: 2, Resource: binding(trisBuf, uint64(len(triBytes)))},
		{Binding: 3, Resource: binding(distBuf, gridBufSize)},
	})
	if err != nil {
		return nil, fmt.Errorf("create exact_band bind group: %w", err)
	}
	defer a.device.DestroyBindGroup(exactBG)
	countBG, err := mkBindGroup("cross_count_bind", a.count.bindLayout, []gputypes.BindGroupEntry{
		{Binding: 0, Resource: binding(paramsBuf, 48)},
		{Binding: 1, Resource: binding(vertsBuf, uint64(len(vertBytes)))},
		{Binding: 2, Resource: binding(trisBuf, uint64(len(triBytes)))},
		{Binding: 3, Resource: binding(countsBuf, gridBufSize)},
	})
	if err != nil {
		return nil, fmt.Errorf("create cross_count bind group: %w", err)
	}
	defer a.device.DestroyBindGroup(countBG)
	signBG, err := mkBindGroup("sign_apply_bind", a.sign.bindLayout, []gputypes.BindGroupEntry{
		{Binding: 0, Resource: binding(paramsBuf, 48)},
		{Binding: 1, Resource: binding(countsBuf, gridBufSize)},
		{Binding: 2, Resource: binding(insideBuf, gridBufSize)},
	})
	if err != nil {
		return nil, fmt.Errorf("create sign_apply bind group: %w", err)
	}
	defer a.device.DestroyBindGroup(signBG)

	triGroups := (uint32(len(req.Triangles)) + 63) / 64
	colGroups := (uint32(req.Nx*req.Ny) + 63) / 64
	a.logger().Debug("dispatching level-set kernels",
		"triangles", len(req.Triangles), "cells", cells,
		"triGroups", triGroups, "colGroups", colGroups)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "levelset_encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("levelset"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	for _, pass := range []struct {
		label  string
		k      *kernel
		bg     hal.BindGroup
		groups uint32
	}{
		{"exact_band", &a.exact, exactBG, triGroups},
		{"cross_count", &a.count, countBG, triGroups},
		{"sign_apply", &a.sign, signBG, colGroups},
	} {
		computePass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: pass.label})
		computePass.SetPipeline(pass.k.pipeline)
		computePass.SetBindGroup(0, pass.bg, nil)
		computePass.Dispatch(pass.groups, 1, 1)
		computePass.End()
	}
	encoder.CopyBufferToBuffer(distBuf, distStaging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: gridBufSize},
	})
	encoder.CopyBufferToBuffer(insideBuf, insideStaging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: gridBufSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer a.device.FreeCommandBuffer(cmdBuf)

	fence, err := a.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer a.device.DestroyFence(fence)
	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := a.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !fenceOK {
		return nil, fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	distBack := make([]byte, gridBufSize)
	if err := a.queue.ReadBuffer(distStaging, 0, distBack); err != nil {
		return nil, fmt.Errorf("read distances: %w", err)
	}
	insideBack := make([]byte, gridBufSize)
	if err := a.queue.ReadBuffer(insideStaging, 0, insideBack); err != nil {
		return nil, fmt.Errorf("read inside flags: %w", err)
	}

	dist := make([]float32, cells)
	closed := make([]bool, cells)
	for i := range dist {
		d := math.Float32frombits(binary.LittleEndian.Uint32(distBack[i*4:]))
		dist[i] = d
		closed[i] = d < upper
	}

	cpu.Sweep(dist, closed, req.Nx, req.Ny, req.Nz, float64(req.Dx), 0, a.logger())

	for i := range dist {
		if binary.LittleEndian.Uint32(insideBack[i*4:])&1 == 1 {
			dist[i] = -dist[i]
		}
	}
	return dist, nil
}
