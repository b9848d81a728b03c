// Package sdfgen converts triangulated surface meshes into discretized
// signed distance fields on regular voxel grids.
//
// For every voxel the engine computes the approximate shortest distance to
// the mesh surface, signed negative inside the enclosed volume and positive
// outside. Distances within a thin band around the surface are exact
// point-to-triangle distances; the remainder of the grid is filled by a
// fast-sweeping Eikonal solver. Inside/outside is resolved by ray-crossing
// parity per grid column, so the mesh should be closed and consistently wound
// for meaningful signs.
//
// The computation runs on a multi-threaded CPU pipeline by default. A GPU
// pipeline using wgpu compute kernels is available as an opt-in accelerator:
//
//	import _ "github.com/gogpu/sdfgen/gpu" // enables GPU acceleration
//
// The two backends produce results that agree within a documented tolerance
// (see FieldsWithinTolerance); the CPU backend is additionally bit-for-bit
// deterministic across runs and thread counts.
//
// Basic usage:
//
//	mesh, err := meshio.Load("bunny.obj")
//	spec, err := sdfgen.ResolveGrid(mesh.Bounds(), sdfgen.GridOptions{Dx: 0.01, Padding: 2})
//	field, err := sdfgen.MakeLevelSet(mesh, spec, sdfgen.Options{})
//	err = sdfgen.WriteFieldFile("bunny.sdf", field)
package sdfgen
