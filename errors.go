package sdfgen

import "errors"

// Error values returned by the engine. All of them are surfaced to the
// caller immediately and never retried internally; callers match them with
// errors.Is. Wrapping messages name the violated precondition.
var (
	// ErrInvalidParameter indicates a non-positive cell size or dimension,
	// a missing sizing parameter, or an unrecognized backend name.
	ErrInvalidParameter = errors.New("sdfgen: invalid parameter")

	// ErrEmptyMesh indicates a mesh with zero triangles.
	ErrEmptyMesh = errors.New("sdfgen: empty mesh")

	// ErrInvalidMesh indicates malformed mesh data, such as a triangle
	// referencing a vertex index outside the vertex list or a non-finite
	// vertex coordinate.
	ErrInvalidMesh = errors.New("sdfgen: invalid mesh")

	// ErrBackendUnavailable indicates the GPU backend was requested but no
	// usable accelerator is present. It deliberately names the accelerator
	// subsystem so callers can tell "not installed" from "not requested".
	ErrBackendUnavailable = errors.New("sdfgen: gpu accelerator unavailable")

	// ErrCorruptData indicates a serialized field stream that is truncated,
	// has non-positive dimensions, or whose payload does not match the
	// declared dimensions.
	ErrCorruptData = errors.New("sdfgen: corrupt field data")
)
