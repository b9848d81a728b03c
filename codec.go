package sdfgen

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gogpu/sdfgen/geom"
)

// Binary field container layout, little-endian:
//
//	offset  size  content
//	0       12    nx, ny, nz        (3 x int32)
//	12      12    origin x, y, z    (3 x float32)
//	24      4     dx                (float32)
//	28      ...   payload, nx*ny*nz float32 values, i outermost / k innermost
//
// There is no version field; any stream shorter than the header is corrupt.
const fieldHeaderSize = 28

// maxFieldCells caps the voxel count a decoder will allocate for.
// A header announcing more than this is treated as corrupt rather than
// letting a hostile stream drive a giant allocation; at 2^30 cells the
// float32 payload tops out at 4 GiB.
const maxFieldCells = 1 << 30

// EncodeField writes the field to w in the binary container format.
// The payload is written verbatim at 32-bit precision, so a round trip
// through DecodeField reproduces the values bit for bit.
func EncodeField(w io.Writer, f *Field) error {
	if err := f.Spec().Validate(); err != nil {
		return err
	}
	if len(f.Values) != f.Nx*f.Ny*f.Nz {
		return fmt.Errorf("%w: field has %d values for a %dx%dx%d grid",
			ErrInvalidParameter, len(f.Values), f.Nx, f.Ny, f.Nz)
	}

	var header [fieldHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:], uint32(f.Nx))
	binary.LittleEndian.PutUint32(header[4:], uint32(f.Ny))
	binary.LittleEndian.PutUint32(header[8:], uint32(f.Nz))
	binary.LittleEndian.PutUint32(header[12:], math.Float32bits(f.Origin.X))
	binary.LittleEndian.PutUint32(header[16:], math.Float32bits(f.Origin.Y))
	binary.LittleEndian.PutUint32(header[20:], math.Float32bits(f.Origin.Z))
	binary.LittleEndian.PutUint32(header[24:], math.Float32bits(f.Dx))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("sdfgen: write field header: %w", err)
	}

	// Chunked payload conversion keeps the allocation bounded on big grids.
	const chunk = 16384
	buf := make([]byte, 0, chunk*4)
	for off := 0; off < len(f.Values); off += chunk {
		end := min(off+chunk, len(f.Values))
		buf = buf[:0]
		for _, v := range f.Values[off:end] {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("sdfgen: write field payload: %w", err)
		}
	}
	return nil
}

// DecodeField reads a field from the binary container format.
// It fails with ErrCorruptData when the stream is shorter than the header,
// the dimensions are non-positive, or the payload ends before nx*ny*nz
// values have been read.
func DecodeField(r io.Reader) (*Field, error) {
	var header [fieldHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: stream shorter than %d-byte header: %v",
			ErrCorruptData, fieldHeaderSize, err)
	}

	nx := int(int32(binary.LittleEndian.Uint32(header[0:])))
	ny := int(int32(binary.LittleEndian.Uint32(header[4:])))
	nz := int(int32(binary.LittleEndian.Uint32(header[8:])))
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("%w: non-positive dimensions %dx%dx%d", ErrCorruptData, nx, ny, nz)
	}
	// Two-step product so hostile dimensions cannot overflow int64.
	cells := int64(nx) * int64(ny)
	if cells > maxFieldCells/int64(nz) {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d exceed decoder limit",
			ErrCorruptData, nx, ny, nz)
	}
	cells *= int64(nz)

	f := &Field{
		Values: make([]float32, cells),
		Nx:     nx,
		Ny:     ny,
		Nz:     nz,
		Origin: geom.Vec3{
			X: math.Float32frombits(binary.LittleEndian.Uint32(header[12:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(header[16:])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(header[20:])),
		},
		Dx: math.Float32frombits(binary.LittleEndian.Uint32(header[24:])),
	}

	const chunk = 16384
	buf := make([]byte, chunk*4)
	for off := 0; off < len(f.Values); off += chunk {
		end := min(off+chunk, len(f.Values))
		b := buf[:(end-off)*4]
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("%w: payload ends at value %d of %d: %v",
				ErrCorruptData, off, cells, err)
		}
		for i := off; i < end; i++ {
			f.Values[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[(i-off)*4:]))
		}
	}
	return f, nil
}

// WriteFieldFile encodes the field to the named file.
func WriteFieldFile(path string, f *Field) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sdfgen: create %s: %w", path, err)
	}
	w := bufio.NewWriter(file)
	if err := EncodeField(w, f); err != nil {
		file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("sdfgen: write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("sdfgen: close %s: %w", path, err)
	}
	return nil
}

// ReadFieldFile decodes a field from the named file. A trailing excess of
// bytes beyond the declared payload is tolerated; a short file is not.
func ReadFieldFile(path string) (*Field, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sdfgen: open %s: %w", path, err)
	}
	defer file.Close()
	f, err := DecodeField(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return f, nil
}
