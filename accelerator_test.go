package sdfgen

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// mockAccelerator implements Accelerator for testing.
type mockAccelerator struct {
	name      string
	initErr   error
	available bool
	runErr    error
	closed    bool
	calls     int
	logger    *slog.Logger
	mu        sync.Mutex
}

func (m *mockAccelerator) Name() string { return m.name }

func (m *mockAccelerator) Init() error { return m.initErr }

func (m *mockAccelerator) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *mockAccelerator) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockAccelerator) Available() bool { return m.available }

func (m *mockAccelerator) SetLogger(l *slog.Logger) {
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

func (m *mockAccelerator) MakeLevelSet(req *LevelSetRequest) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.runErr != nil {
		return nil, m.runErr
	}
	out := make([]float32, req.Nx*req.Ny*req.Nz)
	for i := range out {
		out[i] = 42
	}
	return out, nil
}

// resetAccelerator clears the global accelerator state between tests.
func resetAccelerator() {
	accelMu.Lock()
	accel = nil
	accelMu.Unlock()
}

func TestRegisterAcceleratorNil(t *testing.T) {
	resetAccelerator()

	if err := RegisterAccelerator(nil); err == nil {
		t.Fatal("expected error when registering nil accelerator")
	}
	if RegisteredAccelerator() != nil {
		t.Error("accelerator should remain nil after failed registration")
	}
}

func TestRegisterAcceleratorInitError(t *testing.T) {
	resetAccelerator()

	initErr := errors.New("device init failed")
	mock := &mockAccelerator{name: "failing", initErr: initErr}
	if err := RegisterAccelerator(mock); !errors.Is(err, initErr) {
		t.Fatalf("err = %v, want %v", err, initErr)
	}
	if RegisteredAccelerator() != nil {
		t.Error("accelerator should remain nil after failed Init")
	}
}

func TestRegisterAcceleratorReplaces(t *testing.T) {
	resetAccelerator()
	t.Cleanup(resetAccelerator)

	first := &mockAccelerator{name: "first", available: true}
	second := &mockAccelerator{name: "second", available: true}
	if err := RegisterAccelerator(first); err != nil {
		t.Fatal(err)
	}
	if err := RegisterAccelerator(second); err != nil {
		t.Fatal(err)
	}
	if got := RegisteredAccelerator(); got != second {
		t.Errorf("RegisteredAccelerator() = %v, want second", got)
	}
	if !first.isClosed() {
		t.Error("replaced accelerator was not closed")
	}
	if second.isClosed() {
		t.Error("active accelerator was closed")
	}
}

func TestIsGPUAvailable(t *testing.T) {
	resetAccelerator()
	t.Cleanup(resetAccelerator)

	if IsGPUAvailable() {
		t.Error("available with no accelerator registered")
	}
	if err := RegisterAccelerator(&mockAccelerator{name: "nodev"}); err != nil {
		t.Fatal(err)
	}
	if IsGPUAvailable() {
		t.Error("available with no usable device")
	}
	if err := RegisterAccelerator(&mockAccelerator{name: "dev", available: true}); err != nil {
		t.Fatal(err)
	}
	if !IsGPUAvailable() {
		t.Error("not available with a usable device registered")
	}
}

func TestMakeLevelSetDispatchesToAccelerator(t *testing.T) {
	resetAccelerator()
	t.Cleanup(resetAccelerator)

	mock := &mockAccelerator{name: "mock", available: true}
	if err := RegisterAccelerator(mock); err != nil {
		t.Fatal(err)
	}

	f, err := MakeLevelSet(unitCube(0.5), cubeSpec(), Options{Backend: BackendGPU})
	if err != nil {
		t.Fatal(err)
	}
	if mock.calls != 1 {
		t.Errorf("accelerator called %d times, want 1", mock.calls)
	}
	if f.Values[0] != 42 {
		t.Errorf("field value = %v, want accelerator output", f.Values[0])
	}
	if got := ActiveBackend(); got != BackendGPU {
		t.Errorf("ActiveBackend() = %v, want gpu", got)
	}

	// Auto resolves to the registered, available accelerator too.
	if _, err := MakeLevelSet(unitCube(0.5), cubeSpec(), Options{}); err != nil {
		t.Fatal(err)
	}
	if mock.calls != 2 {
		t.Errorf("accelerator called %d times after auto, want 2", mock.calls)
	}
}

func TestMakeLevelSetAutoFallsBackWhenUnavailable(t *testing.T) {
	resetAccelerator()
	t.Cleanup(resetAccelerator)

	mock := &mockAccelerator{name: "nodev"}
	if err := RegisterAccelerator(mock); err != nil {
		t.Fatal(err)
	}

	if _, err := MakeLevelSet(unitCube(0.5), cubeSpec(), Options{}); err != nil {
		t.Fatal(err)
	}
	if mock.calls != 0 {
		t.Error("unavailable accelerator was invoked")
	}
	if got := ActiveBackend(); got != BackendCPU {
		t.Errorf("ActiveBackend() = %v, want cpu", got)
	}

	// Forcing the gpu backend with no usable device is an error.
	if _, err := MakeLevelSet(unitCube(0.5), cubeSpec(), Options{Backend: BackendGPU}); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("err = %v, want ErrBackendUnavailable", err)
	}
}

func TestMakeLevelSetAcceleratorFailureIsHard(t *testing.T) {
	resetAccelerator()
	t.Cleanup(resetAccelerator)

	runErr := errors.New("device lost")
	mock := &mockAccelerator{name: "flaky", available: true, runErr: runErr}
	if err := RegisterAccelerator(mock); err != nil {
		t.Fatal(err)
	}

	// A present but failing accelerator must surface the failure, never
	// fall back to the CPU silently.
	_, err := MakeLevelSet(unitCube(0.5), cubeSpec(), Options{})
	if !errors.Is(err, runErr) {
		t.Fatalf("err = %v, want wrapped %v", err, runErr)
	}
}
