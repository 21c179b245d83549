package compute

import "errors"

var (
	// ErrNotAllocated is returned when buffers are used before Allocate.
	ErrNotAllocated = errors.New("compute: buffers not allocated")

	// ErrLayoutMismatch indicates a frame whose buffer lengths differ from the
	// allocated layout.
	ErrLayoutMismatch = errors.New("compute: frame does not match allocated layout")

	// ErrUnavailable is returned by backends that cannot run on this host.
	ErrUnavailable = errors.New("compute: backend unavailable")
)

type Backend interface {
	Name() string
	Available() bool
	Allocate(layout Layout) error
	Upload(f *Frame) error
	Dispatch(p Params) error
	Download(f *Frame) error
	Cleanup()
}

// AutoSelectBackend prefers a GPU backend and falls back to the CPU.
func AutoSelectBackend() Backend {
	gl := NewOpenGLBackend()
	if gl.Available() {
		return gl
	}
	return NewCPUBackend(0)
}

// NewBackend returns the backend registered under name: "cpu", "opengl" or
// "auto".
func NewBackend(name string, workers int) (Backend, error) {
	switch name {
	case "", "auto":
		b := AutoSelectBackend()
		if cpu, ok := b.(*CPUBackend); ok && workers > 0 {
			cpu.workers = workers
		}
		return b, nil
	case "cpu":
		return NewCPUBackend(workers), nil
	case "opengl", "gl":
		b := NewOpenGLBackend()
		if !b.Available() {
			return nil, ErrUnavailable
		}
		return b, nil
	}
	return nil, errors.New("compute: unknown backend " + name)
}
