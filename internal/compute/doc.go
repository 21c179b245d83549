// Package compute runs the per-particle integration kernel on a device.
//
// A device is anything implementing [Backend]: it owns its own copies of the
// particle, grid and link buffers, receives the host mirrors through Upload,
// executes one kernel thread per particle slot in Dispatch and hands results
// back through Download.
//
//   - CPU: the kernel in Go, one goroutine per contiguous chunk of ids
//   - OpenGL: a GLSL 4.3 compute shader over shader storage buffers
//
// # Backend selection
//
//	backend := compute.AutoSelectBackend()
//	defer backend.Cleanup()
//
// Build with OpenGL compute support:
//
//	go build -tags opengl ./...
//
// The kernel lets threads race on shared positions during collision
// resolution. Results are only deterministic on a single worker.
package compute
