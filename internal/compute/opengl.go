//go:build opengl

package compute

import (
	_ "embed"
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/san-kum/partsim/internal/geom"
)

//go:embed shaders/integrate.comp
var integrateShader string

const (
	bindPositions = iota
	bindLastPositions
	bindTravel
	bindActive
	bindGridKeys
	bindGridValues
	bindLinkKeys
	bindLinks
	bindLinkStrain
	bindCount
)

const workGroupSize = 256

// OpenGLBackend runs the kernel as a compute shader. It must be used from the
// goroutine that owns the current GL context.
type OpenGLBackend struct {
	program     uint32
	buffers     [bindCount]uint32
	layout      Layout
	initialized bool
	ready       bool
	version     string
}

func NewOpenGLBackend() *OpenGLBackend {
	return &OpenGLBackend{}
}

func (c *OpenGLBackend) Name() string {
	if c.version != "" {
		return "opengl (" + c.version + ")"
	}
	return "opengl"
}

// Available initialises GL function pointers and reports whether a context
// with compute shader support is current.
func (c *OpenGLBackend) Available() bool {
	if c.initialized {
		return true
	}
	if err := c.init(); err != nil {
		return false
	}
	return true
}

func (c *OpenGLBackend) init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to init opengl: %v", err)
	}
	v := gl.GetString(gl.VERSION)
	if v == nil {
		return ErrUnavailable
	}
	c.version = gl.GoStr(v)

	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if major < 4 || (major == 4 && minor < 3) {
		return fmt.Errorf("%w: need GL 4.3, have %d.%d", ErrUnavailable, major, minor)
	}

	program, err := createComputeProgram(integrateShader)
	if err != nil {
		return err
	}
	c.program = program
	gl.GenBuffers(bindCount, &c.buffers[0])
	c.initialized = true
	return nil
}

func (c *OpenGLBackend) Allocate(layout Layout) error {
	if !c.initialized {
		if err := c.init(); err != nil {
			return err
		}
	}
	sizes := [bindCount]int{
		bindPositions:     layout.Particles * 8,
		bindLastPositions: layout.Particles * 8,
		bindTravel:        layout.Particles * 4,
		bindActive:        layout.Particles * 4,
		bindGridKeys:      layout.Cells * 4,
		bindGridValues:    layout.GridValues() * 4,
		bindLinkKeys:      layout.Particles * layout.LinksPerParticle * 4,
		bindLinks:         layout.Links * int(unsafe.Sizeof(Link{})),
		bindLinkStrain:    layout.Links * 4,
	}
	for binding, buf := range c.buffers {
		size := max(sizes[binding], 4)
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf)
		gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, nil, gl.DYNAMIC_DRAW)
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, uint32(binding), buf)
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, c.buffers[bindTravel])
	gl.ClearBufferData(gl.SHADER_STORAGE_BUFFER, gl.R32F, gl.RED, gl.FLOAT, nil)

	c.layout = layout
	c.ready = true
	return nil
}

func subData[T any](buf uint32, offset int, data []T) {
	if len(data) == 0 {
		return
	}
	var zero T
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, offset, len(data)*int(unsafe.Sizeof(zero)), gl.Ptr(&data[0]))
}

func getData[T any](buf uint32, data []T) {
	if len(data) == 0 {
		return
	}
	var zero T
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, buf)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(data)*int(unsafe.Sizeof(zero)), gl.Ptr(&data[0]))
}

func (c *OpenGLBackend) Upload(f *Frame) error {
	if !c.ready {
		return ErrNotAllocated
	}
	if len(f.Positions) != c.layout.Particles || len(f.Links) != c.layout.Links || len(f.GridKeys) != c.layout.Cells {
		return ErrLayoutMismatch
	}
	subData(c.buffers[bindPositions], 0, f.Positions)
	subData(c.buffers[bindLastPositions], 0, f.LastPositions)
	subData(c.buffers[bindActive], 0, f.Active)
	subData(c.buffers[bindGridKeys], 0, f.GridKeys)
	subData(c.buffers[bindGridValues], 0, f.GridValues)
	subData(c.buffers[bindLinkKeys], 0, f.LinkKeys)
	subData(c.buffers[bindLinks], 0, f.Links)
	subData(c.buffers[bindLinkStrain], 0, f.LinkStrain)

	zero := []float32{0}
	for _, id := range f.Fresh {
		subData(c.buffers[bindTravel], int(id)*4, zero)
	}
	return nil
}

func (c *OpenGLBackend) uniform(name string) int32 {
	return gl.GetUniformLocation(c.program, gl.Str(name+"\x00"))
}

func vec2(loc int32, v geom.Vec2) { gl.Uniform2f(loc, v[0], v[1]) }

func (c *OpenGLBackend) Dispatch(p Params) error {
	if !c.ready {
		return ErrNotAllocated
	}
	gl.UseProgram(c.program)

	gl.Uniform1i(c.uniform("numParticles"), int32(c.layout.Particles))
	gl.Uniform1f(c.uniform("radius"), p.Radius)
	vec2(c.uniform("extents"), p.Extents)
	gl.Uniform2i(c.uniform("cellCount"), p.CellCount[0], p.CellCount[1])
	vec2(c.uniform("cellSize"), p.CellSize)
	gl.Uniform1f(c.uniform("dt"), p.Dt)
	vec2(c.uniform("gravity"), p.Gravity)
	gl.Uniform1f(c.uniform("antiPressurePower"), p.AntiPressurePower)
	gl.Uniform1i(c.uniform("iterations"), p.Iterations)
	gl.Uniform1i(c.uniform("maxLinksPerParticle"), p.MaxLinksPerParticle)
	gl.Uniform1f(c.uniform("edgeMargin"), p.EdgeMargin)
	gl.Uniform1f(c.uniform("cohesion"), p.Cohesion)
	gl.Uniform1f(c.uniform("damping"), p.Damping)

	groups := (c.layout.Particles + workGroupSize - 1) / workGroupSize
	gl.DispatchCompute(uint32(groups), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)
	return nil
}

func (c *OpenGLBackend) Download(f *Frame) error {
	if !c.ready {
		return ErrNotAllocated
	}
	getData(c.buffers[bindPositions], f.Positions)
	getData(c.buffers[bindLastPositions], f.LastPositions)
	getData(c.buffers[bindLinkStrain], f.LinkStrain)
	return nil
}

func (c *OpenGLBackend) Cleanup() {
	if !c.initialized {
		return
	}
	gl.DeleteBuffers(bindCount, &c.buffers[0])
	gl.DeleteProgram(c.program)
	c.initialized = false
	c.ready = false
}

func createComputeProgram(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("failed to compile compute shader: %v", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return 0, fmt.Errorf("failed to link program")
	}

	gl.DeleteShader(shader)
	return program, nil
}
