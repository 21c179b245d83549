//go:build !opengl

package compute

type OpenGLBackend struct{}

func NewOpenGLBackend() *OpenGLBackend {
	return &OpenGLBackend{}
}

func (c *OpenGLBackend) Name() string          { return "opengl (not available)" }
func (c *OpenGLBackend) Available() bool       { return false }
func (c *OpenGLBackend) Allocate(Layout) error { return ErrUnavailable }
func (c *OpenGLBackend) Upload(*Frame) error   { return ErrUnavailable }
func (c *OpenGLBackend) Dispatch(Params) error { return ErrUnavailable }
func (c *OpenGLBackend) Download(*Frame) error { return ErrUnavailable }
func (c *OpenGLBackend) Cleanup()              {}
