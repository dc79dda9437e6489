// Package render draws pattern frames as textured quads through a small
// GL-shaped device abstraction. Two devices exist: a raster device that
// composites into an offscreen canvas and a cell device that writes tinted
// glyphs into a terminal screen.
package render

import (
	"errors"
	"image"

	"github.com/gogpu/wgpu/hal"
	"github.com/lixenwraith/glyphloom/pattern"
)

var (
	// ErrNotSupported means the surface offers neither context API
	ErrNotSupported = errors.New("render: no supported context")

	// ErrPatternNotFound is returned for ids that were never loaded
	ErrPatternNotFound = errors.New("render: pattern not found")

	// ErrClosed is returned after Cleanup
	ErrClosed = errors.New("render: renderer closed")

	// ErrUnknownHandle is returned by devices for stale or foreign handles
	ErrUnknownHandle = errors.New("render: unknown handle")
)

// API selects a context generation
type API int

const (
	// APIModern is the preferred context
	APIModern API = iota + 1
	// APILegacy is the fallback context
	APILegacy
)

func (a API) String() string {
	switch a {
	case APIModern:
		return "modern"
	case APILegacy:
		return "legacy"
	}
	return "unknown"
}

// Surface is a drawable target that can hand out device contexts
type Surface interface {
	// Size returns the drawable size in device units (pixels or cells)
	Size() (width, height int)
	// Bounds is the client-space rectangle used to translate pointer input
	Bounds() image.Rectangle
	// Context acquires a device for api, or fails if the api is unavailable
	Context(api API) (Device, error)
}

// Handle types issued by a Device, zero is never valid
type (
	Program uint32
	Texture uint32
	Buffer  uint32
)

// Caps describes what a device can do
type Caps struct {
	API            API
	Name           string
	MaxTextureSize uint32
}

// DrawCall is one textured quad draw
type DrawCall struct {
	Program   Program
	Texture   Texture
	Positions Buffer // 4 vec2 in clip space, strip order
	TexCoords Buffer // 4 vec2 texture coordinates

	// Transform maps clip positions: p' = p*xy + zw
	Transform [4]float32
	// Tint is rgb tint with opacity in alpha
	Tint [4]float32
	// Background rgb fills uncovered texels, zero keeps them black
	Background [4]float32
	Blend      pattern.BlendMode

	VertexCount int
}

// Device is the GL-shaped backend a Renderer drives
type Device interface {
	Caps() Caps

	// TextureExtent is the texel size of a texture holding cols x rows glyphs
	TextureExtent(cols, rows int) hal.Extent3D

	CreateProgram(desc *hal.ShaderModuleDescriptor, spirv []uint32) (Program, error)
	DeleteProgram(p Program)

	CreateTexture(desc *hal.TextureDescriptor, sampler *hal.SamplerDescriptor, frame pattern.Frame) (Texture, error)
	UpdateTexture(t Texture, frame pattern.Frame) error
	DeleteTexture(t Texture)

	CreateBuffer(data []float32) (Buffer, error)
	DeleteBuffer(b Buffer)

	// Clear fills the target with an opaque color
	Clear(c RGB)
	Draw(call DrawCall) error
	Present() error

	// LiveTextures and TextureBytes report texture allocations
	LiveTextures() int
	TextureBytes() int
}
