package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/lixenwraith/glyphloom/pattern"
)

// Vertex layout shared by every pattern quad, triangle-strip order
var (
	quadPositions = []float32{
		-1, -1,
		1, -1,
		-1, 1,
		1, 1,
	}
	// v runs top-down so row 0 of the texture lands at the top of the quad
	quadTexCoords = []float32{
		0, 1,
		1, 1,
		0, 0,
		1, 0,
	}
)

const (
	quadVertexCount = 4
	bytesPerTexel   = 4
)

func textureDescriptor(label string, size hal.Extent3D) *hal.TextureDescriptor {
	return &hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}

func samplerDescriptor(label string) *hal.SamplerDescriptor {
	return &hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	}
}

// checkTexture validates a descriptor against device limits
func checkTexture(desc *hal.TextureDescriptor, maxSize uint32) error {
	if desc == nil {
		return fmt.Errorf("render: nil texture descriptor")
	}
	if desc.Dimension != gputypes.TextureDimension2D {
		return fmt.Errorf("render: texture %q: only 2D textures are supported", desc.Label)
	}
	if desc.Format != gputypes.TextureFormatRGBA8Unorm {
		return fmt.Errorf("render: texture %q: unsupported format", desc.Label)
	}
	w, h := desc.Size.Width, desc.Size.Height
	if w == 0 || h == 0 {
		return fmt.Errorf("render: texture %q: empty extent %dx%d", desc.Label, w, h)
	}
	if w > maxSize || h > maxSize {
		return fmt.Errorf("render: texture %q: extent %dx%d exceeds limit %d", desc.Label, w, h, maxSize)
	}
	return nil
}

// quadRect is the clip-space bounding box of a transformed quad and its
// texture orientation
type quadRect struct {
	minX, minY, maxX, maxY float32
	flipX, flipY           bool
}

// resolveQuad applies the vertex stage on the CPU
func resolveQuad(positions, texcoords []float32, transform [4]float32, count int) (quadRect, error) {
	if count != quadVertexCount || len(positions) < 2*count || len(texcoords) < 2*count {
		return quadRect{}, fmt.Errorf("render: expected a %d-vertex strip", quadVertexCount)
	}
	q := quadRect{minX: 1e9, minY: 1e9, maxX: -1e9, maxY: -1e9}
	for i := range count {
		x := positions[2*i]*transform[0] + transform[2]
		y := positions[2*i+1]*transform[1] + transform[3]
		q.minX, q.maxX = min(q.minX, x), max(q.maxX, x)
		q.minY, q.maxY = min(q.minY, y), max(q.maxY, y)
	}
	// Strip vertex 0 is bottom-left and vertex 3 top-right before transform
	// Upright orientation has u growing rightward and v growing downward
	q.flipX = texcoords[0] > texcoords[6]
	q.flipY = texcoords[1] < texcoords[7]
	if transform[0] < 0 {
		q.flipX = !q.flipX
	}
	if transform[1] < 0 {
		q.flipY = !q.flipY
	}
	return q, nil
}

// toDevice maps the clip rect onto a w x h target, y down
func (q quadRect) toDevice(w, h int) (x0, y0, x1, y1 float64) {
	x0 = float64(q.minX+1) / 2 * float64(w)
	x1 = float64(q.maxX+1) / 2 * float64(w)
	y0 = float64(1-q.maxY) / 2 * float64(h)
	y1 = float64(1-q.minY) / 2 * float64(h)
	return x0, y0, x1, y1
}

// handles issues device handles; zero is reserved
type handles struct {
	next uint32
}

func (h *handles) issue() uint32 {
	h.next++
	return h.next
}

func frameFits(frame pattern.Frame, cols, rows int) error {
	if len(frame.Content) > rows {
		return fmt.Errorf("render: frame has %d rows, texture holds %d", len(frame.Content), rows)
	}
	for i, row := range frame.Content {
		if n := len([]rune(row)); n > cols {
			return fmt.Errorf("render: frame row %d has %d columns, texture holds %d", i, n, cols)
		}
	}
	return nil
}
