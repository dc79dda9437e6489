package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/wgpu/hal"
	"github.com/lixenwraith/glyphloom/pattern"
)

const rasterMaxTextureSize = 8192

type rasterTexture struct {
	desc    hal.TextureDescriptor
	sampler hal.SamplerDescriptor
	cols    int
	rows    int
	img     *image.NRGBA
	version uint64

	// shaded caches the fragment output for the last tint
	shaded    *gg.ImageBuf
	shadedKey shadeKey
}

type shadeKey struct {
	version      uint64
	tint, bg     [4]float32
	flipX, flipY bool
}

// rasterDevice composites pattern quads into an offscreen gg canvas
type rasterDevice struct {
	mu       sync.Mutex
	target   *gg.Context
	width    int
	height   int
	ids      handles
	programs map[Program]*hal.ShaderModuleDescriptor
	textures map[Texture]*rasterTexture
	buffers  map[Buffer][]float32
	bytes    int
	presents int
}

func newRasterDevice(width, height int) *rasterDevice {
	d := &rasterDevice{
		target:   gg.NewContext(width, height),
		width:    width,
		height:   height,
		programs: make(map[Program]*hal.ShaderModuleDescriptor),
		textures: make(map[Texture]*rasterTexture),
		buffers:  make(map[Buffer][]float32),
	}
	d.target.ClearWithColor(gg.Black)
	return d
}

func (d *rasterDevice) Caps() Caps {
	return Caps{API: APIModern, Name: "raster", MaxTextureSize: rasterMaxTextureSize}
}

func (d *rasterDevice) TextureExtent(cols, rows int) hal.Extent3D {
	return hal.Extent3D{
		Width:              uint32(cols * CellWidth()),
		Height:             uint32(rows * LineHeight),
		DepthOrArrayLayers: 1,
	}
}

func (d *rasterDevice) CreateProgram(desc *hal.ShaderModuleDescriptor, spirv []uint32) (Program, error) {
	if desc == nil || len(spirv) == 0 {
		return 0, fmt.Errorf("render: empty shader module")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p := Program(d.ids.issue())
	d.programs[p] = desc
	return p, nil
}

func (d *rasterDevice) DeleteProgram(p Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.programs, p)
}

func (d *rasterDevice) CreateTexture(desc *hal.TextureDescriptor, sampler *hal.SamplerDescriptor, frame pattern.Frame) (Texture, error) {
	if err := checkTexture(desc, rasterMaxTextureSize); err != nil {
		return 0, err
	}
	cols := int(desc.Size.Width) / CellWidth()
	rows := int(desc.Size.Height) / LineHeight
	if err := frameFits(frame, cols, rows); err != nil {
		return 0, err
	}
	img, err := rasterizeFrame(frame, int(desc.Size.Width), int(desc.Size.Height))
	if err != nil {
		return 0, err
	}

	tex := &rasterTexture{desc: *desc, cols: cols, rows: rows, img: img, version: 1}
	if sampler != nil {
		tex.sampler = *sampler
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	t := Texture(d.ids.issue())
	d.textures[t] = tex
	d.bytes += len(img.Pix)
	return t, nil
}

func (d *rasterDevice) UpdateTexture(t Texture, frame pattern.Frame) error {
	d.mu.Lock()
	tex, ok := d.textures[t]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("texture %d: %w", t, ErrUnknownHandle)
	}
	if err := frameFits(frame, tex.cols, tex.rows); err != nil {
		return err
	}
	img, err := rasterizeFrame(frame, int(tex.desc.Size.Width), int(tex.desc.Size.Height))
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	tex.img = img
	tex.version++
	return nil
}

func (d *rasterDevice) DeleteTexture(t Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tex, ok := d.textures[t]; ok {
		d.bytes -= len(tex.img.Pix)
		delete(d.textures, t)
	}
}

func (d *rasterDevice) CreateBuffer(data []float32) (Buffer, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("render: empty vertex buffer")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b := Buffer(d.ids.issue())
	d.buffers[b] = append([]float32(nil), data...)
	return b, nil
}

func (d *rasterDevice) DeleteBuffer(b Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, b)
}

func (d *rasterDevice) Clear(c RGB) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.target.ClearWithColor(gg.RGBA{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255, A: 1})
}

func (d *rasterDevice) Draw(call DrawCall) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.programs[call.Program]; !ok {
		return fmt.Errorf("program %d: %w", call.Program, ErrUnknownHandle)
	}
	tex, ok := d.textures[call.Texture]
	if !ok {
		return fmt.Errorf("texture %d: %w", call.Texture, ErrUnknownHandle)
	}
	positions, ok := d.buffers[call.Positions]
	if !ok {
		return fmt.Errorf("buffer %d: %w", call.Positions, ErrUnknownHandle)
	}
	texcoords, ok := d.buffers[call.TexCoords]
	if !ok {
		return fmt.Errorf("buffer %d: %w", call.TexCoords, ErrUnknownHandle)
	}

	q, err := resolveQuad(positions, texcoords, call.Transform, call.VertexCount)
	if err != nil {
		return err
	}
	x0, y0, x1, y1 := q.toDevice(d.width, d.height)
	if x1-x0 < 1 || y1-y0 < 1 {
		return nil
	}

	key := shadeKey{version: tex.version, tint: call.Tint, bg: call.Background, flipX: q.flipX, flipY: q.flipY}
	if tex.shaded == nil || tex.shadedKey != key {
		tex.shaded = gg.ImageBufFromImage(shade(tex.img, call.Tint, call.Background, q.flipX, q.flipY))
		tex.shadedKey = key
	}

	d.target.DrawImageEx(tex.shaded, gg.DrawImageOptions{
		X:             x0,
		Y:             y0,
		DstWidth:      x1 - x0,
		DstHeight:     y1 - y0,
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
		BlendMode:     ggBlend(call.Blend),
	})
	return nil
}

func (d *rasterDevice) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presents++
	return nil
}

func (d *rasterDevice) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures)
}

func (d *rasterDevice) TextureBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytes
}

func (d *rasterDevice) image() image.Image {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target.Image()
}

func (d *rasterDevice) savePNG(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target.SavePNG(path)
}

func (d *rasterDevice) encodePNG(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target.EncodePNG(w)
}

// shade runs the fragment program over every texel:
// rgb = texel*tint + background*(1-coverage), alpha = texel.a*opacity
func shade(src *image.NRGBA, tint, bg [4]float32, flipX, flipY bool) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(b)
	w, h := b.Dx(), b.Dy()
	for y := range h {
		sy := y
		if flipY {
			sy = h - 1 - y
		}
		for x := range w {
			sx := x
			if flipX {
				sx = w - 1 - x
			}
			out.SetNRGBA(x, y, shadeTexel(src.NRGBAAt(b.Min.X+sx, b.Min.Y+sy), tint, bg))
		}
	}
	return out
}

func shadeTexel(t color.NRGBA, tint, bg [4]float32) color.NRGBA {
	cov := float32(t.R) / 255
	ch := func(v uint8, tv, bv float32) uint8 {
		f := float32(v)/255*tv + bv*(1-cov)
		return clamp(float64(f * 255))
	}
	return color.NRGBA{
		R: ch(t.R, tint[0], bg[0]),
		G: ch(t.G, tint[1], bg[1]),
		B: ch(t.B, tint[2], bg[2]),
		A: clamp(float64(float32(t.A) * tint[3])),
	}
}

func ggBlend(m pattern.BlendMode) gg.BlendMode {
	switch m {
	case pattern.BlendMultiply:
		return gg.BlendMultiply
	case pattern.BlendScreen:
		return gg.BlendScreen
	case pattern.BlendOverlay:
		return gg.BlendOverlay
	}
	return gg.BlendNormal
}

// ImageSurface is an offscreen raster surface
// It serves only the modern API
type ImageSurface struct {
	width  int
	height int

	mu     sync.Mutex
	bounds image.Rectangle
	device *rasterDevice
}

// NewImageSurface creates a width x height pixel surface
func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{
		width:  width,
		height: height,
		bounds: image.Rect(0, 0, width, height),
	}
}

func (s *ImageSurface) Size() (int, int) {
	return s.width, s.height
}

// Bounds returns the client rectangle, by default the surface itself
func (s *ImageSurface) Bounds() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds
}

// SetBounds places the surface inside a larger client space
func (s *ImageSurface) SetBounds(r image.Rectangle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = r
}

func (s *ImageSurface) Context(api API) (Device, error) {
	if api != APIModern {
		return nil, fmt.Errorf("image surface: %s context: %w", api, ErrNotSupported)
	}
	if s.width <= 0 || s.height <= 0 {
		return nil, fmt.Errorf("image surface: empty size %dx%d: %w", s.width, s.height, ErrNotSupported)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		s.device = newRasterDevice(s.width, s.height)
	}
	return s.device, nil
}

// Snapshot returns a copy of the current target, nil before a context exists
func (s *ImageSurface) Snapshot() image.Image {
	s.mu.Lock()
	d := s.device
	s.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.image()
}

// SavePNG writes the current target to path
func (s *ImageSurface) SavePNG(path string) error {
	s.mu.Lock()
	d := s.device
	s.mu.Unlock()
	if d == nil {
		return fmt.Errorf("image surface: no context")
	}
	return d.savePNG(path)
}

// EncodePNG writes the current target as PNG
func (s *ImageSurface) EncodePNG(w io.Writer) error {
	s.mu.Lock()
	d := s.device
	s.mu.Unlock()
	if d == nil {
		return fmt.Errorf("image surface: no context")
	}
	return d.encodePNG(w)
}

// Presents returns how many frames have been presented
func (s *ImageSurface) Presents() int {
	s.mu.Lock()
	d := s.device
	s.mu.Unlock()
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}
