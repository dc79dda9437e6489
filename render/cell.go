package render

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/wgpu/hal"
	"github.com/lixenwraith/glyphloom/pattern"
)

const cellMaxTextureSize = 4096

type cellTexture struct {
	desc    hal.TextureDescriptor
	sampler hal.SamplerDescriptor
	glyphs  [][]rune
}

func glyphGrid(frame pattern.Frame, cols, rows int) [][]rune {
	grid := make([][]rune, rows)
	for y := range grid {
		line := make([]rune, cols)
		for x := range line {
			line[x] = ' '
		}
		if y < len(frame.Content) {
			copy(line, []rune(frame.Content[y]))
		}
		grid[y] = line
	}
	return grid
}

// cellDevice treats the terminal as a texture target with one texel per cell
type cellDevice struct {
	mu       sync.Mutex
	screen   tcell.Screen
	ids      handles
	programs map[Program]*hal.ShaderModuleDescriptor
	textures map[Texture]*cellTexture
	buffers  map[Buffer][]float32
	bytes    int
}

func newCellDevice(screen tcell.Screen) *cellDevice {
	return &cellDevice{
		screen:   screen,
		programs: make(map[Program]*hal.ShaderModuleDescriptor),
		textures: make(map[Texture]*cellTexture),
		buffers:  make(map[Buffer][]float32),
	}
}

func (d *cellDevice) Caps() Caps {
	return Caps{API: APILegacy, Name: "cell", MaxTextureSize: cellMaxTextureSize}
}

func (d *cellDevice) TextureExtent(cols, rows int) hal.Extent3D {
	return hal.Extent3D{Width: uint32(cols), Height: uint32(rows), DepthOrArrayLayers: 1}
}

func (d *cellDevice) CreateProgram(desc *hal.ShaderModuleDescriptor, spirv []uint32) (Program, error) {
	if desc == nil || len(spirv) == 0 {
		return 0, fmt.Errorf("render: empty shader module")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	p := Program(d.ids.issue())
	d.programs[p] = desc
	return p, nil
}

func (d *cellDevice) DeleteProgram(p Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.programs, p)
}

func (d *cellDevice) CreateTexture(desc *hal.TextureDescriptor, sampler *hal.SamplerDescriptor, frame pattern.Frame) (Texture, error) {
	if err := checkTexture(desc, cellMaxTextureSize); err != nil {
		return 0, err
	}
	cols, rows := int(desc.Size.Width), int(desc.Size.Height)
	if err := frameFits(frame, cols, rows); err != nil {
		return 0, err
	}
	tex := &cellTexture{desc: *desc, glyphs: glyphGrid(frame, cols, rows)}
	if sampler != nil {
		tex.sampler = *sampler
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	t := Texture(d.ids.issue())
	d.textures[t] = tex
	d.bytes += cols * rows * bytesPerTexel
	return t, nil
}

func (d *cellDevice) UpdateTexture(t Texture, frame pattern.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	tex, ok := d.textures[t]
	if !ok {
		return fmt.Errorf("texture %d: %w", t, ErrUnknownHandle)
	}
	cols, rows := int(tex.desc.Size.Width), int(tex.desc.Size.Height)
	if err := frameFits(frame, cols, rows); err != nil {
		return err
	}
	tex.glyphs = glyphGrid(frame, cols, rows)
	return nil
}

func (d *cellDevice) DeleteTexture(t Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tex, ok := d.textures[t]; ok {
		d.bytes -= int(tex.desc.Size.Width*tex.desc.Size.Height) * bytesPerTexel
		delete(d.textures, t)
	}
}

func (d *cellDevice) CreateBuffer(data []float32) (Buffer, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("render: empty vertex buffer")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	b := Buffer(d.ids.issue())
	d.buffers[b] = append([]float32(nil), data...)
	return b, nil
}

func (d *cellDevice) DeleteBuffer(b Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, b)
}

func (d *cellDevice) Clear(c RGB) {
	d.mu.Lock()
	defer d.mu.Unlock()
	style := tcell.StyleDefault.Background(c.Tcell()).Foreground(c.Tcell())
	w, h := d.screen.Size()
	for y := range h {
		for x := range w {
			d.screen.SetContent(x, y, ' ', nil, style)
		}
	}
}

// Draw samples the glyph grid per covered cell (nearest) and composites
// the shaded result into the screen; background applies to every covered
// cell, glyph texels also replace the rune and tint the foreground
func (d *cellDevice) Draw(call DrawCall) error {
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
	sw, sh := d.screen.Size()
	fx0, fy0, fx1, fy1 := q.toDevice(sw, sh)
	x0, y0 := int(math.Round(fx0)), int(math.Round(fy0))
	x1, y1 := int(math.Round(fx1)), int(math.Round(fy1))
	dw, dh := x1-x0, y1-y0
	if dw <= 0 || dh <= 0 {
		return nil
	}

	tint := RGB{R: clamp(float64(call.Tint[0]) * 255), G: clamp(float64(call.Tint[1]) * 255), B: clamp(float64(call.Tint[2]) * 255)}
	bg := RGB{R: clamp(float64(call.Background[0]) * 255), G: clamp(float64(call.Background[1]) * 255), B: clamp(float64(call.Background[2]) * 255)}
	alpha := float64(call.Tint[3])
	if alpha <= 0 {
		return nil
	}

	cols, rows := int(tex.desc.Size.Width), int(tex.desc.Size.Height)
	for y := max(y0, 0); y < min(y1, sh); y++ {
		row := (y - y0) * rows / dh
		if q.flipY {
			row = rows - 1 - row
		}
		for x := max(x0, 0); x < min(x1, sw); x++ {
			col := (x - x0) * cols / dw
			if q.flipX {
				col = cols - 1 - col
			}
			d.compositeCell(x, y, tex.glyphs[row][col], tint, bg, alpha, call.Blend)
		}
	}
	return nil
}

func (d *cellDevice) compositeCell(x, y int, glyph rune, tint, bg RGB, alpha float64, mode pattern.BlendMode) {
	mainc, _, style, _ := d.screen.GetContent(x, y)
	dstFg, dstBg, _ := style.Decompose()
	fg, back := FromTcell(dstFg), FromTcell(dstBg)

	back = Composite(mode, back, bg, alpha)
	if glyph != ' ' {
		base := back
		if mainc != ' ' && mainc != 0 {
			base = fg
		}
		fg = Composite(mode, base, tint, alpha)
		mainc = glyph
	} else if alpha >= 1 && mode == pattern.BlendNormal {
		mainc = ' '
	}
	if mainc == 0 {
		mainc = ' '
	}

	d.screen.SetContent(x, y, mainc, nil, tcell.StyleDefault.Foreground(fg.Tcell()).Background(back.Tcell()))
}

func (d *cellDevice) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.screen.Show()
	return nil
}

func (d *cellDevice) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures)
}

func (d *cellDevice) TextureBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bytes
}

// TerminalSurface adapts a tcell screen; it serves only the legacy API
type TerminalSurface struct {
	screen tcell.Screen

	mu     sync.Mutex
	device *cellDevice
}

// NewTerminalSurface wraps an initialized screen
func NewTerminalSurface(screen tcell.Screen) *TerminalSurface {
	return &TerminalSurface{screen: screen}
}

func (s *TerminalSurface) Screen() tcell.Screen {
	return s.screen
}

func (s *TerminalSurface) Size() (int, int) {
	return s.screen.Size()
}

// Bounds is the cell grid; pointer events arrive in cell coordinates
func (s *TerminalSurface) Bounds() image.Rectangle {
	w, h := s.screen.Size()
	return image.Rect(0, 0, w, h)
}

func (s *TerminalSurface) Context(api API) (Device, error) {
	if api != APILegacy {
		return nil, fmt.Errorf("terminal surface: %s context: %w", api, ErrNotSupported)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		s.device = newCellDevice(s.screen)
	}
	return s.device, nil
}
