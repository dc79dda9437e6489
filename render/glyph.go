package render

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/lixenwraith/glyphloom/pattern"
)

// Glyph raster metrics: 16px monospace, one row every 16px
const (
	GlyphSize  = 16.0
	LineHeight = 16
)

type glyphFace struct {
	face      text.Face
	cellWidth int
}

var loadGlyphFace = sync.OnceValues(func() (*glyphFace, error) {
	source, err := text.NewFontSource(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("render: load monospace font: %w", err)
	}
	face := source.Face(GlyphSize)
	w := int(math.Ceil(face.Advance("M")))
	if w <= 0 {
		w = int(GlyphSize / 2)
	}
	return &glyphFace{face: face, cellWidth: w}, nil
})

// CellWidth returns the pixel advance of one glyph column
func CellWidth() int {
	gf, err := loadGlyphFace()
	if err != nil {
		return int(GlyphSize / 2)
	}
	return gf.cellWidth
}

// rasterizeFrame draws white glyphs on black, row i on baseline (i+1)*LineHeight
func rasterizeFrame(frame pattern.Frame, width, height int) (*image.NRGBA, error) {
	gf, err := loadGlyphFace()
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()

	dc.ClearWithColor(gg.Black)
	dc.SetFont(gf.face)
	dc.SetRGB(1, 1, 1)

	for i, row := range frame.Content {
		baseline := float64((i + 1) * LineHeight)
		col := 0
		for _, r := range row {
			if r != ' ' {
				dc.DrawString(string(r), float64(col*gf.cellWidth), baseline)
			}
			col++
		}
	}

	src := dc.Image()
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, xdraw.Src)
	return dst, nil
}
