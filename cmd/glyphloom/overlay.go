package main

import (
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lixenwraith/glyphloom/clock"
	"github.com/lixenwraith/glyphloom/status"
)

// statusOverlay paints the metric registry in the top-left corner after
// each engine frame
type statusOverlay struct {
	screen   tcell.Screen
	registry *status.Registry
	host     clock.Host
	visible  atomic.Bool
	style    tcell.Style
}

func newStatusOverlay(screen tcell.Screen, registry *status.Registry, host clock.Host) *statusOverlay {
	o := &statusOverlay{
		screen:   screen,
		registry: registry,
		host:     host,
		style:    tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorBlack),
	}
	o.visible.Store(true)
	return o
}

// start must run after the engine starts so the overlay draws last
func (o *statusOverlay) start() {
	o.host.RequestFrame(o.frame)
}

func (o *statusOverlay) toggle() {
	o.visible.Store(!o.visible.Load())
}

func (o *statusOverlay) frame(time.Time) {
	if o.visible.Load() {
		o.draw(o.registry.Lines())
		o.screen.Show()
	}
	o.host.RequestFrame(o.frame)
}

func (o *statusOverlay) draw(lines []string) {
	w, h := o.screen.Size()
	for y, line := range lines {
		if y >= h {
			return
		}
		x := 0
		for _, r := range line {
			if x >= w {
				break
			}
			o.screen.SetContent(x, y, r, nil, o.style)
			x++
		}
	}
}
