package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"runtime/debug"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lixenwraith/glyphloom/clock"
	"github.com/lixenwraith/glyphloom/config"
	"github.com/lixenwraith/glyphloom/engine"
	"github.com/lixenwraith/glyphloom/pattern"
	"github.com/lixenwraith/glyphloom/render"
	"github.com/lixenwraith/glyphloom/status"
)

var (
	configFlag     = flag.String("config", "", "Path to a JSON config file")
	debugFlag      = flag.Bool("debug", false, "Write debug logs to logs/glyphloom.log")
	fpsFlag        = flag.Int("fps", config.Default().TargetFPS, "Target frames per second")
	maxFlag        = flag.Int("max", config.Default().MaxPatterns, "Maximum live patterns")
	complexityFlag = flag.Int("complexity", int(pattern.ComplexityBlocks), "Glyph palette tier (1-3)")
	legacyFlag     = flag.Bool("legacy", false, "Skip the modern context")
	snapshotFlag   = flag.String("snapshot", "", "Render headless and write a PNG to this path")
	framesFlag     = flag.Int("frames", 60, "Frames to step before writing the snapshot")
	colsFlag       = flag.Int("cols", 80, "Snapshot width in cells")
	rowsFlag       = flag.Int("rows", 24, "Snapshot height in cells")
)

func crash(label string, r any) {
	fmt.Fprintf(os.Stderr, "\r\n\x1b[31m%s: %v\x1b[0m\r\n", label, r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", debug.Stack())
	os.Exit(1)
}

// loadConfig reads -config then applies explicitly set flags on top
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configFlag)
	if err != nil {
		return cfg, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "fps":
			cfg.TargetFPS = *fpsFlag
		case "max":
			cfg.MaxPatterns = *maxFlag
		case "legacy":
			cfg.UseModernAPI = !*legacyFlag
		case "debug":
			cfg.Debug = *debugFlag
		}
	})
	return cfg, cfg.Validate()
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if logFile := setupLogging(cfg.Debug); logFile != nil {
		defer logFile.Close()
	}

	complexity := pattern.Complexity(*complexityFlag)
	if !complexity.Valid() {
		fmt.Fprintf(os.Stderr, "Complexity must be in [%d, %d]\n", pattern.MinComplexity, pattern.MaxComplexity)
		os.Exit(2)
	}

	if *snapshotFlag != "" {
		if err := runSnapshot(cfg, complexity); err != nil {
			fmt.Fprintf(os.Stderr, "Snapshot failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTerminal(cfg, complexity); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// runSnapshot renders a fixed number of frames offscreen and saves a PNG
func runSnapshot(cfg config.Config, complexity pattern.Complexity) error {
	cellW, cellH := render.CellWidth(), render.LineHeight
	surface := render.NewImageSurface(*colsFlag*cellW, *rowsFlag*cellH)
	host := clock.NewManual(time.Now())

	eng, err := engine.New(surface, cfg, engine.WithHost(host))
	if err != nil {
		return err
	}
	defer eng.Cleanup()

	err = buildScene(eng, sceneOptions{
		cols:       *colsFlag,
		rows:       *rowsFlag,
		complexity: complexity,
		frames:     4,
		pixelRect: func(r image.Rectangle) image.Rectangle {
			return image.Rect(r.Min.X*cellW, r.Min.Y*cellH, r.Max.X*cellW, r.Max.Y*cellH)
		},
	})
	if err != nil {
		return err
	}

	eng.Start()
	host.Step(*framesFlag, time.Second/time.Duration(cfg.TargetFPS))
	eng.Stop()

	return surface.SavePNG(*snapshotFlag)
}

// runTerminal drives the engine on a tcell screen until q, Esc or Ctrl-C
func runTerminal(cfg config.Config, complexity pattern.Complexity) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	// Normal exit terminal cleanup
	defer screen.Fini()

	// Ensure terminal is reset even if the main goroutine panics
	defer func() {
		if r := recover(); r != nil {
			screen.Fini()
			crash("GLYPHLOOM CRASHED", r)
		}
	}()

	screen.EnableMouse(tcell.MouseMotionEvents)
	screen.HideCursor()

	loop := clock.NewLoop(cfg.TargetFPS, clock.WithCrashHandler(func(r any) {
		screen.Fini()
		crash("RENDER LOOP CRASHED", r)
	}))
	defer loop.Stop()

	registry := status.NewRegistry()
	eng, err := engine.New(render.NewTerminalSurface(screen), cfg,
		engine.WithHost(loop),
		engine.WithRegistry(registry),
	)
	if err != nil {
		return err
	}
	defer eng.Cleanup()

	cols, rows := screen.Size()
	err = buildScene(eng, sceneOptions{
		cols:        cols,
		rows:        rows,
		complexity:  complexity,
		frames:      4,
		cellOf:      func(p pattern.Position) (float64, float64) { return p.X, p.Y },
		pixelRect:   func(r image.Rectangle) image.Rectangle { return r },
		interactive: true,
	})
	if err != nil {
		return err
	}

	overlay := newStatusOverlay(screen, registry, loop)
	loop.Start()
	eng.Start()
	overlay.start()

	eventChan := make(chan tcell.Event, 256)
	// Input polling uses raw goroutine as it interacts directly with terminal
	go func() {
		defer func() {
			if r := recover(); r != nil {
				screen.Fini()
				crash("EVENT POLLER CRASHED", r)
			}
		}()
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	paused := false
	for ev := range eventChan {
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
				return nil
			case ev.Rune() == ' ':
				paused = !paused
				for _, p := range eng.Patterns() {
					if paused {
						eng.Pause(p.ID)
					} else {
						eng.Play(p.ID)
					}
				}
			case ev.Rune() == 'r':
				for _, p := range eng.Patterns() {
					eng.Reset(p.ID)
				}
			case ev.Rune() == 's':
				overlay.toggle()
			}
		case *tcell.EventMouse:
			x, y := ev.Position()
			eng.PointerMove(float64(x), float64(y))
		case *tcell.EventResize:
			screen.Sync()
		}
	}
	return nil
}
