// Package video is the optional thin renderer invoked with --graphics: it
// draws the VIC-II text-mode screen from the backdoor peek interface. It
// is a consumer of Executive, not part of the emulation core, following
// flga-vnes/cmd/vnes/main.go's separation of its SDL2 GUI from nes.Console.
package video

import (
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/cyberplant/c64py/c64"
)

func init() {
	// SDL2 requires its event loop to run pinned to the thread that
	// initialized it, same as flga-vnes/cmd/vnes/main.go's init().
	runtime.LockOSThread()
}

const (
	cols, rows   = 40, 25
	cellW, cellH = 8, 8
)

// Renderer draws one screen's worth of text-mode cells per Frame call. It
// does not attempt character-ROM glyph rendering (Non-goal beyond a
// minimal stub); each cell is drawn as a solid block in its C64 color,
// enough to see program output and screen activity.
type Renderer struct {
	window   *sdl.Window
	surface  *sdl.Surface
	scale    int32
}

// New opens an SDL2 window sized for a scaled 40x25 text screen.
func New(title string, scale int32) (*Renderer, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("video: sdl init: %w", err)
	}

	w := int32(cols*cellW) * scale
	h := int32(rows*cellH) * scale
	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED, w, h, sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, fmt.Errorf("video: create window: %w", err)
	}

	surface, err := window.GetSurface()
	if err != nil {
		return nil, fmt.Errorf("video: get surface: %w", err)
	}

	return &Renderer{window: window, surface: surface, scale: scale}, nil
}

func (r *Renderer) Close() {
	r.window.Destroy()
	sdl.Quit()
}

// PollQuit reports whether the user closed the window, for the caller's
// main loop to break out of --graphics mode cleanly.
func (r *Renderer) PollQuit() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if _, ok := event.(*sdl.QuitEvent); ok {
			return true
		}
	}
	return false
}

// Frame reads the VIC-II backdoor screen/color RAM and fills each cell's
// rectangle with the C64 palette color found in color RAM.
func (r *Renderer) Frame(vic *c64.VICII, mem *c64.MemoryMap) error {
	screen := vic.PeekScreen()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			offset := row*cols + col
			_ = screen[offset] // screen code, unused without glyph rendering
			colorIdx := mem.PeekColorRAM(offset)
			rect := sdl.Rect{
				X: int32(col*cellW) * r.scale,
				Y: int32(row*cellH) * r.scale,
				W: int32(cellW) * r.scale,
				H: int32(cellH) * r.scale,
			}
			c := c64Palette[colorIdx&0x0F]
			r.surface.FillRect(&rect, sdl.MapRGB(r.surface.Format, c.R, c.G, c.B))
		}
	}
	return r.window.UpdateSurface()
}

// c64Palette is a commonly cited 16-color C64 palette (not Pepto's
// measured values), indexed by the 4-bit color RAM nibble.
var c64Palette = [16]struct{ R, G, B uint8 }{
	{0, 0, 0}, {255, 255, 255}, {136, 0, 0}, {170, 255, 238},
	{204, 68, 204}, {0, 204, 85}, {0, 0, 170}, {238, 238, 119},
	{221, 136, 85}, {102, 68, 0}, {255, 119, 119}, {51, 51, 51},
	{119, 119, 119}, {170, 255, 102}, {0, 136, 255}, {187, 187, 187},
}
