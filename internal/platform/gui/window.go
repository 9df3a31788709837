// Package gui adapts a pixelgl window into the driver.Display and
// driver.Keypad ports: it renders the 64x32 framebuffer as scaled rectangles
// and reports the CHIP-8 hex keypad from the host keyboard. Grounded on the
// teacher's internal/pixel/pixel.go, generalized from a single concrete
// struct the emulator loop called directly into the small adapter surface
// internal/driver depends on.
package gui

import (
	"fmt"

	"github.com/faiface/pixel"
	"github.com/faiface/pixel/imdraw"
	"github.com/faiface/pixel/pixelgl"
	"golang.org/x/image/colornames"

	"github.com/tifelabs/chippy/internal/chip8"
)

const (
	cols = chip8.DisplayWidth
	rows = chip8.DisplayHeight

	defaultScreenWidth  = 1024
	defaultScreenHeight = 768
)

// keyMap mirrors the conventional CHIP-8 keypad layout onto a QWERTY
// keyboard, same bindings the teacher's pixel.Window used.
var keyMap = map[byte]pixelgl.Button{
	0x1: pixelgl.Key1, 0x2: pixelgl.Key2, 0x3: pixelgl.Key3, 0xC: pixelgl.Key4,
	0x4: pixelgl.KeyQ, 0x5: pixelgl.KeyW, 0x6: pixelgl.KeyE, 0xD: pixelgl.KeyR,
	0x7: pixelgl.KeyA, 0x8: pixelgl.KeyS, 0x9: pixelgl.KeyD, 0xE: pixelgl.KeyF,
	0xA: pixelgl.KeyZ, 0x0: pixelgl.KeyX, 0xB: pixelgl.KeyC, 0xF: pixelgl.KeyV,
}

// Reserved host control keys (driver.ControlKeys), grounded on
// deluziki-chip-8-emulator/main.go's P/R handling. Unlike that source, these
// don't double as hex-key bindings (KeyR is already 0xD above), so they're
// bound to keys outside keyMap entirely rather than shadowing a hex key.
const (
	pauseKey  = pixelgl.KeyP
	reloadKey = pixelgl.KeyBackspace
)

// Window wraps a pixelgl window and implements driver.Display and
// driver.Keypad for it.
type Window struct {
	*pixelgl.Window
	imd *imdraw.IMDraw
}

// New opens a pixelgl window sized for a scaled 64x32 framebuffer.
func New(title string) (*Window, error) {
	cfg := pixelgl.WindowConfig{
		Title:  title,
		Bounds: pixel.R(0, 0, defaultScreenWidth, defaultScreenHeight),
		VSync:  true,
	}
	w, err := pixelgl.NewWindow(cfg)
	if err != nil {
		return nil, fmt.Errorf("gui: opening window: %w", err)
	}
	return &Window{Window: w, imd: imdraw.New(nil)}, nil
}

// Present implements driver.Display: clears the window and redraws every set
// pixel as a scaled rectangle, then swaps buffers and pumps input events.
func (w *Window) Present(buf chip8.Display) {
	w.Clear(colornames.Black)

	w.imd.Clear()
	w.imd.Color = pixel.RGB(1, 1, 1)

	cellW := defaultScreenWidth / float64(cols)
	cellH := defaultScreenHeight / float64(rows)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if buf[y*cols+x] == 0 {
				continue
			}
			// Flip Y: CHIP-8 row 0 is the top of the screen, pixel's origin
			// is bottom-left.
			flippedY := float64(rows - 1 - y)
			w.imd.Push(pixel.V(cellW*float64(x), cellH*flippedY))
			w.imd.Push(pixel.V(cellW*float64(x)+cellW, cellH*flippedY+cellH))
			w.imd.Rectangle(0)
		}
	}

	w.imd.Draw(w)
	w.Update()
}

// Poll implements driver.Keypad: pumps window events (even on frames with no
// draw, so the window stays responsive and Closed() stays current) and
// reports which of the 16 CHIP-8 keys are currently held.
func (w *Window) Poll() chip8.Keypad {
	w.UpdateInput()

	var keys chip8.Keypad
	for hex, btn := range keyMap {
		keys[hex] = w.Pressed(btn)
	}
	return keys
}

// PauseToggled implements driver.ControlKeys.
func (w *Window) PauseToggled() bool { return w.JustPressed(pauseKey) }

// ReloadRequested implements driver.ControlKeys.
func (w *Window) ReloadRequested() bool { return w.JustPressed(reloadKey) }
