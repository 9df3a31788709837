// Package term implements driver.Display and driver.Keypad over a plain
// ANSI terminal: pixels render as "██"/"  " blocks and the keypad reads raw,
// non-blocking keystrokes. The teacher never shipped a terminal adapter, so
// this is grounded entirely in original_source/src/emu.c's non-Windows
// platform_clear_screen/platform_kbhit/platform_getch/chip8_render/
// chip8_update_keys, translated from termios+fcntl polling into
// golang.org/x/term's raw-mode helper plus a background reader goroutine.
package term

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/term"

	"github.com/tifelabs/chippy/internal/chip8"
)

// keyRunes mirrors original_source's key_map: CHIP-8 hex 0-F onto a QWERTY
// block, same bindings the GUI adapter uses.
var keyRunes = [chip8.NumKeys]rune{
	0x0: 'x', 0x1: '1', 0x2: '2', 0x3: '3',
	0x4: 'q', 0x5: 'w', 0x6: 'e', 0x7: 'a',
	0x8: 's', 0x9: 'd', 0xA: 'z', 0xB: 'c',
	0xC: '4', 0xD: 'r', 0xE: 'f', 0xF: 'v',
}

const escKey = 27

// Terminal implements Display and Keypad against the process's stdin/stdout,
// putting the terminal into raw mode for the duration of a run.
type Terminal struct {
	oldState *term.State
	fd       int
	presses  chan byte
	quit     chan struct{}
	escSeen  atomic.Bool

	pauseToggled    atomic.Bool
	reloadRequested atomic.Bool
}

// Open puts stdin into raw mode (disabling echo and line buffering, matching
// platform_kbhit's ICANON|ECHO clear) and starts a background reader so Poll
// never blocks the driver loop.
func Open() (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("term: entering raw mode: %w", err)
	}

	t := &Terminal{
		oldState: old,
		fd:       fd,
		presses:  make(chan byte, 1),
		quit:     make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

// Close restores the terminal's original mode.
func (t *Terminal) Close() error {
	close(t.quit)
	return term.Restore(t.fd, t.oldState)
}

func (t *Terminal) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		select {
		case t.presses <- buf[0]:
		case <-t.quit:
			return
		default:
			// Drop the keystroke rather than block; Poll only needs the
			// most recent press within a frame slice.
		}
	}
}

// Poll implements driver.Keypad. Only one key registers per frame slice,
// matching platform_kbhit's single-getch-per-poll behavior; an ESC keypress
// is reported back through Closed rather than mapped to a CHIP-8 key. 'p'
// and 'r' are reserved control keys (driver.ControlKeys, grounded on
// deluziki-chip-8-emulator/main.go's P/R handling) and are consumed here
// before the keyRunes scan, so 'r' never reaches keys[0xD].
func (t *Terminal) Poll() chip8.Keypad {
	var keys chip8.Keypad
	select {
	case b := <-t.presses:
		switch b {
		case escKey:
			t.escSeen.Store(true)
			return keys
		case 'p':
			t.pauseToggled.Store(true)
			return keys
		case 'r':
			t.reloadRequested.Store(true)
			return keys
		}
		for i, r := range keyRunes {
			if byte(r) == b {
				keys[i] = true
				break
			}
		}
	default:
	}
	return keys
}

// Closed reports whether the user pressed ESC, the terminal-adapter
// equivalent of a closed GUI window.
func (t *Terminal) Closed() bool { return t.escSeen.Load() }

// PauseToggled implements driver.ControlKeys.
func (t *Terminal) PauseToggled() bool { return t.pauseToggled.Swap(false) }

// ReloadRequested implements driver.ControlKeys.
func (t *Terminal) ReloadRequested() bool { return t.reloadRequested.Swap(false) }

// Present implements driver.Display: clears the screen and redraws the full
// 64x32 grid as block characters, same layout as chip8_render.
func (t *Terminal) Present(buf chip8.Display) {
	var sb strings.Builder
	sb.WriteString("\033[2J\033[1;1H")
	for y := 0; y < chip8.DisplayHeight; y++ {
		for x := 0; x < chip8.DisplayWidth; x++ {
			if buf[y*chip8.DisplayWidth+x] != 0 {
				sb.WriteString("██")
			} else {
				sb.WriteString("  ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("Press ESC to quit\n")
	fmt.Fprint(os.Stdout, sb.String())
}
