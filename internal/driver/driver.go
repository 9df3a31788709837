// Package driver interleaves the CHIP-8 core's two independent rate
// domains: the CPU clock (~700Hz) and the 60Hz timer/frame clock. It owns
// the machine state for the lifetime of a run and talks to the host only
// through the small adapter interfaces declared in this file.
package driver

import (
	"bytes"
	"context"
	"time"

	"github.com/tifelabs/chippy/internal/chip8"
)

// Keypad reports which of the 16 CHIP-8 keys are currently held. The driver
// polls it once per frame slice and hands the snapshot to the VM.
type Keypad interface {
	Poll() chip8.Keypad
}

// ControlKeys is an optional capability a Keypad may also implement to
// report reserved host keys that never reach the CHIP-8 keypad itself:
// pause/resume and ROM reload (grounded on deluziki-chip-8-emulator/main.go's
// P/R handling). Checked once per frame slice, right after Poll; both are
// edge-triggered; a Keypad that doesn't implement this simply never pauses
// or reloads.
type ControlKeys interface {
	PauseToggled() bool
	ReloadRequested() bool
}

// Display consumes a framebuffer whenever the core's draw flag is set.
type Display interface {
	Present(buf chip8.Display)
}

// Audio is notified on sound-timer start/stop edges, never on every tick.
type Audio interface {
	SetTone(on bool)
}

// Clock abstracts monotonic time and sleeping so tests can drive the driver
// with a fake, instantly-advancing clock instead of wall time.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type logger interface {
	Errorw(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Errorw(string, ...interface{}) {}

const (
	// CyclesPerSecond is the default CPU clock target.
	CyclesPerSecond = 700
	// TargetFPS is the fixed timer/frame tick rate the spec requires.
	TargetFPS = 60
)

// Driver owns a *chip8.VM and the adapters that connect it to a host.
type Driver struct {
	vm      *chip8.VM
	keypad  Keypad
	display Display
	audio   Audio
	clock   Clock
	log     logger

	cyclesPerSecond int
	cyclesPerFrame  int

	soundOn bool
	paused  bool
	romData []byte
}

// Option configures optional Driver collaborators.
type Option func(*Driver)

// WithAudio attaches a sink for sound-timer start/stop edges.
func WithAudio(a Audio) Option {
	return func(d *Driver) { d.audio = a }
}

// WithLogger attaches a structured logger for fault/frame diagnostics.
func WithLogger(l logger) Option {
	return func(d *Driver) { d.log = l }
}

// WithCyclesPerSecond overrides the default 700Hz CPU clock target.
func WithCyclesPerSecond(n int) Option {
	return func(d *Driver) { d.cyclesPerSecond = n }
}

// WithROM retains the loaded ROM's bytes so a ReloadRequested edge (see
// ControlKeys) can reset the machine and reload it without restarting the
// process. Without this option, reload requests are silently ignored.
func WithROM(data []byte) Option {
	return func(d *Driver) { d.romData = data }
}

// New builds a Driver around vm, polling keypad and presenting to display,
// driven by clock. Per spec §4.6, cyclesPerFrame = cyclesPerSecond / 60.
func New(vm *chip8.VM, keypad Keypad, display Display, clock Clock, opts ...Option) *Driver {
	d := &Driver{
		vm:              vm,
		keypad:          keypad,
		display:         display,
		audio:           noopAudio{},
		clock:           clock,
		log:             nopLogger{},
		cyclesPerSecond: CyclesPerSecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.cyclesPerFrame = d.cyclesPerSecond / TargetFPS
	if d.cyclesPerFrame < 1 {
		d.cyclesPerFrame = 1
	}
	return d
}

type noopAudio struct{}

func (noopAudio) SetTone(bool) {}

// Result reports why Run returned.
type Result struct {
	// Fault is set if a fatal fault stopped the machine.
	Fault *chip8.FatalFault
	// Stopped is true if the host or context requested a stop instead.
	Stopped bool
}

// Run interleaves CPU cycles and timer ticks until the machine stops, the
// context is cancelled, or a fatal fault occurs. Within one frame slice, CPU
// cycles run in program order with no interleaved timer tick; the keypad
// snapshot is taken once at the top of the slice and held for its duration.
// While paused, neither CPU cycles nor timer ticks advance (matching
// deluziki-chip-8-emulator's pause loop), but the keypad is still polled so
// a second pause keypress, or a reload, can still be observed.
func (d *Driver) Run(ctx context.Context) Result {
	frameInterval := time.Second / TargetFPS
	lastFrame := d.clock.Now()
	cyclesThisFrame := 0

	for {
		select {
		case <-ctx.Done():
			return Result{Stopped: true}
		default:
		}

		if !d.vm.Running() {
			if f := d.vm.Fault(); f != nil {
				d.log.Errorw("fatal fault, halting", "kind", f.Kind.String(), "pc", f.PC)
				return Result{Fault: f}
			}
			return Result{Stopped: true}
		}

		if cyclesThisFrame == 0 {
			d.vm.SetKeys(d.keypad.Poll())
			d.handleControlKeys()
		}

		if d.paused {
			d.clock.Sleep(time.Millisecond)
			lastFrame = d.clock.Now()
			continue
		}

		now := d.clock.Now()
		if cyclesThisFrame < d.cyclesPerFrame {
			if err := d.vm.Step(); err != nil {
				// Step already set vm.Running() to false; loop back
				// around to report the fault through the top check.
				continue
			}
			cyclesThisFrame++
		}

		if now.Sub(lastFrame) >= frameInterval {
			d.tickFrame()
			cyclesThisFrame = 0
			lastFrame = lastFrame.Add(frameInterval)
		}

		d.clock.Sleep(time.Millisecond)
	}
}

// handleControlKeys checks the keypad for a pause/reload edge, if it
// implements ControlKeys.
func (d *Driver) handleControlKeys() {
	ck, ok := d.keypad.(ControlKeys)
	if !ok {
		return
	}
	if ck.PauseToggled() {
		d.paused = !d.paused
	}
	if ck.ReloadRequested() {
		d.reload()
	}
}

// reload resets the machine and reloads the ROM captured by WithROM. A
// reload request with no retained ROM data is a no-op.
func (d *Driver) reload() {
	if d.romData == nil {
		return
	}
	d.vm.Reset()
	if err := d.vm.LoadROM(bytes.NewReader(d.romData)); err != nil {
		d.log.Errorw("reload failed", "error", err)
	}
	d.paused = false
}

// tickFrame runs exactly once per 60Hz boundary: decrement timers, present
// the framebuffer if dirty, and edge the audio sink off the sound timer.
func (d *Driver) tickFrame() {
	soundActive := d.vm.SoundActive()
	d.vm.UpdateTimers()

	if d.vm.ConsumeDrawFlag() {
		d.display.Present(d.vm.Display())
	}

	if soundActive != d.soundOn {
		d.audio.SetTone(soundActive)
		d.soundOn = soundActive
	}
}
