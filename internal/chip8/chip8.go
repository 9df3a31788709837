// Package chip8 implements the CHIP-8 virtual machine: memory image, register
// file, decode/execute engine, sprite display, and keypad. The package is a
// pure (state, opcode) -> state' engine; everything that talks to a terminal,
// a window, a speaker, or the filesystem lives outside it, in cmd,
// internal/driver and internal/platform.
package chip8

// System memory map:
//
//	+---------------+= 0xFFF (4095) End Chip-8 RAM
//	|               |
//	| 0x200 to 0xFFF|
//	|     Chip-8    |
//	| Program / Data|
//	|     Space     |
//	|               |
//	+---------------+= 0x200 (512) Start of most Chip-8 programs
//	| 0x050 to 0x09F|
//	|    Fontset    |
//	+---------------+= 0x050 (80)
//	| 0x000 to 0x04F|
//	| Reserved for  |
//	|  interpreter  |
//	+---------------+= 0x000 Begin Chip-8 RAM
const (
	MemorySize    = 4096
	DisplayWidth  = 64
	DisplayHeight = 32
	StackSize     = 16
	NumRegisters  = 16
	NumKeys       = 16
	ProgramStart  = 0x200
	FontsetStart  = 0x050
	MaxROMSize    = MemorySize - ProgramStart
)

// Display is the 64x32 monochrome pixel grid. Each byte is strictly 0 or 1.
type Display [DisplayWidth * DisplayHeight]byte

// Keypad is the 16-key hex pad state, refreshed once per frame by the host.
type Keypad [NumKeys]bool

// VM is the CHIP-8 machine state, owned exclusively by whichever driver steps
// it. Nothing inside the package mutates package-level state: every value
// needed to emulate is reachable from a *VM, so multiple machines can coexist
// and tests are trivially isolated.
type VM struct {
	memory [MemorySize]byte
	v      [NumRegisters]byte
	i      uint16
	pc     uint16
	stack  [StackSize]uint16
	sp     uint8

	delayTimer byte
	soundTimer byte

	display  Display
	keypad   Keypad
	drawFlag bool

	running bool
	fault   *FatalFault

	cfg Config
	log logger
	rng func() byte
}

// New creates a VM with the font set preloaded and the program counter at
// 0x200, ready to receive a ROM via LoadROM.
func New(cfg Config, opts ...Option) *VM {
	vm := &VM{cfg: cfg, log: nopLogger{}, rng: defaultRNG}
	for _, opt := range opts {
		opt(vm)
	}
	vm.Reset()
	return vm
}

// Option configures optional VM collaborators.
type Option func(*VM)

// WithLogger attaches a structured logger for soft-fault diagnostics.
func WithLogger(l logger) Option {
	return func(vm *VM) { vm.log = l }
}

// WithRNG overrides the byte source behind CXNN, letting tests make random
// draws deterministic.
func WithRNG(rng func() byte) Option {
	return func(vm *VM) { vm.rng = rng }
}

// Reset zeroes all machine state, reloads the font set, and marks the machine
// running with the draw flag set so the very first frame presents a blank
// screen.
func (vm *VM) Reset() {
	vm.memory = [MemorySize]byte{}
	vm.v = [NumRegisters]byte{}
	vm.stack = [StackSize]uint16{}
	vm.display = Display{}
	vm.keypad = Keypad{}

	vm.i = 0
	vm.pc = ProgramStart
	vm.sp = 0
	vm.delayTimer = 0
	vm.soundTimer = 0
	vm.drawFlag = true
	vm.running = true
	vm.fault = nil

	copy(vm.memory[FontsetStart:], fontset[:])
}

// Running reports whether the machine may still be stepped. It becomes false
// only after a fatal fault or an explicit Stop.
func (vm *VM) Running() bool { return vm.running }

// Stop requests a graceful halt, as if the host observed an ESC keypress.
func (vm *VM) Stop() { vm.running = false }

// Fault returns the fatal fault that halted the machine, or nil if it is
// still running or was stopped by the host.
func (vm *VM) Fault() *FatalFault { return vm.fault }

// SetKeys replaces the keypad snapshot for the upcoming frame slice.
func (vm *VM) SetKeys(keys Keypad) { vm.keypad = keys }

// ConsumeDrawFlag reports whether the display changed since the last call,
// clearing the flag as it does. The host must call Present with the
// Display only when this returns true.
func (vm *VM) ConsumeDrawFlag() bool {
	flag := vm.drawFlag
	vm.drawFlag = false
	return flag
}

// Display returns a copy of the 64x32 pixel grid. Read-only by convention:
// the core is the only mutator.
func (vm *VM) Display() Display { return vm.display }

// DelayTimer returns the current delay timer value.
func (vm *VM) DelayTimer() byte { return vm.delayTimer }

// SoundActive reports whether the sound timer is currently nonzero.
func (vm *VM) SoundActive() bool { return vm.soundTimer > 0 }

// PC returns the current program counter, mostly for tests and debugging.
func (vm *VM) PC() uint16 { return vm.pc }

// StackDepth returns the number of active return addresses.
func (vm *VM) StackDepth() uint8 { return vm.sp }

// V returns the value of data register r (0-15).
func (vm *VM) V(r int) byte { return vm.v[r] }

// SetV sets the value of data register r (0-15); intended for tests that
// need to stage machine state before executing an opcode.
func (vm *VM) SetV(r int, val byte) { vm.v[r] = val }

// I returns the index register.
func (vm *VM) I() uint16 { return vm.i }

// SetI sets the index register; intended for tests.
func (vm *VM) SetI(val uint16) { vm.i = val }

// Memory gives read access to a single byte, for tests that inspect BCD or
// sprite output written by an opcode.
func (vm *VM) Memory(addr uint16) byte { return vm.memory[addr] }

// UpdateTimers decrements the delay and sound timers. Call exactly once per
// 60Hz frame tick; timers never go below zero.
func (vm *VM) UpdateTimers() {
	if vm.delayTimer > 0 {
		vm.delayTimer--
	}
	if vm.soundTimer > 0 {
		vm.soundTimer--
	}
}

// logger is the minimal structured-logging surface the VM needs. A
// *zap.SugaredLogger satisfies it directly; cmd/ constructs one and passes
// it in via WithLogger.
type logger interface {
	Warnw(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Warnw(string, ...interface{}) {}
