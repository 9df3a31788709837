package chip8

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVM() *VM {
	return New(DefaultConfig())
}

func loadProgram(t *testing.T, vm *VM, words ...uint16) {
	t.Helper()
	buf := make([]byte, 0, len(words)*2)
	for _, w := range words {
		buf = append(buf, byte(w>>8), byte(w))
	}
	require.NoError(t, vm.LoadROM(bytes.NewReader(buf)))
}

func TestResetState(t *testing.T) {
	vm := newTestVM()
	assert.Equal(t, uint16(ProgramStart), vm.PC())
	assert.Equal(t, uint8(0), vm.StackDepth())
	assert.Equal(t, uint16(0), vm.I())
	assert.True(t, vm.Running())
	assert.Equal(t, byte(0xF0), vm.Memory(FontsetStart))
}

func TestLoadROMTooLarge(t *testing.T) {
	vm := newTestVM()
	err := vm.LoadROM(bytes.NewReader(make([]byte, MaxROMSize+1)))
	assert.Error(t, err)
}

func TestLoadROMNeverPartiallySucceeds(t *testing.T) {
	vm := newTestVM()
	vm.memory[ProgramStart] = 0xAB
	err := vm.LoadROM(bytes.NewReader(make([]byte, MaxROMSize+1)))
	require.Error(t, err)
	assert.Equal(t, byte(0xAB), vm.memory[ProgramStart], "rejected load must not touch memory")
}

// Property 1: fetch advances PC by exactly 2 for ops that don't write PC.
func TestFetchAdvancesPCByTwo(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0x6005) // LD V0, 0x05
	require.NoError(t, vm.Step())
	assert.Equal(t, uint16(ProgramStart+2), vm.PC())
}

func TestJumpSetsPCDirectly(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0x1300)
	require.NoError(t, vm.Step())
	assert.Equal(t, uint16(0x300), vm.PC())
}

// Property 2: call/return round-trip.
func TestCallReturnRoundTrip(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0x2300) // CALL 0x300
	require.NoError(t, vm.Step())
	assert.Equal(t, uint16(0x300), vm.PC())
	assert.Equal(t, uint8(1), vm.StackDepth())

	vm.memory[0x300] = 0x00
	vm.memory[0x301] = 0xEE // RET
	require.NoError(t, vm.Step())
	assert.Equal(t, uint16(ProgramStart+2), vm.PC())
	assert.Equal(t, uint8(0), vm.StackDepth())
}

// Property 3: stack bounds.
func TestStackOverflowIsFatal(t *testing.T) {
	vm := newTestVM()
	for i := 0; i < StackSize; i++ {
		vm.memory[vm.PC()] = 0x23
		vm.memory[vm.PC()+1] = 0x00
		require.NoError(t, vm.Step())
	}
	assert.Equal(t, uint8(StackSize), vm.StackDepth())

	vm.memory[vm.PC()] = 0x23
	vm.memory[vm.PC()+1] = 0x00
	err := vm.Step()
	require.Error(t, err)
	assert.False(t, vm.Running())
	var ff *FatalFault
	require.ErrorAs(t, err, &ff)
	assert.Equal(t, StackOverflow, ff.Kind)
}

func TestReturnWithEmptyStackIsFatal(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0x00EE)
	err := vm.Step()
	require.Error(t, err)
	assert.False(t, vm.Running())
	var ff *FatalFault
	require.ErrorAs(t, err, &ff)
	assert.Equal(t, StackUnderflow, ff.Kind)
}

func TestFetchPastEndIsFatal(t *testing.T) {
	vm := newTestVM()
	vm.pc = MemorySize - 1
	err := vm.Step()
	require.Error(t, err)
	var ff *FatalFault
	require.ErrorAs(t, err, &ff)
	assert.Equal(t, PCOutOfBounds, ff.Kind)
}

// Property 4: arithmetic flags, exhaustively for the boundary-relevant cases
// plus a full sweep, following the corpus's table-driven test style.
func TestAdd8XY4Carry(t *testing.T) {
	cases := []struct{ a, b byte }{
		{0xFF, 0x01}, {0x00, 0x00}, {0x80, 0x80}, {0x7F, 0x01}, {0xFE, 0x01},
	}
	for _, tc := range cases {
		vm := newTestVM()
		vm.v[0] = tc.a
		vm.v[1] = tc.b
		loadProgram(t, vm, 0x8014)
		require.NoError(t, vm.Step())

		want := uint16(tc.a) + uint16(tc.b)
		assert.Equal(t, byte(want), vm.v[0])
		if want > 255 {
			assert.Equal(t, byte(1), vm.v[0xF])
		} else {
			assert.Equal(t, byte(0), vm.v[0xF])
		}
	}
}

func TestSub8XY5StrictBorrowDefault(t *testing.T) {
	vm := newTestVM()
	vm.v[0] = 0x05
	vm.v[1] = 0x05
	loadProgram(t, vm, 0x8015)
	require.NoError(t, vm.Step())
	// strict `>`: 5 > 5 is false, so VF = 0 (borrow) even though equal.
	assert.Equal(t, byte(0), vm.v[0xF])
	assert.Equal(t, byte(0), vm.v[0])
}

func TestSub8XY5CanonicalBorrowQuirk(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictBorrowQuirk = false
	vm := New(cfg)
	vm.v[0] = 0x05
	vm.v[1] = 0x05
	loadProgram(t, vm, 0x8015)
	require.NoError(t, vm.Step())
	// canonical `>=`: 5 >= 5 is true, so VF = 1 (no borrow).
	assert.Equal(t, byte(1), vm.v[0xF])
}

func TestSub8XY5WithVFAsDestination(t *testing.T) {
	// x == 0xF: VF is both the subtraction's destination and the flag.
	// The flag write must not clobber the operand the subtraction reads.
	vm := newTestVM()
	vm.v[0xF] = 0x05
	vm.v[1] = 0x02
	loadProgram(t, vm, 0x8F15)
	require.NoError(t, vm.Step())
	assert.Equal(t, byte(0x03), vm.v[0xF], "VF must hold 0x05-0x02, not the flag")
}

func TestSubn8XY7WithVFAsDestination(t *testing.T) {
	vm := newTestVM()
	vm.v[0xF] = 0x02
	vm.v[1] = 0x05
	loadProgram(t, vm, 0x8F17)
	require.NoError(t, vm.Step())
	assert.Equal(t, byte(0x03), vm.v[0xF], "VF must hold VY-0x02, not the flag")
}

func TestShift8XY6ModernDefault(t *testing.T) {
	vm := newTestVM()
	vm.v[0] = 0x03 // 0b011
	vm.v[1] = 0xFF
	loadProgram(t, vm, 0x8016)
	require.NoError(t, vm.Step())
	assert.Equal(t, byte(1), vm.v[0xF], "LSB of VX prior to shift")
	assert.Equal(t, byte(0x01), vm.v[0])
}

func TestShift8XY6LegacyQuirk(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShiftQuirk = true
	vm := New(cfg)
	vm.v[0] = 0x00
	vm.v[1] = 0x03
	loadProgram(t, vm, 0x8016)
	require.NoError(t, vm.Step())
	assert.Equal(t, byte(1), vm.v[0xF], "LSB of VY prior to shift")
	assert.Equal(t, byte(0x01), vm.v[0])
}

// Property 5: BCD round trip.
func TestBCDRoundTrip(t *testing.T) {
	for v := 0; v <= 255; v++ {
		vm := newTestVM()
		vm.v[0] = byte(v)
		vm.i = 0x300
		loadProgram(t, vm, 0xF033)
		require.NoError(t, vm.Step())

		hundreds := vm.memory[0x300]
		tens := vm.memory[0x301]
		ones := vm.memory[0x302]
		assert.Equal(t, byte(v/100), hundreds)
		assert.Equal(t, byte((v/10)%10), tens)
		assert.Equal(t, byte(v%10), ones)
		assert.Equal(t, v, int(hundreds)*100+int(tens)*10+int(ones))
	}
}

// Property 6: draw XOR/collision.
func TestDrawXORCollision(t *testing.T) {
	vm := newTestVM()
	vm.i = 0x300
	vm.memory[0x300] = 0xFF // one row, all bits set

	vm.v[0] = 0
	vm.v[1] = 0
	vm.drawSprite(vm.v[0], vm.v[1], 1)
	assert.Equal(t, byte(0), vm.v[0xF], "first draw onto empty region: no collision")

	vm.drawSprite(vm.v[0], vm.v[1], 1)
	assert.Equal(t, byte(1), vm.v[0xF], "second draw collides with the first")

	for col := 0; col < 8; col++ {
		assert.Equal(t, byte(0), vm.display[col], "region should be all zero after XOR twice")
	}
}

func TestDrawClipsAtEdgeInsteadOfWrapping(t *testing.T) {
	vm := newTestVM()
	vm.i = 0x300
	vm.memory[0x300] = 0xFF // 8 bits wide
	vm.drawSprite(60, 0, 1) // origin near right edge: columns 60..63 set, 64..67 clipped

	assert.Equal(t, byte(1), vm.display[0*DisplayWidth+60])
	assert.Equal(t, byte(1), vm.display[0*DisplayWidth+63])
	// nothing should have wrapped onto row 0 column 0-3
	assert.Equal(t, byte(0), vm.display[0])
}

func TestDrawHeightZeroDrawsNothing(t *testing.T) {
	vm := newTestVM()
	vm.i = 0x300
	vm.memory[0x300] = 0xFF
	vm.drawSprite(0, 0, 0)
	for _, px := range vm.display {
		assert.Equal(t, byte(0), px)
	}
	assert.Equal(t, byte(0), vm.v[0xF])
}

// Property 7: font lookup.
func TestFontLookup(t *testing.T) {
	for d := byte(0); d <= 0xF; d++ {
		vm := newTestVM()
		vm.v[0] = d
		loadProgram(t, vm, 0xF029)
		require.NoError(t, vm.Step())

		wantAddr := uint16(FontsetStart) + uint16(d)*5
		assert.Equal(t, wantAddr, vm.I())
		for i := 0; i < 5; i++ {
			assert.Equal(t, fontset[int(d)*5+i], vm.memory[wantAddr+uint16(i)])
		}
	}
}

// Property 8: timers decrement at 60Hz and never go negative.
func TestTimersNeverUnderflow(t *testing.T) {
	vm := newTestVM()
	vm.delayTimer = 60
	for i := 0; i < 60; i++ {
		vm.UpdateTimers()
	}
	assert.Equal(t, byte(0), vm.DelayTimer())
	vm.UpdateTimers()
	assert.Equal(t, byte(0), vm.DelayTimer())
}

// Property 9: key wait stalls until a key is pressed.
func TestKeyWaitStallsThenResolves(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0xF00A) // LD V0, K

	require.NoError(t, vm.Step())
	assert.Equal(t, uint16(ProgramStart), vm.PC(), "PC rewinds while no key is held")

	require.NoError(t, vm.Step())
	assert.Equal(t, uint16(ProgramStart), vm.PC(), "still stalled after a second cycle")

	var keys Keypad
	keys[0x7] = true
	vm.SetKeys(keys)
	require.NoError(t, vm.Step())
	assert.Equal(t, uint16(ProgramStart+2), vm.PC())
	assert.Equal(t, byte(0x7), vm.v[0])
}

func TestKeyWaitPicksLowestIndexKey(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0xF00A)
	var keys Keypad
	keys[0x9] = true
	keys[0x2] = true
	vm.SetKeys(keys)
	require.NoError(t, vm.Step())
	assert.Equal(t, byte(0x2), vm.v[0])
}

// Property 10: quirk toggles for FX55/FX65 I-increment.
func TestLoadStoreDoesNotAdvanceIByDefault(t *testing.T) {
	vm := newTestVM()
	vm.i = 0x300
	vm.v[0] = 1
	vm.v[1] = 2
	loadProgram(t, vm, 0xF155) // store V0..V1
	require.NoError(t, vm.Step())
	assert.Equal(t, uint16(0x300), vm.I())
}

func TestLoadStoreAdvancesIWithQuirkEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoadStoreQuirk = true
	vm := New(cfg)
	vm.i = 0x300
	vm.v[0] = 1
	vm.v[1] = 2
	loadProgram(t, vm, 0xF155)
	require.NoError(t, vm.Step())
	assert.Equal(t, uint16(0x302), vm.I())
}

func TestUnknownOpcodeIsNoOpAndAdvancesPC(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0x5001) // 5XY1 is not a valid 5XY0 form
	require.NoError(t, vm.Step())
	assert.True(t, vm.Running())
	assert.Equal(t, uint16(ProgramStart+2), vm.PC())
}

func TestSoftFaultWriteBeyondMemoryIsDroppedNotFatal(t *testing.T) {
	vm := newTestVM()
	vm.i = MemorySize - 1
	vm.v[0] = 0xAA
	vm.v[1] = 0xBB
	loadProgram(t, vm, 0xF155) // store V0..V1: V1 lands one byte past the end
	require.NoError(t, vm.Step())
	assert.True(t, vm.Running())
	assert.Equal(t, byte(0xAA), vm.memory[MemorySize-1])
}

// S2 — arithmetic regression scenario.
func TestScenarioArithmeticRegression(t *testing.T) {
	vm := newTestVM()
	vm.v[0] = 0xFF
	vm.v[1] = 0x01
	loadProgram(t, vm, 0x8014)
	require.NoError(t, vm.Step())
	assert.Equal(t, byte(0x00), vm.v[0])
	assert.Equal(t, byte(1), vm.v[0xF])
}

// S3 — collision scenario: A050 6000 6100 D015 D015. The ROM has five
// 16-bit words, so the second draw (the one that produces the collision)
// only takes effect after the fifth cycle.
func TestScenarioCollision(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0xA050, 0x6000, 0x6100, 0xD015, 0xD015)
	for i := 0; i < 5; i++ {
		require.NoError(t, vm.Step())
	}
	assert.Equal(t, byte(1), vm.v[0xF])
	for row := 0; row < 5; row++ {
		assert.Equal(t, byte(0), vm.display[row*DisplayWidth])
	}
}

// S4 — jump loop never faults.
func TestScenarioJumpLoop(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0x1200)
	for i := 0; i < 1000; i++ {
		require.NoError(t, vm.Step())
	}
	assert.Equal(t, uint16(ProgramStart), vm.PC())
	assert.True(t, vm.Running())
}

// S6 — font digit sprite matches the glyph. The digit value lives in V0 (set
// by 6005, consumed by F029's font lookup); the draw op must use a different
// register pair for its (x, y) origin or it would reuse V0's value (5) as a
// coordinate instead of drawing at (0, 0) as intended, so it draws with V1
// (left at its reset value of 0) for both coordinates: D115.
func TestScenarioFontDigit(t *testing.T) {
	vm := newTestVM()
	loadProgram(t, vm, 0x6005, 0xF029, 0xD115)
	for i := 0; i < 3; i++ {
		require.NoError(t, vm.Step())
	}
	for row := 0; row < 5; row++ {
		want := fontset[5*5+row]
		var got byte
		for col := 0; col < 8; col++ {
			if vm.display[row*DisplayWidth+col] == 1 {
				got |= 0x80 >> col
			}
		}
		assert.Equal(t, want, got)
	}
}
