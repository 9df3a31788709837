package chip8

// Config names the documented CHIP-8 quirks as explicit toggles (spec §9)
// instead of hard-coding a single implementation's behavior. DefaultConfig
// returns the default set; the zero value differs from it only in
// StrictBorrowQuirk, which defaults to true.
type Config struct {
	// ShiftQuirk, when true, makes 8XY6/8XYE shift VY into VX (the legacy
	// COSMAC VIP behavior). Default false: shift VX in place, ignoring VY.
	ShiftQuirk bool

	// LoadStoreQuirk, when true, advances I by x+1 after FX55/FX65 (the
	// legacy behavior). Default false: I is left unchanged.
	LoadStoreQuirk bool

	// StrictBorrowQuirk selects the no-borrow comparison for 8XY5/8XY7.
	// Default true: strict `>` (VF=1 iff VX>VY for SUB), matching the
	// Tifelabs/chip-8 source this spec was distilled from. Set false for
	// the canonical `>=` reading.
	StrictBorrowQuirk bool
}

// DefaultConfig returns the "modern" quirk set documented as spec.md's
// baseline behavior.
func DefaultConfig() Config {
	return Config{
		ShiftQuirk:        false,
		LoadStoreQuirk:    false,
		StrictBorrowQuirk: true,
	}
}
