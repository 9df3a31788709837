package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tifelabs/chippy/internal/chip8"
	"github.com/tifelabs/chippy/internal/driver"
	"github.com/tifelabs/chippy/internal/platform/audio"
	"github.com/tifelabs/chippy/internal/platform/gui"
	"github.com/tifelabs/chippy/internal/platform/term"
)

// runCmd runs the chippy virtual machine against a ROM until the host
// window/terminal is closed, a fatal fault halts the machine, or the
// process receives SIGINT.
var runCmd = &cobra.Command{
	Use:   "run path/to/rom",
	Short: "run the chippy emulator",
	Args:  cobra.ExactArgs(1),
	RunE:  runChippy,
}

func init() {
	flags := runCmd.Flags()
	flags.Bool("headless", false, "use a terminal display/keypad instead of a window")
	flags.Int("cycles-per-second", driver.CyclesPerSecond, "CPU cycles executed per second")
	flags.Bool("shift-quirk", false, "8XY6/8XYE operate on VY instead of VX")
	flags.Bool("load-store-quirk", false, "FX55/FX65 advances I past the last register touched")
	flags.Bool("strict-borrow-quirk", true, "8XY5/8XY7 set VF via strict > instead of >=")
	flags.Bool("quiet", false, "suppress diagnostic logging")
	flags.String("audio-asset", "assets/beep.mp3", "path to the tone played while the sound timer is active")

	for _, name := range []string{
		"headless", "cycles-per-second", "shift-quirk",
		"load-store-quirk", "strict-borrow-quirk", "quiet", "audio-asset",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// closer is satisfied by both the gui and term adapters: something the host
// loop can poll to learn the user asked to quit.
type closer interface {
	Closed() bool
}

func runChippy(cmd *cobra.Command, args []string) error {
	pathToROM := args[0]

	log, err := newLogger(viper.GetBool("quiet"))
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck
	sugar := log.Sugar()

	cfg := chip8.Config{
		ShiftQuirk:        viper.GetBool("shift-quirk"),
		LoadStoreQuirk:    viper.GetBool("load-store-quirk"),
		StrictBorrowQuirk: viper.GetBool("strict-borrow-quirk"),
	}
	vm := chip8.New(cfg, chip8.WithLogger(sugar))

	romData, err := os.ReadFile(pathToROM)
	if err != nil {
		return fmt.Errorf("opening rom: %w", err)
	}
	if err := vm.LoadROM(bytes.NewReader(romData)); err != nil {
		return fmt.Errorf("loading rom: %w", err)
	}

	keypad, display, closed, cleanup, err := openHost(viper.GetBool("headless"))
	if err != nil {
		return err
	}
	defer cleanup()

	var snd driver.Audio = audio.Muted{}
	if tone, audioErr := audio.New(viper.GetString("audio-asset")); audioErr != nil {
		sugar.Warnw("could not initialize audio, continuing muted", "error", audioErr)
	} else {
		snd = tone
	}

	d := driver.New(
		vm, keypad, display, driver.NewRealClock(),
		driver.WithAudio(snd),
		driver.WithLogger(sugar),
		driver.WithCyclesPerSecond(viper.GetInt("cycles-per-second")),
		driver.WithROM(romData),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	go watchClosed(ctx, cancel, closed)

	result := d.Run(ctx)
	if result.Fault != nil {
		return fmt.Errorf("halted: %w", result.Fault)
	}
	return nil
}

// openHost picks the terminal or windowed adapter for both Keypad and
// Display, since each adapter implements both ports over the same device.
func openHost(headless bool) (driver.Keypad, driver.Display, closer, func(), error) {
	if headless {
		t, err := term.Open()
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("opening terminal: %w", err)
		}
		return t, t, t, func() { _ = t.Close() }, nil
	}

	w, err := gui.New("chippy")
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("opening window: %w", err)
	}
	return w, w, w, func() {}, nil
}

// watchClosed cancels ctx once the host reports it was closed (an ESC
// keypress in the terminal adapter, a window-close event in the GUI one).
// Polled rather than event-driven because neither adapter currently exposes
// a channel for this.
func watchClosed(ctx context.Context, cancel context.CancelFunc, c closer) {
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Closed() {
				cancel()
				return
			}
		}
	}
}

// newLogger builds the structured logger shared by the core, driver, and
// CLI. --quiet swaps in a no-op sink instead of disabling call sites, so the
// rest of the codebase never branches on verbosity.
func newLogger(quiet bool) (*zap.Logger, error) {
	if quiet {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}
