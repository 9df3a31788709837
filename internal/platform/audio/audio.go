// Package audio implements the driver.Audio port with beep/speaker: it
// decodes an mp3 tone once at startup and loops it for as long as the sound
// timer stays active. Grounded on the teacher's VM.ManageAudio, generalized
// from a one-shot "beep per channel event" trigger (one mp3 play per event,
// regardless of how long the sound timer stayed up) to an edge-triggered
// on/off sink matching driver.Audio's SetTone(bool) contract.
package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Tone loops a decoded mp3 stream for as long as the sound timer is active,
// and pauses it on the falling edge.
type Tone struct {
	ctrl *beep.Ctrl
}

// New opens path, decodes it, and initializes the speaker at the file's
// sample rate. The returned Tone starts paused.
func New(path string) (*Tone, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: opening %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("audio: decoding %s: %w", path, err)
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("audio: initializing speaker: %w", err)
	}

	ctrl := &beep.Ctrl{Streamer: beep.Loop(-1, streamer), Paused: true}
	speaker.Play(ctrl)

	return &Tone{ctrl: ctrl}, nil
}

// SetTone implements driver.Audio: it toggles playback on sound-timer edges
// rather than replaying the clip once per edge, which is the only way to
// sustain a tone for as long as the timer stays nonzero.
func (t *Tone) SetTone(on bool) {
	speaker.Lock()
	t.ctrl.Paused = !on
	speaker.Unlock()
}

// Muted is a no-op driver.Audio used when a tone asset could not be loaded;
// the host logs a warning and keeps running silently rather than failing the
// whole run over missing audio.
type Muted struct{}

// SetTone implements driver.Audio by discarding every edge.
func (Muted) SetTone(bool) {}
