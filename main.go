package main

import (
	"github.com/faiface/pixel/pixelgl"

	"github.com/tifelabs/chippy/cmd"
)

func main() {
	// pixelgl needs the OS thread locked for its event loop even when the
	// run turns out to be --headless and never opens a window.
	pixelgl.Run(cmd.Execute)
}
