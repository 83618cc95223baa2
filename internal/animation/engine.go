package animation

import "errors"

// ErrProgramEnded is returned by Running.Step when the program has no more
// frames. Any other Step error is a fault.
var ErrProgramEnded = errors.New("program ended")

// Pixel is one RGBW value. W is ignored by RGB strips.
type Pixel struct {
	R, G, B, W uint8
}

// Frame holds one pixel per LED.
type Frame []Pixel

// Program is a decoded animation. Its contents belong to the engine.
type Program interface{}

// Engine decodes programs and creates interpreter instances.
type Engine interface {
	Decode(data []byte) (Program, error)
	NewInstance(pixels int) Instance
}

// Instance is a stopped interpreter. It is reused across programs.
type Instance interface {
	Start(Program) Running
	Resize(pixels int)
}

// Running is an instance executing a program.
type Running interface {
	// Step advances one frame. The returned Frame may be reused by the
	// next call.
	Step() (Frame, error)
	Stop() (Instance, Program)
}

// PixelWriter pushes frames to the strip.
type PixelWriter interface {
	Write(Frame) error
}
