package sequence

import (
	"nifri2/strip-control/internal/animation"
)

// Engine plays Sequence programs. It satisfies animation.Engine.
type Engine struct{}

func (Engine) Decode(data []byte) (animation.Program, error) {
	seq, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return seq, nil
}

func (Engine) NewInstance(pixels int) animation.Instance {
	return &instance{buf: make(animation.Frame, pixels)}
}

// instance owns the output buffer. It is sized to the strip, not to the
// program, so it survives program swaps untouched.
type instance struct {
	buf     animation.Frame
	running bool
}

func (i *instance) Start(p animation.Program) animation.Running {
	if i.running {
		panic("sequence: instance already running")
	}
	i.running = true
	return &running{inst: i, seq: p.(*Sequence)}
}

func (i *instance) Resize(pixels int) {
	if i.running {
		panic("sequence: resize while running")
	}
	if cap(i.buf) >= pixels {
		i.buf = i.buf[:pixels]
		return
	}
	i.buf = make(animation.Frame, pixels)
}

type running struct {
	inst *instance
	seq  *Sequence
	next int
}

// Step copies the next stored frame into the instance buffer, repeating it
// along the strip when the strip is longer than the frame.
func (r *running) Step() (animation.Frame, error) {
	if r.next >= len(r.seq.Frames) {
		if !r.seq.Loop {
			return nil, animation.ErrProgramEnded
		}
		r.next = 0
	}
	src := r.seq.Frames[r.next]
	r.next++

	buf := r.inst.buf
	for i := range buf {
		buf[i] = src[i%len(src)]
	}
	return buf, nil
}

func (r *running) Stop() (animation.Instance, animation.Program) {
	r.inst.running = false
	return r.inst, r.seq
}
