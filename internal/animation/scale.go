package animation

// scale applies brightness and the auxiliary white level at write time.
// The interpreter never sees either.
func scale(dst, src Frame, cfg Config) Frame {
	if cap(dst) < len(src) {
		dst = make(Frame, len(src))
	}
	dst = dst[:len(src)]

	b := uint16(cfg.Brightness)
	for i, p := range src {
		w := p.W
		if cfg.White > w {
			w = cfg.White
		}
		dst[i] = Pixel{
			R: uint8(uint16(p.R) * b / 255),
			G: uint8(uint16(p.G) * b / 255),
			B: uint8(uint16(p.B) * b / 255),
			W: uint8(uint16(w) * b / 255),
		}
	}
	return dst
}
