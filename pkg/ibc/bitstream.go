package ibc

import "math/bits"

// bitWriter packs values LSB-first into a byte slice.
type bitWriter struct {
	buf []byte
	acc uint64
	n   uint
}

func (w *bitWriter) reset() {
	w.buf = w.buf[:0]
	w.acc = 0
	w.n = 0
}

func (w *bitWriter) write(v uint32, width uint) {
	w.acc |= uint64(v&(uint32(1)<<width-1)) << w.n
	w.n += width
	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.n -= 8
	}
}

func (w *bitWriter) writeBit(b bool) {
	if b {
		w.write(1, 1)
	} else {
		w.write(0, 1)
	}
}

// writeExpGolomb writes v as an order-0 Exp-Golomb code: k zero bits, a one
// bit, then the low k bits of v+1.
func (w *bitWriter) writeExpGolomb(v uint32) {
	x := uint64(v) + 1
	k := uint(bits.Len64(x)) - 1
	for i := uint(0); i < k; i++ {
		w.write(0, 1)
	}
	w.write(1, 1)
	if k > 0 {
		w.write(uint32(x&(1<<k-1)), k)
	}
}

func (w *bitWriter) finish() []byte {
	if w.n > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc = 0
		w.n = 0
	}
	return w.buf
}

type bitReader struct {
	data []byte
	pos  int
	acc  uint64
	n    uint
}

func (r *bitReader) read(width uint) (uint32, error) {
	for r.n < width {
		if r.pos >= len(r.data) {
			return 0, ErrTruncated
		}
		r.acc |= uint64(r.data[r.pos]) << r.n
		r.pos++
		r.n += 8
	}
	v := uint32(r.acc & (uint64(1)<<width - 1))
	r.acc >>= width
	r.n -= width
	return v, nil
}

func (r *bitReader) readBit() (bool, error) {
	v, err := r.read(1)
	return v == 1, err
}

func (r *bitReader) readExpGolomb() (uint32, error) {
	k := uint(0)
	for {
		one, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if one {
			break
		}
		k++
		if k > 32 {
			return 0, ErrCorrupt
		}
	}
	rest := uint32(0)
	if k > 0 {
		var err error
		if rest, err = r.read(k); err != nil {
			return 0, err
		}
	}
	return uint32((uint64(1)<<k | uint64(rest)) - 1), nil
}
