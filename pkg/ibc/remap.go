package ibc

// ApplyRemap moves each vertex i of the interleaved buffer to slot remap[i].
// remap must be a permutation of [0, len(remap)).
func ApplyRemap(vertices []byte, stride int, remap []uint32) {
	scratch := make([]byte, len(remap)*stride)
	applyRemap(vertices, scratch, stride, remap)
}

// Reorder applies the remap of the last Encode to vertices, reusing the
// encoder's scratch buffer.
func (e *Encoder) Reorder(vertices []byte, stride int) {
	n := len(e.remap) * stride
	if cap(e.scratch) < n {
		e.scratch = make([]byte, n)
	}
	e.scratch = e.scratch[:n]
	applyRemap(vertices, e.scratch, stride, e.remap)
}

func applyRemap(vertices, scratch []byte, stride int, remap []uint32) {
	for i, r := range remap {
		dst := int(r) * stride
		copy(scratch[dst:dst+stride], vertices[i*stride:(i+1)*stride])
	}
	copy(vertices, scratch[:len(remap)*stride])
}

// RemapIndices rewrites indices in place into the remapped numbering.
func RemapIndices(indices []uint16, remap []uint32) {
	for i, idx := range indices {
		indices[i] = uint16(remap[idx])
	}
}

// Ratio returns the space saved by compression in percent.
func Ratio(rawBytes, compressedBytes int) float32 {
	if rawBytes == 0 {
		return 0
	}
	return 100 - float32(compressedBytes)/float32(rawBytes)*100
}
