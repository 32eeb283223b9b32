package fileio

// SliceBuffer is the ordinary UserBuffer: a plain in-process byte
// slice, for hosts (and tests) that have no separate address space to
// fault across.
type SliceBuffer []byte

func (b SliceBuffer) CopyOut(off uint64, src []byte) error {
	copy(b[off:], src)
	return nil
}

func (b SliceBuffer) CopyIn(off uint64, dst []byte) error {
	copy(dst, b[off:])
	return nil
}
