package pe

import (
	"encoding/binary"

	"golang.org/x/exp/constraints"
)

// view is a little-endian window onto a byte slice starting at off.
// Accessors built on it never copy; writes land in the shared buffer.
type view struct {
	b   []byte
	off int
}

func (v view) u8(o int) uint8         { return v.b[v.off+o] }
func (v view) setU8(o int, x uint8)   { v.b[v.off+o] = x }
func (v view) u16(o int) uint16       { return binary.LittleEndian.Uint16(v.b[v.off+o:]) }
func (v view) setU16(o int, x uint16) { binary.LittleEndian.PutUint16(v.b[v.off+o:], x) }
func (v view) u32(o int) uint32       { return binary.LittleEndian.Uint32(v.b[v.off+o:]) }
func (v view) setU32(o int, x uint32) { binary.LittleEndian.PutUint32(v.b[v.off+o:], x) }
func (v view) u64(o int) uint64       { return binary.LittleEndian.Uint64(v.b[v.off+o:]) }
func (v view) setU64(o int, x uint64) { binary.LittleEndian.PutUint64(v.b[v.off+o:], x) }

func (v view) at(o int) view { return view{b: v.b, off: v.off + o} }

func (v view) bytes(o, n int) []byte { return v.b[v.off+o : v.off+o+n] }

// fits reports whether n bytes starting at the view origin are addressable.
func (v view) fits(n int) bool {
	return v.off >= 0 && n >= 0 && v.off+n <= len(v.b)
}

func roundUp[V constraints.Integer](v, align V) V {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}
