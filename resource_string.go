package pe

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
)

// readResourceString reads a length-prefixed UTF-16LE string at off.
func readResourceString(v view, off int) (string, bool) {
	at := v.at(off)
	if !at.fits(2) {
		return "", false
	}
	n := int(at.u16(0))
	if !at.fits(2 + 2*n) {
		return "", false
	}
	return decodeUTF16(at.bytes(2, 2*n)), true
}

// resourceStringSize is the encoded size of s, truncated to the uint16
// length limit.
func resourceStringSize(s string) int {
	return 2 + 2*len(truncateUTF16(utf16.Encode([]rune(s))))
}

// writeResourceString writes s at off and returns the offset past it.
func writeResourceString(v view, off int, s string) int {
	units := truncateUTF16(utf16.Encode([]rune(s)))
	v.setU16(off, uint16(len(units)))
	off += 2
	for _, u := range units {
		v.setU16(off, u)
		off += 2
	}
	return off
}

func truncateUTF16(units []uint16) []uint16 {
	if len(units) > resourceStringMaxLength {
		return units[:resourceStringMaxLength]
	}
	return units
}

func decodeUTF16(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}

func encodeUTF16(s string) []byte {
	units := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}
	return b
}

// ResourceString is a resource payload decoded as UTF-16LE.
type ResourceString struct {
	Lang  ResourceKey
	Value string
}

// ResourceEntriesAsString decodes every language of (typ, id) as UTF-16LE
// text, dropping trailing NULs.
func (r *Resource) ResourceEntriesAsString(typ, id ResourceKey) []ResourceString {
	var out []ResourceString
	for _, e := range r.Entries {
		if e.Type == typ && e.ID == id {
			out = append(out, ResourceString{
				Lang:  e.Lang,
				Value: strings.TrimRight(decodeUTF16(e.Data), "\x00"),
			})
		}
	}
	return out
}

// ReplaceResourceEntryFromString stores value as UTF-16LE text, keeping the
// codepage of an existing entry.
func (r *Resource) ReplaceResourceEntryFromString(typ, id, lang ResourceKey, value string) {
	e := ResourceEntry{Type: typ, ID: id, Lang: lang, Data: encodeUTF16(value)}
	if old := r.Entry(typ, id, lang); old != nil {
		e.Codepage = old.Codepage
	}
	r.ReplaceResourceEntry(e)
}
