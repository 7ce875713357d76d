package pe

import "encoding/binary"

// Checksum computes the image checksum of bin as the loader does for
// drivers and critical DLLs. The bytes of the stored CheckSum field count
// as zero wherever e_lfanew puts them; a trailing partial DWORD is zero
// padded.
func Checksum(bin []byte) uint32 {
	csOff := -1
	if len(bin) >= DOSHeaderSize {
		csOff = int(DOSHeaderFrom(bin, 0).AddressOfNewEXEHeader()) + checksumOffset
	}

	var sum uint64
	var word [4]byte
	for i := 0; i < len(bin); i += 4 {
		var dword uint32
		if i+4 <= len(bin) && (csOff < 0 || i+4 <= csOff || i >= csOff+4) {
			dword = binary.LittleEndian.Uint32(bin[i:])
		} else {
			clear(word[:])
			copy(word[:], bin[i:])
			for j := range word {
				if csOff >= 0 && i+j >= csOff && i+j < csOff+4 {
					word[j] = 0
				}
			}
			dword = binary.LittleEndian.Uint32(word[:])
		}
		sum += uint64(dword)
		sum = (sum & 0xffffffff) + (sum >> 32)
	}

	sum = (sum & 0xffff) + (sum >> 16)
	sum = sum + (sum >> 16)
	sum &= 0xffff
	return uint32(sum) + uint32(len(bin))
}

// updateChecksum stores the checksum of bin in its optional header.
func updateChecksum(bin []byte) {
	lfanew := int(DOSHeaderFrom(bin, 0).AddressOfNewEXEHeader())
	v := view{b: bin, off: lfanew}
	if !v.fits(checksumOffset + 4) {
		return
	}
	v.setU32(checksumOffset, Checksum(bin))
}
