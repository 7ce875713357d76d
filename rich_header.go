package pe

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

type RichHeader struct {
	XorKey     uint32
	CompIDs    []CompID
	DansOffset int
	Raw        []byte
}

type CompID struct {
	MinorCV  uint16
	ProdID   uint16
	Count    uint32
	Unmasked uint32
}

// RichHeader decodes the linker Rich header from the DOS stub, or returns
// nil when there is none.
func (f *File) RichHeader() *RichHeader {
	lfanew := int(f.DOSHeader().AddressOfNewEXEHeader())
	if lfanew > len(f.header) {
		return nil
	}
	richData := f.header[:lfanew]
	richSigOffset := bytes.Index(richData, []byte(RichSignature))
	if richSigOffset < 0 || richSigOffset+8 > len(richData) {
		return nil
	}

	var rh RichHeader
	rh.XorKey = binary.LittleEndian.Uint32(richData[richSigOffset+4:])

	var decRichHeader []uint32
	dansSigOffset := -1
	estimatedBeginDans := richSigOffset - 4 - DOSHeaderSize
	for it := 0; it < estimatedBeginDans; it += 4 {
		res := binary.LittleEndian.Uint32(richData[richSigOffset-4-it:]) ^ rh.XorKey
		if res == DansSignature {
			dansSigOffset = richSigOffset - it - 4
			break
		}
		decRichHeader = append(decRichHeader, res)
	}
	if dansSigOffset == -1 {
		return nil
	}

	rh.DansOffset = dansSigOffset
	rh.Raw = bytes.Clone(richData[dansSigOffset : richSigOffset+8])

	for i, j := 0, len(decRichHeader)-1; i < j; i, j = i+1, j-1 {
		decRichHeader[i], decRichHeader[j] = decRichHeader[j], decRichHeader[i]
	}

	// The first three decoded words are padding; entries are (id, count) pairs.
	for i := 3; i+1 < len(decRichHeader); i += 2 {
		rh.CompIDs = append(rh.CompIDs, CompID{
			MinorCV:  uint16(decRichHeader[i]),
			ProdID:   uint16(decRichHeader[i] >> 16),
			Count:    decRichHeader[i+1],
			Unmasked: decRichHeader[i],
		})
	}
	return &rh
}

func (f *File) RichHeaderChecksum() uint32 {
	rh := f.RichHeader()
	if rh == nil {
		return 0
	}

	checksum := uint32(rh.DansOffset)

	// Sum the DOS header bytes, each rotated left by its position, skipping
	// e_lfanew at 0x3C.
	for i := 0; i < rh.DansOffset; i++ {
		if i >= 0x3C && i < 0x40 {
			continue
		}
		b := uint32(f.header[i])
		checksum += (b << (i % 32)) | (b>>(32-(i%32)))&0xff
	}

	// Then each entry's combined id rotated by its count.
	for _, compID := range rh.CompIDs {
		checksum += compID.Unmasked<<(compID.Count%32) | compID.Unmasked>>(32-(compID.Count%32))
	}
	return checksum
}

func (f *File) RichHeaderHash() string {
	rh := f.RichHeader()
	if rh == nil {
		return ""
	}
	richIndex := bytes.Index(rh.Raw, []byte(RichSignature))
	if richIndex == -1 {
		return ""
	}

	key := make([]byte, 4)
	binary.LittleEndian.PutUint32(key, rh.XorKey)

	rawData := rh.Raw[:richIndex]
	clearData := make([]byte, len(rawData))
	for idx, val := range rawData {
		clearData[idx] = val ^ key[idx%len(key)]
	}
	return fmt.Sprintf("%x", md5.Sum(clearData))
}
