package pe

import (
	"bytes"
	"crypto/md5"
	"fmt"
)

type SectionHeader struct {
	Name                 string
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

// cString converts ASCII byte sequence b to string.
// It stops once it finds 0 or reaches end of b.
func cString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		i = len(b)
	}
	return string(b[:i])
}

func decodeSectionHeader(v view) SectionHeader {
	return SectionHeader{
		Name:                 cString(v.bytes(0, 8)),
		VirtualSize:          v.u32(8),
		VirtualAddress:       v.u32(12),
		SizeOfRawData:        v.u32(16),
		PointerToRawData:     v.u32(20),
		PointerToRelocations: v.u32(24),
		PointerToLineNumbers: v.u32(28),
		NumberOfRelocations:  v.u16(32),
		NumberOfLineNumbers:  v.u16(34),
		Characteristics:      v.u32(36),
	}
}

// encodeSectionHeader writes sh at v. Names longer than 8 bytes are cut.
func encodeSectionHeader(v view, sh SectionHeader) {
	name := v.bytes(0, 8)
	clear(name)
	copy(name, sh.Name)
	v.setU32(8, sh.VirtualSize)
	v.setU32(12, sh.VirtualAddress)
	v.setU32(16, sh.SizeOfRawData)
	v.setU32(20, sh.PointerToRawData)
	v.setU32(24, sh.PointerToRelocations)
	v.setU32(28, sh.PointerToLineNumbers)
	v.setU16(32, sh.NumberOfRelocations)
	v.setU16(34, sh.NumberOfLineNumbers)
	v.setU32(36, sh.Characteristics)
}

// SectionHeaderArray is the section table following the optional header.
type SectionHeaderArray struct {
	recordArray[SectionHeader]
}

func SectionHeaderArrayFrom(bin []byte, offset, length int) SectionHeaderArray {
	return SectionHeaderArray{recordArray[SectionHeader]{
		v:      view{b: bin, off: offset},
		length: length,
		stride: SectionHeaderSize,
		decode: decodeSectionHeader,
		encode: encodeSectionHeader,
	}}
}

// Section is one section of the image. A nil Data marks a virtual-only
// section (PointerToRawData and SizeOfRawData are zero).
type Section struct {
	SectionHeader
	Data []byte
}

func (s *Section) clone() *Section {
	c := &Section{SectionHeader: s.SectionHeader}
	if s.Data != nil {
		c.Data = bytes.Clone(s.Data)
	}
	return c
}

// virtualSpan is the in-memory extent of the section; images produced by
// some linkers leave VirtualSize zero.
func (s *Section) virtualSpan() uint32 {
	if s.VirtualSize == 0 {
		return s.SizeOfRawData
	}
	return s.VirtualSize
}

// Contains reports whether the RVA va falls inside the section.
func (s *Section) Contains(va uint32) bool {
	return s.VirtualAddress <= va && va < s.VirtualAddress+s.virtualSpan()
}

func (s *Section) rawEnd() uint32 { return s.PointerToRawData + s.SizeOfRawData }

func (s *Section) virtualEnd() uint32 { return s.VirtualAddress + s.virtualSpan() }

func (s *Section) MD5() string {
	return fmt.Sprintf("%x", md5.Sum(s.Data))
}

func (s *Section) Entropy() float64 {
	var e EntropyCalculator
	_, _ = e.Write(s.Data)
	return e.Sum()
}

func (s *Section) Flags() (flags string) {
	if (ImageScnMemRead & s.Characteristics) == ImageScnMemRead {
		flags += "r"
	}
	if (ImageScnMemExecute & s.Characteristics) == ImageScnMemExecute {
		flags += "x"
	}
	if (ImageScnMemWrite & s.Characteristics) == ImageScnMemWrite {
		flags += "w"
	}
	return flags
}
