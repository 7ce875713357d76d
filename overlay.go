package pe

import "bytes"

// largestOffsetAndSize tracks the furthest file extent seen so far.
type largestOffsetAndSize struct {
	offset, size uint32
}

func (l *largestOffsetAndSize) update(offset, size uint32) {
	if offset+size > l.offset+l.size {
		l.offset, l.size = offset, size
	}
}

func (l largestOffsetAndSize) end() uint32 { return l.offset + l.size }

// imageEnd is the file-aligned end of the headers and every section's raw
// data. Extra data starts here, both when parsing and when generating.
func (f *File) imageEnd() uint32 {
	largest := largestOffsetAndSize{size: uint32(max(len(f.header), f.sectionTableEnd()))}
	for _, s := range f.sections {
		if s.PointerToRawData != 0 && s.Data != nil {
			largest.update(s.PointerToRawData, s.SizeOfRawData)
		}
	}
	return roundUp(largest.end(), f.FileAlignment())
}

// readExtraData captures the bytes between the image end and the
// certificate table (or EOF) of bin.
func (f *File) readExtraData(bin []byte, cert DataDirectory) {
	start := int(f.imageEnd())
	end := len(bin)
	if cert.Size != 0 && int(cert.VirtualAddress) >= start && int(cert.VirtualAddress) <= end {
		end = int(cert.VirtualAddress)
	}
	if start < end {
		f.extra = bytes.Clone(bin[start:end])
	}
}

// ExtraData returns the overlay following the last section. The slice must
// not be modified.
func (f *File) ExtraData() []byte {
	return f.extra
}

// SetExtraData replaces the overlay; nil removes it.
func (f *File) SetExtraData(data []byte) {
	f.extra = bytes.Clone(data)
}
