package pe

import "github.com/pkg/errors"

// HeaderKind is the optional header variant of an image.
type HeaderKind int

const (
	Header32 HeaderKind = iota
	Header64
)

func (k HeaderKind) String() string {
	if k == Header64 {
		return "PE32+"
	}
	return "PE32"
}

// optionalHeaderMagicOffset is relative to the NT headers start.
const optionalHeaderMagicOffset = 4 + FileHeaderSize

// describeNtHeaders resolves the optional header variant from the magic.
// Any magic other than PE32+ is treated as PE32; NtHeaders.IsValid tells
// the two known magics apart from garbage.
func describeNtHeaders(bin []byte, offset int) HeaderKind {
	v := view{b: bin, off: offset}
	if !v.fits(optionalHeaderMagicOffset + 2) {
		return Header32
	}
	if v.u16(optionalHeaderMagicOffset) == ImageNtOptionalHeader64Magic {
		return Header64
	}
	return Header32
}

// NtHeaders is an accessor for IMAGE_NT_HEADERS32/64: the signature, the
// COFF file header, the optional header and its 16 entry data directory.
type NtHeaders struct {
	v    view
	kind HeaderKind
}

func NtHeadersFrom(bin []byte, offset int) NtHeaders {
	return NtHeaders{v: view{b: bin, off: offset}, kind: describeNtHeaders(bin, offset)}
}

func (h NtHeaders) Kind() HeaderKind { return h.kind }
func (h NtHeaders) Is32() bool       { return h.kind == Header32 }
func (h NtHeaders) Is64() bool       { return h.kind == Header64 }

func (h NtHeaders) optionalHeaderSize() int {
	if h.kind == Header64 {
		return OptionalHeader64Size
	}
	return OptionalHeader32Size
}

// Size is the size of the fixed part up to the end of the data directory.
func (h NtHeaders) Size() int {
	return 4 + FileHeaderSize + h.optionalHeaderSize() + DataDirectoryListSize
}

func (h NtHeaders) IsValid() bool {
	if h.Signature() != ImageNTHeaderSignature {
		return false
	}
	magic := h.v.u16(optionalHeaderMagicOffset)
	return magic == ImageNtOptionalHeader32Magic || magic == ImageNtOptionalHeader64Magic
}

func (h NtHeaders) Signature() uint32     { return h.v.u32(0) }
func (h NtHeaders) SetSignature(x uint32) { h.v.setU32(0, x) }

func (h NtHeaders) FileHeader() FileHeader {
	return FileHeader{v: h.v.at(4)}
}

func (h NtHeaders) OptionalHeader() OptionalHeader {
	if h.kind == Header64 {
		return h.OptionalHeader64()
	}
	return h.OptionalHeader32()
}

func (h NtHeaders) OptionalHeader32() OptionalHeader32 {
	return OptionalHeader32{optionalHeaderCommon{v: h.v.at(optionalHeaderMagicOffset)}}
}

func (h NtHeaders) OptionalHeader64() OptionalHeader64 {
	return OptionalHeader64{optionalHeaderCommon{v: h.v.at(optionalHeaderMagicOffset)}}
}

// DataDirectory returns the directory array that immediately follows the
// fixed part of the optional header.
func (h NtHeaders) DataDirectory() DataDirectoryArray {
	return DataDirectoryArrayFrom(h.v.b, h.v.off+optionalHeaderMagicOffset+h.optionalHeaderSize())
}

// SectionHeaderOffset is the absolute offset of the section table, which
// starts after SizeOfOptionalHeader bytes regardless of the variant.
func (h NtHeaders) SectionHeaderOffset() int {
	return h.v.off + optionalHeaderMagicOffset + int(h.FileHeader().SizeOfOptionalHeader())
}

// validateNtHeaders checks the NT headers of bin located at offset for everything the
// container depends on.
func validateNtHeaders(bin []byte, offset int) (NtHeaders, error) {
	v := view{b: bin, off: offset}
	if !v.fits(optionalHeaderMagicOffset + 2) {
		return NtHeaders{}, errors.Wrap(ErrOutsideBoundary, "NT headers are truncated")
	}
	h := NtHeadersFrom(bin, offset)
	if h.Signature() != ImageNTHeaderSignature {
		return NtHeaders{}, ErrInvalidNtSignature
	}
	if !h.IsValid() {
		return NtHeaders{}, errors.Wrapf(ErrInvalidOptionalHeader,
			"optional header has unexpected Magic of 0x%x", h.v.u16(optionalHeaderMagicOffset))
	}
	if !v.fits(h.Size()) {
		return NtHeaders{}, errors.Wrap(ErrOutsideBoundary, "optional header is truncated")
	}

	minSize := h.optionalHeaderSize() + DataDirectoryListSize
	if sz := int(h.FileHeader().SizeOfOptionalHeader()); sz < minSize {
		return NtHeaders{}, errors.Wrapf(ErrInvalidOptionalHeader,
			"optional header size(%d) is less than minimum size (%d) of %s optional header", sz, minSize, h.kind)
	}
	return h, nil
}
