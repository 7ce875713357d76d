package pe

// FileHeader is an accessor for the 20-byte COFF IMAGE_FILE_HEADER.
type FileHeader struct {
	v view
}

func FileHeaderFrom(bin []byte, offset int) FileHeader {
	return FileHeader{v: view{b: bin, off: offset}}
}

func (h FileHeader) Size() int { return FileHeaderSize }

func (h FileHeader) Machine() uint16                  { return h.v.u16(0) }
func (h FileHeader) SetMachine(x uint16)              { h.v.setU16(0, x) }
func (h FileHeader) NumberOfSections() uint16         { return h.v.u16(2) }
func (h FileHeader) SetNumberOfSections(x uint16)     { h.v.setU16(2, x) }
func (h FileHeader) TimeDateStamp() uint32            { return h.v.u32(4) }
func (h FileHeader) SetTimeDateStamp(x uint32)        { h.v.setU32(4, x) }
func (h FileHeader) PointerToSymbolTable() uint32     { return h.v.u32(8) }
func (h FileHeader) SetPointerToSymbolTable(x uint32) { h.v.setU32(8, x) }
func (h FileHeader) NumberOfSymbols() uint32          { return h.v.u32(12) }
func (h FileHeader) SetNumberOfSymbols(x uint32)      { h.v.setU32(12, x) }
func (h FileHeader) SizeOfOptionalHeader() uint16     { return h.v.u16(16) }
func (h FileHeader) SetSizeOfOptionalHeader(x uint16) { h.v.setU16(16, x) }
func (h FileHeader) Characteristics() uint16          { return h.v.u16(18) }
func (h FileHeader) SetCharacteristics(x uint16)      { h.v.setU16(18, x) }
