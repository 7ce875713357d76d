package pe

// DOSHeader is an accessor for the 64-byte IMAGE_DOS_HEADER.
type DOSHeader struct {
	v view
}

// DOSHeaderFrom returns an accessor over bin at offset. The range is not
// validated.
func DOSHeaderFrom(bin []byte, offset int) DOSHeader {
	return DOSHeader{v: view{b: bin, off: offset}}
}

func (h DOSHeader) Size() int { return DOSHeaderSize }

func (h DOSHeader) IsValid() bool { return h.Magic() == ImageDOSSignature }

func (h DOSHeader) Magic() uint16                        { return h.v.u16(0) }
func (h DOSHeader) SetMagic(x uint16)                    { h.v.setU16(0, x) }
func (h DOSHeader) BytesOnLastPageOfFile() uint16        { return h.v.u16(2) }
func (h DOSHeader) SetBytesOnLastPageOfFile(x uint16)    { h.v.setU16(2, x) }
func (h DOSHeader) PagesInFile() uint16                  { return h.v.u16(4) }
func (h DOSHeader) SetPagesInFile(x uint16)              { h.v.setU16(4, x) }
func (h DOSHeader) Relocations() uint16                  { return h.v.u16(6) }
func (h DOSHeader) SetRelocations(x uint16)              { h.v.setU16(6, x) }
func (h DOSHeader) SizeOfHeader() uint16                 { return h.v.u16(8) }
func (h DOSHeader) SetSizeOfHeader(x uint16)             { h.v.setU16(8, x) }
func (h DOSHeader) MinExtraParagraphsNeeded() uint16     { return h.v.u16(10) }
func (h DOSHeader) SetMinExtraParagraphsNeeded(x uint16) { h.v.setU16(10, x) }
func (h DOSHeader) MaxExtraParagraphsNeeded() uint16     { return h.v.u16(12) }
func (h DOSHeader) SetMaxExtraParagraphsNeeded(x uint16) { h.v.setU16(12, x) }
func (h DOSHeader) InitialSS() uint16                    { return h.v.u16(14) }
func (h DOSHeader) SetInitialSS(x uint16)                { h.v.setU16(14, x) }
func (h DOSHeader) InitialSP() uint16                    { return h.v.u16(16) }
func (h DOSHeader) SetInitialSP(x uint16)                { h.v.setU16(16, x) }
func (h DOSHeader) Checksum() uint16                     { return h.v.u16(18) }
func (h DOSHeader) SetChecksum(x uint16)                 { h.v.setU16(18, x) }
func (h DOSHeader) InitialIP() uint16                    { return h.v.u16(20) }
func (h DOSHeader) SetInitialIP(x uint16)                { h.v.setU16(20, x) }
func (h DOSHeader) InitialCS() uint16                    { return h.v.u16(22) }
func (h DOSHeader) SetInitialCS(x uint16)                { h.v.setU16(22, x) }
func (h DOSHeader) AddressOfRelocationTable() uint16     { return h.v.u16(24) }
func (h DOSHeader) SetAddressOfRelocationTable(x uint16) { h.v.setU16(24, x) }
func (h DOSHeader) OverlayNumber() uint16                { return h.v.u16(26) }
func (h DOSHeader) SetOverlayNumber(x uint16)            { h.v.setU16(26, x) }
func (h DOSHeader) OEMIdentifier() uint16                { return h.v.u16(36) }
func (h DOSHeader) SetOEMIdentifier(x uint16)            { h.v.setU16(36, x) }
func (h DOSHeader) OEMInformation() uint16               { return h.v.u16(38) }
func (h DOSHeader) SetOEMInformation(x uint16)           { h.v.setU16(38, x) }

// ReservedWords1 returns e_res[i], i in [0, 4).
func (h DOSHeader) ReservedWords1(i int) uint16       { return h.v.u16(28 + 2*i) }
func (h DOSHeader) SetReservedWords1(i int, x uint16) { h.v.setU16(28+2*i, x) }

// ReservedWords2 returns e_res2[i], i in [0, 10).
func (h DOSHeader) ReservedWords2(i int) uint16       { return h.v.u16(40 + 2*i) }
func (h DOSHeader) SetReservedWords2(i int, x uint16) { h.v.setU16(40+2*i, x) }

// AddressOfNewEXEHeader is e_lfanew, the file offset of the NT headers.
func (h DOSHeader) AddressOfNewEXEHeader() uint32     { return h.v.u32(60) }
func (h DOSHeader) SetAddressOfNewEXEHeader(x uint32) { h.v.setU32(60, x) }
