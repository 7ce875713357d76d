package pe

// OptionalHeader is the part of IMAGE_OPTIONAL_HEADER32/64 the container
// needs regardless of the image bitness. Fields wider in PE32+ are widened.
type OptionalHeader interface {
	Size() int
	Magic() uint16
	AddressOfEntryPoint() uint32
	ImageBase() uint64
	SectionAlignment() uint32
	SetSectionAlignment(uint32)
	FileAlignment() uint32
	SetFileAlignment(uint32)
	SizeOfImage() uint32
	SetSizeOfImage(uint32)
	SizeOfHeaders() uint32
	SetSizeOfHeaders(uint32)
	CheckSum() uint32
	SetCheckSum(uint32)
	Subsystem() uint16
	DllCharacteristics() uint16
	NumberOfRvaAndSizes() uint32
}

// optionalHeaderCommon holds the fields whose offsets are identical in the
// PE32 and PE32+ layouts.
type optionalHeaderCommon struct {
	v view
}

func (h optionalHeaderCommon) Magic() uint16                           { return h.v.u16(0) }
func (h optionalHeaderCommon) SetMagic(x uint16)                       { h.v.setU16(0, x) }
func (h optionalHeaderCommon) MajorLinkerVersion() uint8               { return h.v.u8(2) }
func (h optionalHeaderCommon) SetMajorLinkerVersion(x uint8)           { h.v.setU8(2, x) }
func (h optionalHeaderCommon) MinorLinkerVersion() uint8               { return h.v.u8(3) }
func (h optionalHeaderCommon) SetMinorLinkerVersion(x uint8)           { h.v.setU8(3, x) }
func (h optionalHeaderCommon) SizeOfCode() uint32                      { return h.v.u32(4) }
func (h optionalHeaderCommon) SetSizeOfCode(x uint32)                  { h.v.setU32(4, x) }
func (h optionalHeaderCommon) SizeOfInitializedData() uint32           { return h.v.u32(8) }
func (h optionalHeaderCommon) SetSizeOfInitializedData(x uint32)       { h.v.setU32(8, x) }
func (h optionalHeaderCommon) SizeOfUninitializedData() uint32         { return h.v.u32(12) }
func (h optionalHeaderCommon) SetSizeOfUninitializedData(x uint32)     { h.v.setU32(12, x) }
func (h optionalHeaderCommon) AddressOfEntryPoint() uint32             { return h.v.u32(16) }
func (h optionalHeaderCommon) SetAddressOfEntryPoint(x uint32)         { h.v.setU32(16, x) }
func (h optionalHeaderCommon) BaseOfCode() uint32                      { return h.v.u32(20) }
func (h optionalHeaderCommon) SetBaseOfCode(x uint32)                  { h.v.setU32(20, x) }
func (h optionalHeaderCommon) SectionAlignment() uint32                { return h.v.u32(32) }
func (h optionalHeaderCommon) SetSectionAlignment(x uint32)            { h.v.setU32(32, x) }
func (h optionalHeaderCommon) FileAlignment() uint32                   { return h.v.u32(36) }
func (h optionalHeaderCommon) SetFileAlignment(x uint32)               { h.v.setU32(36, x) }
func (h optionalHeaderCommon) MajorOperatingSystemVersion() uint16     { return h.v.u16(40) }
func (h optionalHeaderCommon) SetMajorOperatingSystemVersion(x uint16) { h.v.setU16(40, x) }
func (h optionalHeaderCommon) MinorOperatingSystemVersion() uint16     { return h.v.u16(42) }
func (h optionalHeaderCommon) SetMinorOperatingSystemVersion(x uint16) { h.v.setU16(42, x) }
func (h optionalHeaderCommon) MajorImageVersion() uint16               { return h.v.u16(44) }
func (h optionalHeaderCommon) SetMajorImageVersion(x uint16)           { h.v.setU16(44, x) }
func (h optionalHeaderCommon) MinorImageVersion() uint16               { return h.v.u16(46) }
func (h optionalHeaderCommon) SetMinorImageVersion(x uint16)           { h.v.setU16(46, x) }
func (h optionalHeaderCommon) MajorSubsystemVersion() uint16           { return h.v.u16(48) }
func (h optionalHeaderCommon) SetMajorSubsystemVersion(x uint16)       { h.v.setU16(48, x) }
func (h optionalHeaderCommon) MinorSubsystemVersion() uint16           { return h.v.u16(50) }
func (h optionalHeaderCommon) SetMinorSubsystemVersion(x uint16)       { h.v.setU16(50, x) }
func (h optionalHeaderCommon) Win32VersionValue() uint32               { return h.v.u32(52) }
func (h optionalHeaderCommon) SetWin32VersionValue(x uint32)           { h.v.setU32(52, x) }
func (h optionalHeaderCommon) SizeOfImage() uint32                     { return h.v.u32(56) }
func (h optionalHeaderCommon) SetSizeOfImage(x uint32)                 { h.v.setU32(56, x) }
func (h optionalHeaderCommon) SizeOfHeaders() uint32                   { return h.v.u32(60) }
func (h optionalHeaderCommon) SetSizeOfHeaders(x uint32)               { h.v.setU32(60, x) }
func (h optionalHeaderCommon) CheckSum() uint32                        { return h.v.u32(64) }
func (h optionalHeaderCommon) SetCheckSum(x uint32)                    { h.v.setU32(64, x) }
func (h optionalHeaderCommon) Subsystem() uint16                       { return h.v.u16(68) }
func (h optionalHeaderCommon) SetSubsystem(x uint16)                   { h.v.setU16(68, x) }
func (h optionalHeaderCommon) DllCharacteristics() uint16              { return h.v.u16(70) }
func (h optionalHeaderCommon) SetDllCharacteristics(x uint16)          { h.v.setU16(70, x) }

// OptionalHeader32 is an accessor for the 96-byte PE32 optional header
// (without the data directory).
type OptionalHeader32 struct {
	optionalHeaderCommon
}

func OptionalHeader32From(bin []byte, offset int) OptionalHeader32 {
	return OptionalHeader32{optionalHeaderCommon{v: view{b: bin, off: offset}}}
}

func (h OptionalHeader32) Size() int { return OptionalHeader32Size }

func (h OptionalHeader32) BaseOfData() uint32              { return h.v.u32(24) }
func (h OptionalHeader32) SetBaseOfData(x uint32)          { h.v.setU32(24, x) }
func (h OptionalHeader32) ImageBase32() uint32             { return h.v.u32(28) }
func (h OptionalHeader32) SetImageBase32(x uint32)         { h.v.setU32(28, x) }
func (h OptionalHeader32) SizeOfStackReserve() uint32      { return h.v.u32(72) }
func (h OptionalHeader32) SetSizeOfStackReserve(x uint32)  { h.v.setU32(72, x) }
func (h OptionalHeader32) SizeOfStackCommit() uint32       { return h.v.u32(76) }
func (h OptionalHeader32) SetSizeOfStackCommit(x uint32)   { h.v.setU32(76, x) }
func (h OptionalHeader32) SizeOfHeapReserve() uint32       { return h.v.u32(80) }
func (h OptionalHeader32) SetSizeOfHeapReserve(x uint32)   { h.v.setU32(80, x) }
func (h OptionalHeader32) SizeOfHeapCommit() uint32        { return h.v.u32(84) }
func (h OptionalHeader32) SetSizeOfHeapCommit(x uint32)    { h.v.setU32(84, x) }
func (h OptionalHeader32) LoaderFlags() uint32             { return h.v.u32(88) }
func (h OptionalHeader32) SetLoaderFlags(x uint32)         { h.v.setU32(88, x) }
func (h OptionalHeader32) NumberOfRvaAndSizes() uint32     { return h.v.u32(92) }
func (h OptionalHeader32) SetNumberOfRvaAndSizes(x uint32) { h.v.setU32(92, x) }

// ImageBase widens the 32-bit image base.
func (h OptionalHeader32) ImageBase() uint64 { return uint64(h.ImageBase32()) }

// OptionalHeader64 is an accessor for the 112-byte PE32+ optional header
// (without the data directory).
type OptionalHeader64 struct {
	optionalHeaderCommon
}

func OptionalHeader64From(bin []byte, offset int) OptionalHeader64 {
	return OptionalHeader64{optionalHeaderCommon{v: view{b: bin, off: offset}}}
}

func (h OptionalHeader64) Size() int { return OptionalHeader64Size }

func (h OptionalHeader64) ImageBase() uint64               { return h.v.u64(24) }
func (h OptionalHeader64) SetImageBase(x uint64)           { h.v.setU64(24, x) }
func (h OptionalHeader64) SizeOfStackReserve() uint64      { return h.v.u64(72) }
func (h OptionalHeader64) SetSizeOfStackReserve(x uint64)  { h.v.setU64(72, x) }
func (h OptionalHeader64) SizeOfStackCommit() uint64       { return h.v.u64(80) }
func (h OptionalHeader64) SetSizeOfStackCommit(x uint64)   { h.v.setU64(80, x) }
func (h OptionalHeader64) SizeOfHeapReserve() uint64       { return h.v.u64(88) }
func (h OptionalHeader64) SetSizeOfHeapReserve(x uint64)   { h.v.setU64(88, x) }
func (h OptionalHeader64) SizeOfHeapCommit() uint64        { return h.v.u64(96) }
func (h OptionalHeader64) SetSizeOfHeapCommit(x uint64)    { h.v.setU64(96, x) }
func (h OptionalHeader64) LoaderFlags() uint32             { return h.v.u32(104) }
func (h OptionalHeader64) SetLoaderFlags(x uint32)         { h.v.setU32(104, x) }
func (h OptionalHeader64) NumberOfRvaAndSizes() uint32     { return h.v.u32(108) }
func (h OptionalHeader64) SetNumberOfRvaAndSizes(x uint32) { h.v.setU32(108, x) }
