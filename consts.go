package pe

// MinFileSize On Windows XP (x32) the smallest PE executable is 97 bytes.
const MinFileSize = 97

const (
	ImageDOSSignature      = 0x5A4D     // MZ
	ImageNTHeaderSignature = 0x00004550 // PE\0\0
)

const (
	ImageNtOptionalHeader32Magic = 0x10b
	ImageNtOptionalHeader64Magic = 0x20b
)

// Sizes of the fixed-layout records.
const (
	DOSHeaderSize         = 64
	FileHeaderSize        = 20
	OptionalHeader32Size  = 96
	OptionalHeader64Size  = 112
	DataDirectorySize     = 8
	NumberOfDirectories   = 16
	DataDirectoryListSize = DataDirectorySize * NumberOfDirectories
	SectionHeaderSize     = 40
)

// checksumOffset is relative to e_lfanew: signature(4) + file header(20) + 64.
const checksumOffset = 88

// DirectoryEntry indexes the optional header data directory.
type DirectoryEntry int

// IMAGE_DIRECTORY_ENTRY constants
const (
	ImageDirectoryEntryExport        DirectoryEntry = 0
	ImageDirectoryEntryImport        DirectoryEntry = 1
	ImageDirectoryEntryResource      DirectoryEntry = 2
	ImageDirectoryEntryException     DirectoryEntry = 3
	ImageDirectoryEntryCertificate   DirectoryEntry = 4
	ImageDirectoryEntryBaseReLoc     DirectoryEntry = 5
	ImageDirectoryEntryDebug         DirectoryEntry = 6
	ImageDirectoryEntryArchitecture  DirectoryEntry = 7
	ImageDirectoryEntryGlobalPtr     DirectoryEntry = 8
	ImageDirectoryEntryTls           DirectoryEntry = 9
	ImageDirectoryEntryLoadConfig    DirectoryEntry = 10
	ImageDirectoryEntryBoundImport   DirectoryEntry = 11
	ImageDirectoryEntryIat           DirectoryEntry = 12
	ImageDirectoryEntryDelayImport   DirectoryEntry = 13
	ImageDirectoryEntryComDescriptor DirectoryEntry = 14

	// ImageDirectoryEntrySecurity is the winnt.h name of the certificate entry.
	ImageDirectoryEntrySecurity = ImageDirectoryEntryCertificate
)

var directoryEntryNames = [...]string{
	"Export", "Import", "Resource", "Exception", "Certificate", "BaseRelocation",
	"Debug", "Architecture", "GlobalPointer", "TLS", "LoadConfig", "BoundImport",
	"IAT", "DelayImport", "COMDescriptor", "Reserved",
}

func (e DirectoryEntry) String() string {
	if e < 0 || int(e) >= len(directoryEntryNames) {
		return "Unknown"
	}
	return directoryEntryNames[e]
}

const (
	ImageScnCntCode              = 0x00000020
	ImageScnCntInitializedData   = 0x00000040
	ImageScnCntUninitializedData = 0x00000080
	ImageScnMemExecute           = 0x20000000
	ImageScnMemRead              = 0x40000000
	ImageScnMemWrite             = 0x80000000
)

// WIN_CERTIFICATE values used by Authenticode.
const (
	WinCertRevision2_0        = 0x0200
	WinCertTypePKCSSignedData = 0x0002
	winCertificateHeaderSize  = 8
	certificateTableAlignment = 8
)

// Resource directory layout.
const (
	resourceDataAlignment      = 8
	resourceStringMaxLength    = 0xFFFF
	resourceDirectoryTableSize = 16
	resourceDirectoryEntrySize = 8
	resourceDataEntrySize      = 16
	resourceNameIsString       = 0x80000000
	resourceDataIsDirectory    = 0x80000000
	resourceOffsetMask         = 0x7FFFFFFF
	resourceIDMax              = 0xFFFF
	maxAllowedEntries          = 0x1000
)

const (
	DansSignature = 0x536E6144
	RichSignature = "Rich"
)
