package pe

import (
	"encoding/binary"
	"testing"
)

const (
	testLfanew        = 0x80
	testFileAlign     = 0x200
	testSectionAlign  = 0x1000
	testSizeOfHeaders = 0x400

	noEntry DirectoryEntry = -1
)

type testSection struct {
	name        string
	data        []byte
	virtualSize uint32
	entry       DirectoryEntry
	// gen produces the data once the section's virtual address is known.
	gen func(va uint32) []byte
}

type testImage struct {
	is64     bool
	sections []testSection
	checksum bool
	rich     bool
	extra    []byte
}

// build lays the sections out back to back from testSizeOfHeaders in the
// file and from testSectionAlign in memory.
func (img testImage) build(t *testing.T) []byte {
	t.Helper()

	type placed struct {
		sh    SectionHeader
		data  []byte
		entry DirectoryEntry
	}
	var secs []placed
	raw, va := uint32(testSizeOfHeaders), uint32(testSectionAlign)
	for _, s := range img.sections {
		data := s.data
		if s.gen != nil {
			data = s.gen(va)
		}
		vs := s.virtualSize
		if vs == 0 {
			vs = uint32(len(data))
		}
		sh := SectionHeader{
			Name:            s.name,
			VirtualSize:     vs,
			VirtualAddress:  va,
			Characteristics: ImageScnCntInitializedData | ImageScnMemRead,
		}
		if len(data) > 0 {
			sh.PointerToRawData = raw
			sh.SizeOfRawData = roundUp(uint32(len(data)), testFileAlign)
			raw += sh.SizeOfRawData
		}
		secs = append(secs, placed{sh: sh, data: data, entry: s.entry})
		va = roundUp(va+vs, testSectionAlign)
	}

	bin := make([]byte, int(raw)+len(img.extra))
	copy(bin[raw:], img.extra)

	dos := DOSHeaderFrom(bin, 0)
	dos.SetMagic(ImageDOSSignature)
	dos.SetAddressOfNewEXEHeader(testLfanew)
	if img.rich {
		copy(bin[testRichOffset:], testRichHeader())
	}

	binary.LittleEndian.PutUint32(bin[testLfanew:], ImageNTHeaderSignature)
	magic := uint16(ImageNtOptionalHeader32Magic)
	if img.is64 {
		magic = ImageNtOptionalHeader64Magic
	}
	binary.LittleEndian.PutUint16(bin[testLfanew+optionalHeaderMagicOffset:], magic)

	nt := NtHeadersFrom(bin, testLfanew)
	fh := nt.FileHeader()
	fh.SetNumberOfSections(uint16(len(secs)))
	fh.SetSizeOfOptionalHeader(uint16(nt.optionalHeaderSize() + DataDirectoryListSize))
	fh.SetCharacteristics(0x2102)
	if img.is64 {
		fh.SetMachine(0x8664)
		oh := nt.OptionalHeader64()
		oh.SetImageBase(0x180000000)
		oh.SetNumberOfRvaAndSizes(NumberOfDirectories)
	} else {
		fh.SetMachine(0x14c)
		oh := nt.OptionalHeader32()
		oh.SetImageBase32(0x10000000)
		oh.SetNumberOfRvaAndSizes(NumberOfDirectories)
	}
	oh := nt.OptionalHeader()
	oh.SetSectionAlignment(testSectionAlign)
	oh.SetFileAlignment(testFileAlign)
	oh.SetSizeOfHeaders(testSizeOfHeaders)
	oh.SetSizeOfImage(va)

	table := SectionHeaderArrayFrom(bin, nt.SectionHeaderOffset(), len(secs))
	dd := nt.DataDirectory()
	for i, s := range secs {
		table.Set(i, s.sh)
		if s.data != nil {
			copy(bin[s.sh.PointerToRawData:], s.data)
		}
		if s.entry != noEntry {
			dd.SetEntry(s.entry, DataDirectory{VirtualAddress: s.sh.VirtualAddress, Size: s.sh.VirtualSize})
		}
	}

	if img.checksum {
		oh.SetCheckSum(1)
		updateChecksum(bin)
	}
	return bin
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i*7)
	}
	return b
}

// testDLL is a DLL with code, import data, resources and relocations.
func testDLL(is64 bool) testImage {
	return testImage{
		is64: is64,
		sections: []testSection{
			{name: ".text", data: pattern(0x300, 1), entry: noEntry},
			{name: ".rdata", data: pattern(0x180, 2), entry: ImageDirectoryEntryImport},
			{name: ".rsrc", gen: testResourceData(testEntries()), entry: ImageDirectoryEntryResource},
			{name: ".reloc", data: pattern(0x40, 3), entry: ImageDirectoryEntryBaseReLoc},
		},
	}
}

func testEntries() []ResourceEntry {
	return []ResourceEntry{
		{Type: RTVersion.Key(), ID: IDKey(1), Lang: IDKey(1033), Data: pattern(0x5c, 4)},
		{Type: RTManifest.Key(), ID: IDKey(2), Lang: IDKey(1033), Data: []byte("<assembly/>")},
		{Type: NameKey("TYPELIB"), ID: NameKey("MAIN"), Lang: IDKey(0), Codepage: 1252, Data: pattern(0x21, 5)},
		{Type: RTIcon.Key(), ID: IDKey(1), Lang: NameKey("neutral"), Data: pattern(0x10, 6)},
	}
}

func testResourceData(entries []ResourceEntry) func(va uint32) []byte {
	return func(va uint32) []byte {
		r := &Resource{DateTime: 0x5f000000, MajorVersion: 4, Entries: entries}
		bin, _, err := r.GenerateResourceData(va, testFileAlign, false, true)
		if err != nil {
			panic(err)
		}
		return bin
	}
}

var testCompIDs = []uint32{0x01040000 | 30729, 3, 0x00930000 | 30729, 12}

const (
	testRichKey    = 0x1234abcd
	testRichOffset = DOSHeaderSize + 8
)

// testRichHeader returns an encrypted Rich header for the DOS stub. Its
// plain form is testRichPlain.
func testRichHeader() []byte {
	plain := testRichPlain()
	out := make([]byte, len(plain)+8)
	for i := 0; i < len(plain); i += 4 {
		binary.LittleEndian.PutUint32(out[i:], binary.LittleEndian.Uint32(plain[i:])^testRichKey)
	}
	copy(out[len(plain):], RichSignature)
	binary.LittleEndian.PutUint32(out[len(plain)+4:], testRichKey)
	return out
}

func testRichPlain() []byte {
	words := append([]uint32{DansSignature, 0, 0, 0}, testCompIDs...)
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}

func mustParse(t *testing.T, bin []byte, opts *Options) *File {
	t.Helper()
	f, err := Parse(bin, opts)
	if err != nil {
		t.Fatalf("Parse() failed, reason: %v", err)
	}
	return f
}
