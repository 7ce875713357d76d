package pe

import (
	"os"
	"slices"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// Options tunes Parse.
type Options struct {
	// IgnoreCert accepts signed images by dropping the certificate table.
	IgnoreCert bool
}

// File is an editable PE image. It owns a copy of the header area (DOS
// header through the section table, up to the first section's raw data),
// the section list and the overlay.
type File struct {
	header   []byte
	sections []*Section
	extra    []byte

	// tableSlots is the largest section count the header area has held;
	// Generate clears stale headers of removed sections.
	tableSlots int
	size       uint32
}

// NewFile maps filename read-only and parses it. The returned File does not
// reference the mapping.
func NewFile(filename string, opts *Options) (*File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() < MinFileSize {
		return nil, ErrInvalidPESize
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failure to map %s", filename)
	}
	defer data.Unmap()

	return Parse(data, opts)
}

// Parse builds a File from bin. bin is copied and may be reused afterwards.
func Parse(bin []byte, opts *Options) (*File, error) {
	if opts == nil {
		opts = &Options{}
	}
	if len(bin) < MinFileSize {
		return nil, ErrInvalidPESize
	}

	dos := DOSHeaderFrom(bin, 0)
	if !dos.IsValid() {
		return nil, ErrInvalidDOSSignature
	}
	lfanew := int64(dos.AddressOfNewEXEHeader())
	if lfanew+4 > int64(len(bin)) {
		return nil, ErrInvalidNewHeaderAddress
	}

	nt, err := validateNtHeaders(bin, int(lfanew))
	if err != nil {
		return nil, err
	}
	fh := nt.FileHeader()
	if fh.NumberOfSymbols() > 0 {
		return nil, ErrSymbolsPresent
	}
	cert := nt.DataDirectory().Entry(ImageDirectoryEntryCertificate)
	if cert.Size != 0 && !opts.IgnoreCert {
		return nil, ErrSignedImage
	}

	secOff := nt.SectionHeaderOffset()
	count := int(fh.NumberOfSections())
	tableEnd := secOff + count*SectionHeaderSize
	if tableEnd > len(bin) {
		return nil, errors.Wrapf(ErrOutsideBoundary, "section table of %d entries is truncated", count)
	}

	file := &File{tableSlots: count, size: uint32(len(bin))}
	// Raw data may run into the file alignment padding the input was cut
	// short of, but no further.
	rawLimit := int64(roundUp(len(bin), int(nt.OptionalHeader().FileAlignment())))
	var lowestRaw uint32
	for _, sh := range SectionHeaderArrayFrom(bin, secOff, count).All() {
		s := &Section{SectionHeader: sh}
		if sh.PointerToRawData != 0 && sh.SizeOfRawData != 0 {
			if int64(sh.PointerToRawData)+int64(sh.SizeOfRawData) > rawLimit {
				return nil, errors.Wrapf(ErrOutsideBoundary, "section %q raw data 0x%x+0x%x is past the end of the file",
					sh.Name, sh.PointerToRawData, sh.SizeOfRawData)
			}
			s.Data = make([]byte, sh.SizeOfRawData)
			if int64(sh.PointerToRawData) < int64(len(bin)) {
				end := min(int64(sh.PointerToRawData)+int64(sh.SizeOfRawData), int64(len(bin)))
				copy(s.Data, bin[sh.PointerToRawData:end])
			}
			if lowestRaw == 0 || sh.PointerToRawData < lowestRaw {
				lowestRaw = sh.PointerToRawData
			}
		}
		file.sections = append(file.sections, s)
	}

	headerEnd := int(nt.OptionalHeader().SizeOfHeaders())
	if lowestRaw != 0 {
		headerEnd = int(lowestRaw)
	}
	headerEnd = max(min(headerEnd, len(bin)), tableEnd)
	file.header = slices.Clone(bin[:headerEnd])

	if cert.Size != 0 {
		file.DataDirectory().SetEntry(ImageDirectoryEntryCertificate, DataDirectory{})
	}
	file.readExtraData(bin, cert)
	return file, nil
}

// GetSize returns the size of the parsed input.
func (f *File) GetSize() uint32 {
	return f.size
}

// Header returns the header area. The slice must not be modified.
func (f *File) Header() []byte {
	return f.header
}

// TotalHeaderSize is the size of the header area including the section table.
func (f *File) TotalHeaderSize() uint32 {
	return uint32(max(len(f.header), f.sectionTableEnd()))
}

func (f *File) DOSHeader() DOSHeader {
	return DOSHeaderFrom(f.header, 0)
}

func (f *File) NtHeaders() NtHeaders {
	return NtHeadersFrom(f.header, int(f.DOSHeader().AddressOfNewEXEHeader()))
}

func (f *File) FileHeader() FileHeader {
	return f.NtHeaders().FileHeader()
}

func (f *File) OptionalHeader() OptionalHeader {
	return f.NtHeaders().OptionalHeader()
}

func (f *File) DataDirectory() DataDirectoryArray {
	return f.NtHeaders().DataDirectory()
}

func (f *File) Kind() HeaderKind { return f.NtHeaders().Kind() }
func (f *File) Is32() bool       { return f.Kind() == Header32 }
func (f *File) Is64() bool       { return f.Kind() == Header64 }

func (f *File) ImageBase() uint64        { return f.OptionalHeader().ImageBase() }
func (f *File) FileAlignment() uint32    { return f.OptionalHeader().FileAlignment() }
func (f *File) SectionAlignment() uint32 { return f.OptionalHeader().SectionAlignment() }

func (f *File) sectionTableOffset() int {
	return f.NtHeaders().SectionHeaderOffset()
}

func (f *File) sectionTableEnd() int {
	return f.sectionTableOffset() + len(f.sections)*SectionHeaderSize
}

// Sections returns the sections in section table order. The slice and the
// sections must not be modified; use SetSectionByEntry.
func (f *File) Sections() []*Section {
	return slices.Clone(f.sections)
}

// Section returns the first section called name.
func (f *File) Section(name string) *Section {
	for _, s := range f.sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (f *File) sectionIndexByRva(rva uint32) int {
	for i, s := range f.sections {
		if s.Contains(rva) {
			return i
		}
	}
	return -1
}

// SectionByEntry returns a copy of the section holding the data directory
// entry, or nil if the entry is empty or points nowhere.
func (f *File) SectionByEntry(entry DirectoryEntry) *Section {
	dd := f.DataDirectory().Entry(entry)
	if dd.Size == 0 {
		return nil
	}
	i := f.sectionIndexByRva(dd.VirtualAddress)
	if i < 0 {
		return nil
	}
	return f.sections[i].clone()
}

// SetSectionByEntry installs section as the holder of the data directory
// entry, replacing the section currently holding it. A nil section removes
// it. The directory entry is set to the section start and VirtualSize.
func (f *File) SetSectionByEntry(entry DirectoryEntry, section *Section) error {
	if entry < 0 || int(entry) >= NumberOfDirectories {
		return errors.Errorf("directory entry %d out of range", entry)
	}
	if entry == ImageDirectoryEntryCertificate {
		return errors.Wrap(ErrInvalidCertificate, "certificate table is not a section")
	}

	dd := f.DataDirectory()
	cur := dd.Entry(entry)
	if section == nil {
		f.removeSection(entry, cur)
		return nil
	}

	s := f.prepareSection(section)
	i := -1
	if cur.Size != 0 {
		i = f.sectionIndexByRva(cur.VirtualAddress)
	}
	if i < 0 {
		return f.insertSection(entry, s)
	}
	f.replaceSection(entry, i, s)
	return nil
}

// prepareSection copies section and normalizes its sizes. SizeOfRawData
// covers the data rounded to file alignment; a larger caller value reserves
// extra space.
func (f *File) prepareSection(section *Section) *Section {
	s := section.clone()
	if s.VirtualSize == 0 {
		s.VirtualSize = uint32(len(s.Data))
	}
	if s.Data == nil {
		s.SizeOfRawData, s.PointerToRawData = 0, 0
		return s
	}

	fa := f.FileAlignment()
	s.SizeOfRawData = max(roundUp(uint32(len(s.Data)), fa), roundUp(s.SizeOfRawData, fa))
	if s.SizeOfRawData == 0 {
		s.Data, s.PointerToRawData = nil, 0
	}
	return s
}

// headerRoom is the offset the section table must not grow past.
func (f *File) headerRoom() int {
	room := 0
	for _, s := range f.sections {
		if s.PointerToRawData != 0 && s.Data != nil && (room == 0 || int(s.PointerToRawData) < room) {
			room = int(s.PointerToRawData)
		}
	}
	if room == 0 {
		room = max(int(roundUp(f.OptionalHeader().SizeOfHeaders(), f.FileAlignment())), len(f.header))
	}
	return room
}

// rawAndVirtualEnd returns the end of the last raw data and the end of the
// last section in memory, skipping the section at index skip.
func (f *File) rawAndVirtualEnd(skip int) (rawEnd, virtEnd uint32) {
	virtEnd = f.OptionalHeader().SizeOfHeaders()
	rawEnd = max(f.TotalHeaderSize(), virtEnd)
	for i, s := range f.sections {
		if i == skip {
			continue
		}
		if s.PointerToRawData != 0 && s.Data != nil {
			rawEnd = max(rawEnd, s.rawEnd())
		}
		virtEnd = max(virtEnd, s.virtualEnd())
	}
	return rawEnd, virtEnd
}

func (f *File) insertSection(entry DirectoryEntry, s *Section) error {
	tableEnd := f.sectionTableEnd() + SectionHeaderSize
	if tableEnd > f.headerRoom() {
		return errors.Wrapf(ErrNoHeaderSpace, "section table would end at 0x%x", tableEnd)
	}

	if tableEnd > len(f.header) {
		f.header = append(f.header, make([]byte, tableEnd-len(f.header))...)
	}
	if oh := f.OptionalHeader(); uint32(tableEnd) > oh.SizeOfHeaders() {
		oh.SetSizeOfHeaders(roundUp(uint32(tableEnd), oh.FileAlignment()))
	}
	rawEnd, virtEnd := f.rawAndVirtualEnd(-1)
	if s.Data != nil {
		s.PointerToRawData = roundUp(rawEnd, f.FileAlignment())
	}
	s.VirtualAddress = roundUp(virtEnd, f.SectionAlignment())

	f.sections = append(f.sections, s)
	f.tableSlots = max(f.tableSlots, len(f.sections))
	f.DataDirectory().SetEntry(entry, DataDirectory{VirtualAddress: s.VirtualAddress, Size: s.VirtualSize})
	f.FileHeader().SetNumberOfSections(uint16(len(f.sections)))
	f.updateSizeOfImage()
	return nil
}

// replaceSection puts s at the place of section i. Sections behind the old
// one move by the size difference, and so do directory entries inside them.
func (f *File) replaceSection(entry DirectoryEntry, i int, s *Section) {
	fa, sa := f.FileAlignment(), f.SectionAlignment()
	old := f.sections[i]
	oldHasRaw := old.PointerToRawData != 0 && old.Data != nil
	oldRawEnd := old.rawEnd()
	oldVirtEnd := roundUp(old.virtualEnd(), sa)

	s.VirtualAddress = old.VirtualAddress
	var rawDiff int64
	switch {
	case s.Data == nil:
		if oldHasRaw {
			rawDiff = -int64(old.SizeOfRawData)
		}
	case oldHasRaw:
		s.PointerToRawData = old.PointerToRawData
		rawDiff = int64(s.rawEnd()) - int64(oldRawEnd)
	default:
		rawEnd, _ := f.rawAndVirtualEnd(i)
		s.PointerToRawData = roundUp(rawEnd, fa)
	}
	virtDiff := int64(roundUp(s.virtualEnd(), sa)) - int64(oldVirtEnd)

	dd := f.DataDirectory()
	moved := make([]bool, NumberOfDirectories)
	for j, other := range f.sections {
		if j == i || virtDiff == 0 || other.VirtualAddress < oldVirtEnd {
			continue
		}
		for k := 0; k < NumberOfDirectories; k++ {
			e := dd.Get(k)
			if DirectoryEntry(k) == ImageDirectoryEntryCertificate || DirectoryEntry(k) == entry || e.Size == 0 {
				continue
			}
			if other.Contains(e.VirtualAddress) {
				moved[k] = true
			}
		}
	}
	for k, m := range moved {
		if m {
			e := dd.Get(k)
			e.VirtualAddress = uint32(int64(e.VirtualAddress) + virtDiff)
			dd.Set(k, e)
		}
	}

	for j, other := range f.sections {
		if j == i {
			continue
		}
		if oldHasRaw && rawDiff != 0 && other.PointerToRawData != 0 && other.PointerToRawData >= oldRawEnd {
			other.PointerToRawData = uint32(int64(other.PointerToRawData) + rawDiff)
		}
		if virtDiff != 0 && other.VirtualAddress >= oldVirtEnd {
			other.VirtualAddress = uint32(int64(other.VirtualAddress) + virtDiff)
		}
	}

	f.sections[i] = s
	dd.SetEntry(entry, DataDirectory{VirtualAddress: s.VirtualAddress, Size: s.VirtualSize})
	f.updateSizeOfImage()
}

func (f *File) removeSection(entry DirectoryEntry, cur DataDirectory) {
	if cur.Size == 0 {
		return
	}
	f.DataDirectory().SetEntry(entry, DataDirectory{})
	if i := f.sectionIndexByRva(cur.VirtualAddress); i >= 0 {
		f.sections = slices.Delete(f.sections, i, i+1)
		f.FileHeader().SetNumberOfSections(uint16(len(f.sections)))
	}
	f.updateSizeOfImage()
}

// updateSizeOfImage sets SizeOfImage to the aligned end of the last section
// in memory.
func (f *File) updateSizeOfImage() {
	oh := f.OptionalHeader()
	sa := oh.SectionAlignment()
	size := roundUp(oh.SizeOfHeaders(), sa)
	for _, s := range f.sections {
		size = max(size, roundUp(s.virtualEnd(), sa))
	}
	oh.SetSizeOfImage(size)
}

// Generate serializes the image followed by the overlay and paddingSize
// zero bytes. The certificate directory entry is always cleared. The
// checksum is recomputed when the header carries a non-zero one.
func (f *File) Generate(paddingSize int) []byte {
	size := int(f.imageEnd())
	out := make([]byte, size, size+len(f.extra)+max(paddingSize, 0))
	copy(out, f.header)

	secOff := f.sectionTableOffset()
	staleEnd := min(secOff+f.tableSlots*SectionHeaderSize, len(f.header))
	if secOff < staleEnd {
		clear(out[secOff:staleEnd])
	}
	table := SectionHeaderArrayFrom(out, secOff, len(f.sections))
	for i, s := range f.sections {
		table.Set(i, s.SectionHeader)
	}

	nt := NtHeadersFrom(out, int(f.DOSHeader().AddressOfNewEXEHeader()))
	nt.DataDirectory().SetEntry(ImageDirectoryEntryCertificate, DataDirectory{})

	for _, s := range f.sections {
		if s.PointerToRawData == 0 || s.Data == nil {
			continue
		}
		n := min(len(s.Data), int(s.SizeOfRawData))
		copy(out[s.PointerToRawData:], s.Data[:n])
	}

	out = append(out, f.extra...)
	out = append(out, make([]byte, max(paddingSize, 0))...)

	if nt.OptionalHeader().CheckSum() != 0 {
		updateChecksum(out)
	}
	return out
}
