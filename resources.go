package pe

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/pkg/errors"
)

type (
	ImageResourceDirectory struct {
		Characteristics      uint32
		TimeDateStamp        uint32
		MajorVersion         uint16
		MinorVersion         uint16
		NumberOfNamedEntries uint16
		NumberOfIDEntries    uint16
	}

	ImageResourceDirectoryEntry struct {
		Name         uint32
		OffsetToData uint32
	}

	ImageResourceDataEntry struct {
		OffsetToData uint32
		Size         uint32
		CodePage     uint32
		Reserved     uint32
	}
)

// ResourceEntry is one leaf of the resource tree. (Type, ID, Lang) is
// unique within a Resource.
type ResourceEntry struct {
	Type     ResourceKey
	ID       ResourceKey
	Lang     ResourceKey
	Codepage uint32
	Data     []byte
}

func (e ResourceEntry) sameKey(typ, id, lang ResourceKey) bool {
	return e.Type == typ && e.ID == id && e.Lang == lang
}

// Resource is the flat form of an image's resource directory.
type Resource struct {
	DateTime     uint32
	MajorVersion uint16
	MinorVersion uint16
	Entries      []ResourceEntry

	// SectionHeader is the header of the resource section the entries came
	// from, reused by OutputResource. Addresses and sizes are ignored.
	SectionHeader *SectionHeader

	originalSize int
}

// ParseResource reads the resource directory of f. An image without
// resources yields an empty Resource.
func ParseResource(f *File) (*Resource, error) {
	r := &Resource{}
	section := f.SectionByEntry(ImageDirectoryEntryResource)
	if section == nil {
		return r, nil
	}
	if err := checkResourceSectionOrder(f, section); err != nil {
		return nil, err
	}

	sh := section.SectionHeader
	r.SectionHeader = &sh
	r.originalSize = len(section.Data)
	if section.Data == nil {
		return r, nil
	}

	dd := f.DataDirectory().Entry(ImageDirectoryEntryResource)
	p := resourceParser{
		data: section.Data,
		root: int(dd.VirtualAddress - section.VirtualAddress),
		va:   section.VirtualAddress,
	}
	if err := p.parse(r); err != nil {
		return nil, err
	}
	return r, nil
}

// checkResourceSectionOrder rejects images where a section other than the
// base relocation one follows the resource section in memory.
func checkResourceSectionOrder(f *File, rsrc *Section) error {
	reloc := f.SectionByEntry(ImageDirectoryEntryBaseReLoc)
	sections := f.Sections()
	slices.SortStableFunc(sections, func(a, b *Section) int {
		return int(int64(a.VirtualAddress) - int64(b.VirtualAddress))
	})
	after := false
	for _, s := range sections {
		if after {
			if reloc == nil || s.VirtualAddress != reloc.VirtualAddress {
				return errors.Wrapf(ErrUnsupportedSectionOrder, "section %q follows %q", s.Name, rsrc.Name)
			}
			continue
		}
		after = s.VirtualAddress == rsrc.VirtualAddress
	}
	return nil
}

type resourceParser struct {
	data []byte
	root int
	va   uint32
}

func (p *resourceParser) structUnpack(iface interface{}, offset, size int) error {
	if offset < 0 || size < 0 || offset+size > len(p.data) {
		return ErrOutsideBoundary
	}
	return binary.Read(bytes.NewReader(p.data[offset:offset+size]), binary.LittleEndian, iface)
}

type resourceTableEntry struct {
	key    ResourceKey
	offset uint32
	isDir  bool
}

// readTable reads the directory table at off (relative to the root).
func (p *resourceParser) readTable(off uint32) (ImageResourceDirectory, []resourceTableEntry, error) {
	var dir ImageResourceDirectory
	base := p.root + int(off)
	if err := p.structUnpack(&dir, base, resourceDirectoryTableSize); err != nil {
		return dir, nil, errors.Wrapf(err, "resource directory table at 0x%x", off)
	}

	named := int(dir.NumberOfNamedEntries)
	total := named + int(dir.NumberOfIDEntries)
	if total > maxAllowedEntries {
		return dir, nil, errors.Wrapf(ErrOutsideBoundary, "resource directory table at 0x%x has %d entries", off, total)
	}

	entries := make([]resourceTableEntry, 0, total)
	for i := 0; i < total; i++ {
		var res ImageResourceDirectoryEntry
		at := base + resourceDirectoryTableSize + i*resourceDirectoryEntrySize
		if err := p.structUnpack(&res, at, resourceDirectoryEntrySize); err != nil {
			return dir, nil, errors.Wrapf(err, "resource directory entry at 0x%x", at)
		}

		e := resourceTableEntry{
			offset: res.OffsetToData & resourceOffsetMask,
			isDir:  res.OffsetToData&resourceDataIsDirectory != 0,
		}
		if i < named {
			name, ok := readResourceString(view{b: p.data, off: p.root}, int(res.Name&resourceOffsetMask))
			if !ok {
				return dir, nil, errors.Wrapf(ErrOutsideBoundary, "resource name at 0x%x", res.Name&resourceOffsetMask)
			}
			e.key = NameKey(name)
		} else {
			e.key = IDKey(res.Name & resourceOffsetMask)
		}
		entries = append(entries, e)
	}
	return dir, entries, nil
}

func (p *resourceParser) parse(r *Resource) error {
	root, types, err := p.readTable(0)
	if err != nil {
		return err
	}
	r.DateTime = root.TimeDateStamp
	r.MajorVersion = root.MajorVersion
	r.MinorVersion = root.MinorVersion

	for _, t := range types {
		if !t.isDir {
			continue
		}
		_, names, err := p.readTable(t.offset)
		if err != nil {
			return err
		}
		for _, n := range names {
			if !n.isDir {
				continue
			}
			_, langs, err := p.readTable(n.offset)
			if err != nil {
				return err
			}
			for _, l := range langs {
				if l.isDir {
					continue
				}
				e, err := p.readLeaf(l.offset)
				if err != nil {
					return err
				}
				e.Type, e.ID, e.Lang = t.key, n.key, l.key
				r.Entries = append(r.Entries, e)
			}
		}
	}
	return nil
}

func (p *resourceParser) readLeaf(off uint32) (ResourceEntry, error) {
	var de ImageResourceDataEntry
	if err := p.structUnpack(&de, p.root+int(off), resourceDataEntrySize); err != nil {
		return ResourceEntry{}, errors.Wrap(err, "Error parsing a resource directory data entry, the RVA is invalid")
	}
	start := int64(de.OffsetToData) - int64(p.va)
	if start < 0 || start+int64(de.Size) > int64(len(p.data)) {
		return ResourceEntry{}, errors.Wrapf(ErrOutsideBoundary, "resource data at RVA 0x%x size 0x%x", de.OffsetToData, de.Size)
	}
	return ResourceEntry{
		Codepage: de.CodePage,
		Data:     bytes.Clone(p.data[start : start+int64(de.Size)]),
	}, nil
}

// Entry returns a copy of the entry keyed by (typ, id, lang), or nil.
func (r *Resource) Entry(typ, id, lang ResourceKey) *ResourceEntry {
	for _, e := range r.Entries {
		if e.sameKey(typ, id, lang) {
			e.Data = bytes.Clone(e.Data)
			return &e
		}
	}
	return nil
}

// ReplaceResourceEntry stores a copy of e, replacing the entry with the
// same key in place or appending it.
func (r *Resource) ReplaceResourceEntry(e ResourceEntry) {
	e.Data = bytes.Clone(e.Data)
	for i := range r.Entries {
		if r.Entries[i].sameKey(e.Type, e.ID, e.Lang) {
			r.Entries[i] = e
			return
		}
	}
	r.Entries = append(r.Entries, e)
}

// RemoveResourceEntry deletes the entry keyed by (typ, id, lang) and reports
// whether it existed.
func (r *Resource) RemoveResourceEntry(typ, id, lang ResourceKey) bool {
	n := len(r.Entries)
	r.Entries = slices.DeleteFunc(r.Entries, func(e ResourceEntry) bool {
		return e.sameKey(typ, id, lang)
	})
	return len(r.Entries) != n
}

// RemoveResourceEntries deletes every language of (typ, id) and returns how
// many entries were removed.
func (r *Resource) RemoveResourceEntries(typ, id ResourceKey) int {
	n := len(r.Entries)
	r.Entries = slices.DeleteFunc(r.Entries, func(e ResourceEntry) bool {
		return e.Type == typ && e.ID == id
	})
	return n - len(r.Entries)
}

// uniqueEntries keeps the last entry of each key, in first appearance order.
func (r *Resource) uniqueEntries() []ResourceEntry {
	out := make([]ResourceEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if i := slices.IndexFunc(out, func(o ResourceEntry) bool { return o.sameKey(e.Type, e.ID, e.Lang) }); i >= 0 {
			out[i] = e
			continue
		}
		out = append(out, e)
	}
	return out
}

// resourceNode is one table entry of the tree being generated. Leaves refer
// to an entry index.
type resourceNode struct {
	key      ResourceKey
	children []*resourceNode
	entry    int
	offset   int
}

func (n *resourceNode) tableSize() int {
	return resourceDirectoryTableSize + resourceDirectoryEntrySize*len(n.children)
}

// buildResourceLevel groups the entries in idx by their key at level (0
// type, 1 id, 2 language). Named children sort before numbered ones. It
// returns the nodes and the size of their tables, and collects key names.
func buildResourceLevel(entries []ResourceEntry, idx []int, level int, names *[]string) ([]*resourceNode, int) {
	keyOf := func(e ResourceEntry) ResourceKey {
		switch level {
		case 0:
			return e.Type
		case 1:
			return e.ID
		default:
			return e.Lang
		}
	}

	var nodes []*resourceNode
	groups := map[ResourceKey][]int{}
	for _, i := range idx {
		k := keyOf(entries[i])
		if k.IsName() {
			*names = append(*names, k.Name())
		}
		if _, ok := groups[k]; !ok {
			nodes = append(nodes, &resourceNode{key: k, entry: -1})
		}
		groups[k] = append(groups[k], i)
	}
	slices.SortFunc(nodes, func(a, b *resourceNode) int { return compareResourceKeys(a.key, b.key) })

	size := resourceDirectoryTableSize + resourceDirectoryEntrySize*len(nodes)
	for _, n := range nodes {
		if level == 2 {
			n.entry = groups[n.key][0]
			continue
		}
		var childSize int
		n.children, childSize = buildResourceLevel(entries, groups[n.key], level+1, names)
		size += childSize
	}
	return nodes, size
}

type resourceLayout struct {
	bin        []byte
	rawSize    int
	descOffset int
	count      int
}

// GenerateResourceData lays out the resource tree for a section mapped at
// virtualAddress. The result is padded to alignment. With noGrow it fails if
// the aligned size exceeds the original section; unless allowShrink it never
// returns less than the original aligned size. rawSize is the size before
// padding.
func (r *Resource) GenerateResourceData(virtualAddress, alignment uint32, noGrow, allowShrink bool) ([]byte, uint32, error) {
	l, err := r.generate(virtualAddress, alignment, noGrow, allowShrink)
	if err != nil {
		return nil, 0, err
	}
	return l.bin, uint32(l.rawSize), nil
}

func (r *Resource) generate(virtualAddress, alignment uint32, noGrow, allowShrink bool) (resourceLayout, error) {
	entries := r.uniqueEntries()
	for _, e := range entries {
		for _, k := range []ResourceKey{e.Type, e.ID, e.Lang} {
			if !k.IsName() && k.ID() > resourceIDMax {
				return resourceLayout{}, errors.Wrapf(ErrInvalidResourceKey,
					"entry %s/%s/%s has id 0x%x", e.Type, e.ID, e.Lang, k.ID())
			}
		}
	}
	idx := make([]int, len(entries))
	for i := range idx {
		idx[i] = i
	}

	var names []string
	root := &resourceNode{entry: -1}
	var size int
	root.children, size = buildResourceLevel(entries, idx, 0, &names)
	names = compactStrings(names)

	stringsOffset := size
	for _, s := range names {
		size += resourceStringSize(s)
	}
	size = roundUp(size, resourceDataAlignment)
	descOffset := size
	size += resourceDataEntrySize * len(entries)
	dataOffset := size
	for _, e := range entries {
		size = roundUp(size, resourceDataAlignment) + len(e.Data)
	}

	align := int(alignment)
	alignedSize := roundUp(size, align)
	previous := roundUp(r.originalSize, align)
	if noGrow && alignedSize > previous {
		return resourceLayout{}, errors.Wrapf(ErrResourceGrow, "need 0x%x bytes, have 0x%x", alignedSize, previous)
	}
	if !allowShrink && alignedSize < previous {
		alignedSize = previous
	}

	bin := make([]byte, alignedSize)
	v := view{b: bin}

	pos := dataOffset
	for i, e := range entries {
		pos = roundUp(pos, resourceDataAlignment)
		desc := v.at(descOffset + i*resourceDataEntrySize)
		desc.setU32(0, virtualAddress+uint32(pos))
		desc.setU32(4, uint32(len(e.Data)))
		desc.setU32(8, e.Codepage)
		desc.setU32(12, 0)
		copy(bin[pos:], e.Data)
		pos += len(e.Data)
	}

	pool := make(map[string]int, len(names))
	o := stringsOffset
	for _, s := range names {
		pool[s] = o
		o = writeResourceString(v, o, s)
	}

	w := resourceWriter{v: v, pool: pool, descOffset: descOffset}
	if err := w.writeTypeTable(root, r); err != nil {
		return resourceLayout{}, err
	}

	const pad = "PADDINGX"
	for i, j := size, 0; i < alignedSize; i, j = i+1, (j+1)%len(pad) {
		bin[i] = pad[j]
	}

	return resourceLayout{bin: bin, rawSize: size, descOffset: descOffset, count: len(entries)}, nil
}

// compactStrings drops repeated strings keeping the first occurrence.
func compactStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

type resourceWriter struct {
	v          view
	pool       map[string]int
	descOffset int
}

func (w resourceWriter) keyField(k ResourceKey) (uint32, error) {
	if !k.IsName() {
		return k.ID(), nil
	}
	off, ok := w.pool[k.Name()]
	if !ok {
		return 0, errors.Wrapf(ErrInternal, "resource name %q missing from string pool", k.Name())
	}
	return uint32(off) | resourceNameIsString, nil
}

func (w resourceWriter) writeHeader(off int, n *resourceNode, r *Resource) {
	h := w.v.at(off)
	h.setU32(0, 0)
	var named uint16
	for _, c := range n.children {
		if c.key.IsName() {
			named++
		}
	}
	if r != nil {
		h.setU32(4, r.DateTime)
		h.setU16(8, r.MajorVersion)
		h.setU16(10, r.MinorVersion)
	}
	h.setU16(12, named)
	h.setU16(14, uint16(len(n.children))-named)
}

func (w resourceWriter) writeEntry(off int, k ResourceKey, target uint32) error {
	key, err := w.keyField(k)
	if err != nil {
		return err
	}
	w.v.setU32(off, key)
	w.v.setU32(off+4, target)
	return nil
}

// writeTypeTable writes the root table, then every name table, then the
// language tables of each type in order.
func (w resourceWriter) writeTypeTable(root *resourceNode, r *Resource) error {
	w.writeHeader(0, root, r)
	next := root.tableSize()
	for _, t := range root.children {
		t.offset = next
		next += t.tableSize()
	}
	for i, t := range root.children {
		if err := w.writeEntry(resourceDirectoryTableSize+i*resourceDirectoryEntrySize, t.key, uint32(t.offset)|resourceDataIsDirectory); err != nil {
			return err
		}
		var err error
		if next, err = w.writeNameTable(t, next); err != nil {
			return err
		}
	}
	return nil
}

func (w resourceWriter) writeNameTable(n *resourceNode, next int) (int, error) {
	w.writeHeader(n.offset, n, nil)
	for _, c := range n.children {
		c.offset = next
		if err := w.writeLanguageTable(c); err != nil {
			return 0, err
		}
		next += c.tableSize()
	}
	for i, c := range n.children {
		if err := w.writeEntry(n.offset+resourceDirectoryTableSize+i*resourceDirectoryEntrySize, c.key, uint32(c.offset)|resourceDataIsDirectory); err != nil {
			return 0, err
		}
	}
	return next, nil
}

func (w resourceWriter) writeLanguageTable(n *resourceNode) error {
	w.writeHeader(n.offset, n, nil)
	for i, c := range n.children {
		desc := uint32(w.descOffset + c.entry*resourceDataEntrySize)
		if err := w.writeEntry(n.offset+resourceDirectoryTableSize+i*resourceDirectoryEntrySize, c.key, desc); err != nil {
			return err
		}
	}
	return nil
}

// OutputResource writes the entries into f as its resource section. The
// section is generated at address 0, placed by SetSectionByEntry, and the
// data entry RVAs are then rebased onto the assigned address.
func (r *Resource) OutputResource(f *File, noGrow, allowShrink bool) error {
	sh := SectionHeader{
		Name:            ".rsrc",
		Characteristics: ImageScnCntInitializedData | ImageScnMemRead,
	}
	if r.SectionHeader != nil {
		sh = *r.SectionHeader
	}

	l, err := r.generate(0, f.FileAlignment(), noGrow, allowShrink)
	if err != nil {
		return err
	}

	sh.VirtualAddress, sh.PointerToRawData = 0, 0
	sh.VirtualSize = uint32(l.rawSize)
	sh.SizeOfRawData = uint32(len(l.bin))
	if err := f.SetSectionByEntry(ImageDirectoryEntryResource, &Section{SectionHeader: sh, Data: l.bin}); err != nil {
		return err
	}

	dd := f.DataDirectory().Entry(ImageDirectoryEntryResource)
	i := f.sectionIndexByRva(dd.VirtualAddress)
	if i < 0 {
		return errors.Wrap(ErrInternal, "resource section vanished after placement")
	}
	placed := f.sections[i]
	v := view{b: placed.Data}
	for j := 0; j < l.count; j++ {
		off := l.descOffset + j*resourceDataEntrySize
		v.setU32(off, v.u32(off)+placed.VirtualAddress)
	}

	placedHeader := placed.SectionHeader
	r.SectionHeader = &placedHeader
	r.originalSize = len(placed.Data)
	return nil
}
