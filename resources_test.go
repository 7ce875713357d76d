package pe

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateResourceData_Empty(t *testing.T) {
	r := &Resource{}
	bin, rawSize, err := r.GenerateResourceData(0x3000, 0x200, false, true)
	require.NoError(t, err)

	assert.Equal(t, uint32(resourceDirectoryTableSize), rawSize)
	require.Len(t, bin, 0x200)
	assert.Equal(t, make([]byte, resourceDirectoryTableSize), bin[:resourceDirectoryTableSize])
	assert.Equal(t, "PADDINGX", string(bin[16:24]))
	assert.Equal(t, "PADDINGX", string(bin[0x1f8:]))
}

func TestGenerateResourceData_Layout(t *testing.T) {
	r := &Resource{
		DateTime:     0x12345678,
		MajorVersion: 4,
		Entries: []ResourceEntry{
			{Type: RTRCData.Key(), ID: IDKey(2), Lang: IDKey(1033), Data: []byte("defgh")},
			{Type: RTRCData.Key(), ID: IDKey(1), Lang: IDKey(1033), Codepage: 1252, Data: []byte("abc")},
		},
	}
	bin, rawSize, err := r.GenerateResourceData(0x5000, 8, false, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(147), rawSize)
	require.Len(t, bin, 152)

	u16 := func(off int) uint16 { return binary.LittleEndian.Uint16(bin[off:]) }
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(bin[off:]) }

	// Root table with the only type.
	assert.Equal(t, uint32(0x12345678), u32(4))
	assert.Equal(t, uint16(4), u16(8))
	assert.Equal(t, uint16(0), u16(12))
	assert.Equal(t, uint16(1), u16(14))
	assert.Equal(t, uint32(RTRCData), u32(16))
	assert.Equal(t, uint32(24)|resourceDataIsDirectory, u32(20))

	// Name table; ids are sorted.
	assert.Equal(t, uint32(0), u32(24+4))
	assert.Equal(t, uint16(2), u16(24+14))
	assert.Equal(t, uint32(1), u32(40))
	assert.Equal(t, uint32(56)|resourceDataIsDirectory, u32(44))
	assert.Equal(t, uint32(2), u32(48))
	assert.Equal(t, uint32(80)|resourceDataIsDirectory, u32(52))

	// Language tables point at the data entries in input order.
	assert.Equal(t, uint32(1033), u32(72))
	assert.Equal(t, uint32(120), u32(76))
	assert.Equal(t, uint32(1033), u32(96))
	assert.Equal(t, uint32(104), u32(100))

	assert.Equal(t, []uint32{0x5000 + 136, 5, 0, 0}, []uint32{u32(104), u32(108), u32(112), u32(116)})
	assert.Equal(t, []uint32{0x5000 + 144, 3, 1252, 0}, []uint32{u32(120), u32(124), u32(128), u32(132)})
	assert.Equal(t, "defgh", string(bin[136:141]))
	assert.Equal(t, make([]byte, 3), bin[141:144])
	assert.Equal(t, "abc", string(bin[144:147]))
	assert.Equal(t, "PADDI", string(bin[147:152]))
}

func TestGenerateResourceData_SharedStrings(t *testing.T) {
	r := &Resource{Entries: []ResourceEntry{
		{Type: NameKey("X"), ID: NameKey("X"), Lang: IDKey(0), Data: []byte("a")},
	}}
	bin, rawSize, err := r.GenerateResourceData(0, 0, false, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(97), rawSize)
	assert.Len(t, bin, 97)

	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(bin[off:]) }
	assert.Equal(t, uint32(72)|resourceNameIsString, u32(16))
	assert.Equal(t, uint32(72)|resourceNameIsString, u32(24+16))
	s, ok := readResourceString(view{b: bin}, 72)
	require.True(t, ok)
	assert.Equal(t, "X", s)
}

func TestGenerateResourceData_Duplicates(t *testing.T) {
	r := &Resource{Entries: []ResourceEntry{
		{Type: RTIcon.Key(), ID: IDKey(1), Lang: IDKey(0), Data: []byte("old")},
		{Type: RTIcon.Key(), ID: IDKey(2), Lang: IDKey(0), Data: []byte("other")},
		{Type: RTIcon.Key(), ID: IDKey(1), Lang: IDKey(0), Data: []byte("new")},
	}}
	bin, _, err := r.GenerateResourceData(testSectionAlign, testFileAlign, false, true)
	require.NoError(t, err)

	f := mustParse(t, testImage{sections: []testSection{
		{name: ".rsrc", data: bin, entry: ImageDirectoryEntryResource},
	}}.build(t), nil)
	got, err := ParseResource(f)
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, []byte("new"), got.Entry(RTIcon.Key(), IDKey(1), IDKey(0)).Data)
}

func TestGenerateResourceData_Size(t *testing.T) {
	f := mustParse(t, testDLL(false).build(t), nil)
	r, err := ParseResource(f)
	require.NoError(t, err)
	require.Equal(t, 0x400, r.originalSize)

	small := &Resource{originalSize: r.originalSize}
	bin, _, err := small.GenerateResourceData(0x3000, testFileAlign, false, false)
	require.NoError(t, err)
	assert.Len(t, bin, 0x400)

	bin, _, err = small.GenerateResourceData(0x3000, testFileAlign, true, true)
	require.NoError(t, err)
	assert.Len(t, bin, 0x200)

	r.ReplaceResourceEntry(ResourceEntry{Type: RTRCData.Key(), ID: IDKey(7), Lang: IDKey(0), Data: make([]byte, 0x1000)})
	_, _, err = r.GenerateResourceData(0x3000, testFileAlign, true, false)
	assert.ErrorIs(t, err, ErrResourceGrow)

	bin, _, err = r.GenerateResourceData(0x3000, testFileAlign, false, false)
	require.NoError(t, err)
	assert.Len(t, bin, 0x1400)
}

func TestParseResource(t *testing.T) {
	f := mustParse(t, testDLL(true).build(t), nil)
	r, err := ParseResource(f)
	require.NoError(t, err)

	assert.Equal(t, uint32(0x5f000000), r.DateTime)
	assert.Equal(t, uint16(4), r.MajorVersion)
	assert.ElementsMatch(t, testEntries(), r.Entries)
	require.NotNil(t, r.SectionHeader)
	assert.Equal(t, ".rsrc", r.SectionHeader.Name)

	// Named keys come first at every level.
	assert.Equal(t, NameKey("TYPELIB"), r.Entries[0].Type)
}

func TestParseResource_NoResources(t *testing.T) {
	f := mustParse(t, testImage{sections: []testSection{
		{name: ".text", data: pattern(0x20, 1), entry: noEntry},
	}}.build(t), nil)
	r, err := ParseResource(f)
	require.NoError(t, err)
	assert.Empty(t, r.Entries)
	assert.Nil(t, r.SectionHeader)
}

func TestParseResource_Errors(t *testing.T) {
	tooMany := make([]byte, 0x40)
	binary.LittleEndian.PutUint16(tooMany[14:], maxAllowedEntries+1)

	tests := []struct {
		name     string
		sections []testSection
		wantErr  error
	}{
		{
			name: "section after resources",
			sections: []testSection{
				{name: ".rsrc", gen: testResourceData(testEntries()), entry: ImageDirectoryEntryResource},
				{name: ".data", data: pattern(0x20, 1), entry: noEntry},
			},
			wantErr: ErrUnsupportedSectionOrder,
		},
		{
			name: "too many entries",
			sections: []testSection{
				{name: ".rsrc", data: tooMany, entry: ImageDirectoryEntryResource},
			},
			wantErr: ErrOutsideBoundary,
		},
		{
			name: "data outside section",
			sections: []testSection{
				{name: ".rsrc", gen: func(uint32) []byte { return testResourceData(testEntries())(0) }, entry: ImageDirectoryEntryResource},
			},
			wantErr: ErrOutsideBoundary,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustParse(t, testImage{sections: tt.sections}.build(t), nil)
			_, err := ParseResource(f)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOutputResource(t *testing.T) {
	tests := []struct {
		name      string
		extra     []byte
		wantReloc uint32
	}{
		{name: "same size", wantReloc: 0x4000},
		{name: "grow", extra: make([]byte, 0x1800), wantReloc: 0x5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustParse(t, testDLL(false).build(t), nil)
			reloc := f.SectionByEntry(ImageDirectoryEntryBaseReLoc)
			r, err := ParseResource(f)
			require.NoError(t, err)

			r.ReplaceResourceEntry(ResourceEntry{Type: RTManifest.Key(), ID: IDKey(2), Lang: IDKey(1033), Data: []byte("<assembly></assembly>")})
			if tt.extra != nil {
				r.ReplaceResourceEntry(ResourceEntry{Type: RTRCData.Key(), ID: NameKey("BLOB"), Lang: IDKey(0), Data: tt.extra})
			}
			want := append([]ResourceEntry(nil), r.Entries...)
			require.NoError(t, r.OutputResource(f, false, false))
			assert.Equal(t, uint32(0x3000), r.SectionHeader.VirtualAddress)

			g := mustParse(t, f.Generate(0), nil)
			got, err := ParseResource(g)
			require.NoError(t, err)
			assert.ElementsMatch(t, want, got.Entries)

			moved := g.SectionByEntry(ImageDirectoryEntryBaseReLoc)
			require.NotNil(t, moved)
			assert.Equal(t, tt.wantReloc, moved.VirtualAddress)
			assert.Equal(t, reloc.Data, moved.Data)
		})
	}
}

func TestOutputResource_NoGrow(t *testing.T) {
	bin := testDLL(false).build(t)
	f := mustParse(t, bin, nil)
	r, err := ParseResource(f)
	require.NoError(t, err)

	r.ReplaceResourceEntry(ResourceEntry{Type: RTRCData.Key(), ID: IDKey(9), Lang: IDKey(0), Data: make([]byte, 0x800)})
	assert.ErrorIs(t, r.OutputResource(f, true, false), ErrResourceGrow)
	assert.Equal(t, bin, f.Generate(0))
}

func TestOutputResource_NewSection(t *testing.T) {
	f := mustParse(t, testImage{sections: []testSection{
		{name: ".text", data: pattern(0x20, 1), entry: noEntry},
	}}.build(t), nil)
	r, err := ParseResource(f)
	require.NoError(t, err)

	r.ReplaceResourceEntryFromString(RTHtml.Key(), NameKey("INDEX"), IDKey(1033), "<html/>")
	require.NoError(t, r.OutputResource(f, false, true))

	g := mustParse(t, f.Generate(0), nil)
	rsrc := g.SectionByEntry(ImageDirectoryEntryResource)
	require.NotNil(t, rsrc)
	assert.Equal(t, ".rsrc", rsrc.Name)
	assert.Equal(t, uint32(0x2000), rsrc.VirtualAddress)

	got, err := ParseResource(g)
	require.NoError(t, err)
	assert.Equal(t, []ResourceString{{Lang: IDKey(1033), Value: "<html/>"}},
		got.ResourceEntriesAsString(RTHtml.Key(), NameKey("INDEX")))
}

func TestResource_Entries(t *testing.T) {
	r := &Resource{Entries: testEntries()}

	e := r.Entry(RTIcon.Key(), IDKey(1), NameKey("neutral"))
	require.NotNil(t, e)
	e.Data[0] ^= 0xff
	assert.NotEqual(t, e.Data[0], r.Entries[3].Data[0])
	assert.Nil(t, r.Entry(RTIcon.Key(), IDKey(1), IDKey(0)))

	r.ReplaceResourceEntry(ResourceEntry{Type: RTManifest.Key(), ID: IDKey(2), Lang: IDKey(1033), Data: []byte("x")})
	require.Len(t, r.Entries, 4)
	assert.Equal(t, []byte("x"), r.Entries[1].Data)

	assert.True(t, r.RemoveResourceEntry(RTManifest.Key(), IDKey(2), IDKey(1033)))
	assert.False(t, r.RemoveResourceEntry(RTManifest.Key(), IDKey(2), IDKey(1033)))

	r.ReplaceResourceEntry(ResourceEntry{Type: RTVersion.Key(), ID: IDKey(1), Lang: IDKey(1031)})
	assert.Equal(t, 2, r.RemoveResourceEntries(RTVersion.Key(), IDKey(1)))
	assert.Len(t, r.Entries, 2)
}

func TestResource_Strings(t *testing.T) {
	r := &Resource{Entries: []ResourceEntry{
		{Type: NameKey("TEXT"), ID: IDKey(1), Lang: IDKey(1033), Codepage: 1200, Data: encodeUTF16("hello\x00\x00")},
		{Type: NameKey("TEXT"), ID: IDKey(1), Lang: IDKey(1031), Data: encodeUTF16("hallo")},
	}}
	assert.Equal(t, []ResourceString{
		{Lang: IDKey(1033), Value: "hello"},
		{Lang: IDKey(1031), Value: "hallo"},
	}, r.ResourceEntriesAsString(NameKey("TEXT"), IDKey(1)))

	r.ReplaceResourceEntryFromString(NameKey("TEXT"), IDKey(1), IDKey(1033), "hi \U0001F600")
	e := r.Entry(NameKey("TEXT"), IDKey(1), IDKey(1033))
	require.NotNil(t, e)
	assert.Equal(t, uint32(1200), e.Codepage)
	assert.Len(t, e.Data, 2*5)
}

func TestResourceString(t *testing.T) {
	bin := make([]byte, 16)
	v := view{b: bin}

	end := writeResourceString(v, 2, "a\U0001F600")
	assert.Equal(t, 2+resourceStringSize("a\U0001F600"), end)
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(bin[2:]))

	s, ok := readResourceString(v, 2)
	require.True(t, ok)
	assert.Equal(t, "a\U0001F600", s)

	_, ok = readResourceString(v, 15)
	assert.False(t, ok)
	binary.LittleEndian.PutUint16(bin[0:], 100)
	_, ok = readResourceString(v, 0)
	assert.False(t, ok)
}

func TestCompareResourceKeys(t *testing.T) {
	tests := []struct {
		a, b ResourceKey
		want int
	}{
		{NameKey("B"), IDKey(1), -1},
		{IDKey(1), NameKey("A"), 1},
		{NameKey("B"), NameKey("a"), -1},
		{NameKey("AB"), NameKey("A"), 1},
		{IDKey(3), IDKey(16), -1},
		{IDKey(16), IDKey(16), 0},
	}
	for _, tt := range tests {
		t.Run(tt.a.String()+"_"+tt.b.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, compareResourceKeys(tt.a, tt.b))
		})
	}
}

func TestGetResourceTypeName(t *testing.T) {
	assert.Equal(t, "RT_MANIFEST", GetResourceTypeName(RTManifest.Key()))
	assert.Equal(t, "?", GetResourceTypeName(IDKey(99)))
	assert.Equal(t, "TYPELIB", GetResourceTypeName(NameKey("TYPELIB")))
}

func TestGenerateResourceData_InvalidID(t *testing.T) {
	tests := []struct {
		name    string
		entry   ResourceEntry
		wantErr error
	}{
		{
			name:  "largest id",
			entry: ResourceEntry{Type: IDKey(resourceIDMax), ID: IDKey(resourceIDMax), Lang: IDKey(resourceIDMax)},
		},
		{
			name:    "type with flag bit",
			entry:   ResourceEntry{Type: IDKey(0x80000010), ID: IDKey(1), Lang: IDKey(0)},
			wantErr: ErrInvalidResourceKey,
		},
		{
			name:    "id above 16 bits",
			entry:   ResourceEntry{Type: RTRCData.Key(), ID: IDKey(0x10000), Lang: IDKey(0)},
			wantErr: ErrInvalidResourceKey,
		},
		{
			name:    "language with flag bit",
			entry:   ResourceEntry{Type: RTRCData.Key(), ID: NameKey("X"), Lang: IDKey(0x80000409)},
			wantErr: ErrInvalidResourceKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.entry.Data = []byte("data")
			r := &Resource{Entries: []ResourceEntry{tt.entry}}
			bin, _, err := r.GenerateResourceData(testSectionAlign, testFileAlign, false, true)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, bin)
				return
			}
			require.NoError(t, err)

			f := mustParse(t, testImage{sections: []testSection{
				{name: ".rsrc", data: bin, entry: ImageDirectoryEntryResource},
			}}.build(t), nil)
			got, err := ParseResource(f)
			require.NoError(t, err)
			assert.Equal(t, []ResourceEntry{tt.entry}, got.Entries)
		})
	}
}
