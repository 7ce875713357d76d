package pe

type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

func (d DataDirectory) IsZero() bool { return d.VirtualAddress == 0 && d.Size == 0 }

// DataDirectoryArray is the 16 entry IMAGE_DATA_DIRECTORY table.
type DataDirectoryArray struct {
	recordArray[DataDirectory]
}

func DataDirectoryArrayFrom(bin []byte, offset int) DataDirectoryArray {
	return DataDirectoryArray{recordArray[DataDirectory]{
		v:      view{b: bin, off: offset},
		length: NumberOfDirectories,
		stride: DataDirectorySize,
		decode: func(v view) DataDirectory {
			return DataDirectory{VirtualAddress: v.u32(0), Size: v.u32(4)}
		},
		encode: func(v view, d DataDirectory) {
			v.setU32(0, d.VirtualAddress)
			v.setU32(4, d.Size)
		},
	}}
}

func (a DataDirectoryArray) Entry(e DirectoryEntry) DataDirectory       { return a.Get(int(e)) }
func (a DataDirectoryArray) SetEntry(e DirectoryEntry, d DataDirectory) { a.Set(int(e), d) }

// FindIndexByVirtualAddress returns the entry whose range contains va, or
// -1. The certificate entry holds a file offset and is never matched.
func (a DataDirectoryArray) FindIndexByVirtualAddress(va uint32) DirectoryEntry {
	for i := 0; i < a.Len(); i++ {
		if DirectoryEntry(i) == ImageDirectoryEntryCertificate {
			continue
		}
		d := a.Get(i)
		if d.Size != 0 && d.VirtualAddress <= va && va < d.VirtualAddress+d.Size {
			return DirectoryEntry(i)
		}
	}
	return -1
}
