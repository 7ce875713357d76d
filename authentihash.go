package pe

import (
	"cmp"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"slices"

	"github.com/pkg/errors"
)

func (f *File) AuthentihashSha512() []byte {
	return f.authentihash(sha512.New())
}
func (f *File) AuthentihashSha256() []byte {
	return f.authentihash(sha256.New())
}

func (f *File) AuthentihashSha1() []byte {
	return f.authentihash(sha1.New())
}

func (f *File) AuthentihashMd5() []byte {
	return f.authentihash(md5.New())
}

// Authentihash is the SHA-256 Authenticode digest of the generated image.
func (f *File) Authentihash() []byte {
	return f.authentihash(sha256.New())
}

func (f *File) authentihash(hasher hash.Hash) []byte {
	sum, err := Authentihash(f.Generate(0), hasher)
	if err != nil {
		return nil
	}
	return sum
}

type Range struct {
	Start uint32
	End   uint32
}

type RelRange struct {
	Start  uint32
	Length uint32
}

// Authentihash digests bin with hasher, skipping the checksum field, the
// certificate directory entry and the certificate table.
func Authentihash(bin []byte, hasher hash.Hash) ([]byte, error) {
	locations, err := headerLocations(bin)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(locations, func(a, b RelRange) int { return cmp.Compare(a.Start, b.Start) })

	ranges := make([]Range, 0, len(locations)+1)
	start := uint32(0)
	for _, r := range locations {
		ranges = append(ranges, Range{Start: start, End: r.Start})
		start = r.Start + r.Length
	}
	ranges = append(ranges, Range{Start: start, End: uint32(len(bin))})

	for _, r := range ranges {
		if r.Start < r.End {
			hasher.Write(bin[r.Start:r.End])
		}
	}
	return hasher.Sum(nil), nil
}

// headerLocations returns the ranges of bin excluded from the digest.
func headerLocations(bin []byte) ([]RelRange, error) {
	if len(bin) < DOSHeaderSize {
		return nil, ErrInvalidPESize
	}
	lfanew := DOSHeaderFrom(bin, 0).AddressOfNewEXEHeader()
	nt, err := validateNtHeaders(bin, int(lfanew))
	if err != nil {
		return nil, err
	}

	size := uint32(len(bin))
	optionalHeaderOffset := lfanew + 4 + FileHeaderSize
	sizeOfHeaders := nt.OptionalHeader().SizeOfHeaders()
	if sizeOfHeaders > size-optionalHeaderOffset {
		return nil, errors.Errorf("the optional header exceeds the file length (%d + %d > %d)",
			sizeOfHeaders, optionalHeaderOffset, size)
	}

	locations := []RelRange{{Start: lfanew + checksumOffset, Length: 4}}
	if nt.OptionalHeader().NumberOfRvaAndSizes() <= uint32(ImageDirectoryEntryCertificate) {
		return locations, nil
	}

	certBase := uint32(nt.DataDirectory().v.off) + uint32(ImageDirectoryEntryCertificate)*DataDirectorySize
	locations = append(locations, RelRange{Start: certBase, Length: DataDirectorySize})

	cert := nt.DataDirectory().Entry(ImageDirectoryEntryCertificate)
	if cert.Size == 0 {
		return locations, nil
	}
	if int64(cert.VirtualAddress) < int64(sizeOfHeaders) ||
		int64(cert.VirtualAddress)+int64(cert.Size) > int64(size) {
		return locations, nil
	}
	return append(locations, RelRange{Start: cert.VirtualAddress, Length: cert.Size}), nil
}
