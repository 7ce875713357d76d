package pe

import (
	"bytes"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// WinCertificateHeader is the fixed part of a WIN_CERTIFICATE record.
type WinCertificateHeader struct {
	Length          uint32 `struc:"uint32,little"`
	Revision        uint16 `struc:"uint16,little"`
	CertificateType uint16 `struc:"uint16,little"`
}

// Certificate is one entry of the attribute certificate table.
type Certificate struct {
	Header WinCertificateHeader
	Data   []byte
}

// ReadCertificates walks the certificate table of a serialized image. It
// returns nil when the image is not signed.
func ReadCertificates(bin []byte) ([]Certificate, error) {
	dd, err := certificateEntry(bin)
	if err != nil {
		return nil, err
	}
	if dd.Size == 0 {
		return nil, nil
	}
	end := int64(dd.VirtualAddress) + int64(dd.Size)
	if end > int64(len(bin)) {
		return nil, errors.Wrapf(ErrOutsideBoundary, "certificate table 0x%x+0x%x", dd.VirtualAddress, dd.Size)
	}

	var certs []Certificate
	table := bin[dd.VirtualAddress:end]
	for off := 0; off < len(table); off = roundUp(off, certificateTableAlignment) {
		var hdr WinCertificateHeader
		if err := struc.Unpack(bytes.NewReader(table[off:]), &hdr); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, errors.Wrap(ErrInvalidCertificate, err.Error())
		}
		if hdr.Length < winCertificateHeaderSize || off+int(hdr.Length) > len(table) {
			return nil, errors.Wrapf(ErrInvalidCertificate, "entry at 0x%x has length %d", off, hdr.Length)
		}
		certs = append(certs, Certificate{
			Header: hdr,
			Data:   bytes.Clone(table[off+winCertificateHeaderSize : off+int(hdr.Length)]),
		})
		off += int(hdr.Length)
	}
	return certs, nil
}

// AppendCertificate appends data as a PKCS#7 WIN_CERTIFICATE to a generated
// image and points the certificate directory at it. A non-zero checksum is
// refreshed.
func AppendCertificate(bin []byte, data []byte) ([]byte, error) {
	if _, err := certificateEntry(bin); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	hdr := WinCertificateHeader{
		Length:          uint32(winCertificateHeaderSize + len(data)),
		Revision:        WinCertRevision2_0,
		CertificateType: WinCertTypePKCSSignedData,
	}
	if err := struc.Pack(&buf, &hdr); err != nil {
		return nil, errors.WithMessage(err, "failure to pack certificate header")
	}
	buf.Write(data)
	buf.Write(make([]byte, roundUp(buf.Len(), certificateTableAlignment)-buf.Len()))

	start := roundUp(len(bin), certificateTableAlignment)
	out := make([]byte, start, start+buf.Len())
	copy(out, bin)
	out = append(out, buf.Bytes()...)

	nt := NtHeadersFrom(out, int(DOSHeaderFrom(out, 0).AddressOfNewEXEHeader()))
	nt.DataDirectory().SetEntry(ImageDirectoryEntryCertificate, DataDirectory{
		VirtualAddress: uint32(start),
		Size:           uint32(buf.Len()),
	})
	if nt.OptionalHeader().CheckSum() != 0 {
		updateChecksum(out)
	}
	return out, nil
}

// certificateEntry validates the headers of bin and returns its certificate
// directory entry.
func certificateEntry(bin []byte) (DataDirectory, error) {
	if len(bin) < DOSHeaderSize {
		return DataDirectory{}, ErrInvalidPESize
	}
	dos := DOSHeaderFrom(bin, 0)
	if !dos.IsValid() {
		return DataDirectory{}, ErrInvalidDOSSignature
	}
	nt, err := validateNtHeaders(bin, int(dos.AddressOfNewEXEHeader()))
	if err != nil {
		return DataDirectory{}, err
	}
	return nt.DataDirectory().Entry(ImageDirectoryEntryCertificate), nil
}
