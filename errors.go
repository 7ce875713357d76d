package pe

import "github.com/pkg/errors"

var (
	ErrInvalidPESize           = errors.New("not a PE file, smaller than tiny PE")
	ErrInvalidDOSSignature     = errors.New("invalid PE file signature")
	ErrInvalidNewHeaderAddress = errors.New("invalid e_lfanew value. Probably not a PE file")
	ErrInvalidNtSignature      = errors.New("not a valid PE signature. Magic not found")
	ErrInvalidOptionalHeader   = errors.New("invalid optional header")
	ErrSymbolsPresent          = errors.New("images with COFF symbols are not supported")
	ErrSignedImage             = errors.New("image is signed; parse with IgnoreCert to drop the signature")
)

var (
	ErrOutsideBoundary         = errors.New("reading data outside boundary")
	ErrInvalidCertificate      = errors.New("invalid certificate table")
	ErrNoHeaderSpace           = errors.New("no room left in the headers for another section header")
	ErrUnsupportedSectionOrder = errors.New("only the base relocation section may follow the resource section")
	ErrResourceGrow            = errors.New("new resource data is larger than the original")
	ErrInvalidResourceKey      = errors.New("resource id does not fit in 16 bits")
	ErrInternal                = errors.New("internal error")
)
