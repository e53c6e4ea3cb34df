package container

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Method selects the compression applied to newly written entries.
type Method string

const (
	// MethodDeflate is the zip default.
	MethodDeflate Method = "deflate"
	// MethodStore writes entries uncompressed.
	MethodStore Method = "store"
	// MethodZstd writes entries with zstd (WinZip method 93).
	MethodZstd Method = "zstd"
)

// ParseMethod parses a compression method name. The empty string selects
// MethodDeflate.
func ParseMethod(name string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(name))) {
	case "", MethodDeflate:
		return MethodDeflate, nil
	case MethodStore:
		return MethodStore, nil
	case MethodZstd:
		return MethodZstd, nil
	default:
		return "", fmt.Errorf("unknown compression method %q (valid: deflate, store, zstd)", name)
	}
}

// String implements fmt.Stringer.
func (m Method) String() string {
	return string(m)
}

// zipMethod maps a Method to its zip header method id.
func (m Method) zipMethod() uint16 {
	switch m {
	case MethodStore:
		return zip.Store
	case MethodZstd:
		return zstd.ZipMethodWinZip
	default:
		return zip.Deflate
	}
}
