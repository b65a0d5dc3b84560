package convert

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
)

// supportedExtensions maps encrypted container extensions to the service.
var supportedExtensions = map[string]struct{}{
	".ncm":   {},
	".qmc":   {},
	".qmc0":  {},
	".qmc3":  {},
	".mflac": {},
	".mgg":   {},
	".kgm":   {},
	".kgma":  {},
	".kwm":   {},
	".tm0":   {},
	".tm2":   {},
	".tm3":   {},
	".tm6":   {},
	".xm":    {},
	".x2m":   {},
	".x3m":   {},
}

// IsSupported reports whether the path carries a convertible extension.
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// SupportedExtensions returns the accepted extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedExtensions))
	for ext := range supportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// sniffLen covers the longest magic probe (ftyp at offset 4).
const sniffLen = 16

// DetectAudioExt maps a leading payload chunk to its audio extension.
// It returns "" when the bytes match no known decoded format, which for a
// supported container means the payload is still encrypted.
func DetectAudioExt(header []byte) string {
	switch {
	case bytes.HasPrefix(header, []byte("ID3")):
		return ".mp3"
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return ".mp3"
	case bytes.HasPrefix(header, []byte("fLaC")):
		return ".flac"
	case bytes.HasPrefix(header, []byte("OggS")):
		return ".ogg"
	case bytes.HasPrefix(header, []byte("RIFF")):
		return ".wav"
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return ".m4a"
	default:
		return ""
	}
}
