package naming

import (
	"fmt"
	"strings"
)

// Format selects how output filenames are composed from parsed metadata.
type Format string

const (
	// FormatAuto keeps the layout detected in the source filename.
	FormatAuto Format = "auto"
	// FormatTitleArtist forces "Title - Artist".
	FormatTitleArtist Format = "title-artist"
	// FormatArtistTitle forces "Artist - Title".
	FormatArtistTitle Format = "artist-title"
	// FormatOriginal reuses the source stem unchanged.
	FormatOriginal Format = "original"
)

// ParseFormat validates a format string from config or the wire.
// The empty string maps to FormatAuto.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return FormatAuto, nil
	case FormatAuto:
		return FormatAuto, nil
	case FormatTitleArtist:
		return FormatTitleArtist, nil
	case FormatArtistTitle:
		return FormatArtistTitle, nil
	case FormatOriginal:
		return FormatOriginal, nil
	default:
		return "", fmt.Errorf("unknown naming format %q", value)
	}
}

func (f Format) String() string {
	return string(f)
}
