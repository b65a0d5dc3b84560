package naming

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// OutputName composes the converted file's name from the source filename and
// the decoded audio extension (with leading dot). The result is NFC
// normalized so names decompose identically across filesystems.
func OutputName(format Format, inputFilename, audioExt string) string {
	stem := strings.TrimSuffix(inputFilename, path.Ext(inputFilename))

	var name string
	switch format {
	case FormatOriginal:
		name = stem + audioExt
	case FormatTitleArtist:
		name = composeName(SmartParse(inputFilename), stem, audioExt, true)
	case FormatArtistTitle:
		name = composeName(SmartParse(inputFilename), stem, audioExt, false)
	default:
		name = autoName(SmartParse(inputFilename), stem, audioExt)
	}
	return norm.NFC.String(name)
}

// autoName keeps the layout the source used.
func autoName(meta Meta, stem, audioExt string) string {
	if meta.Title == "" {
		return stem + audioExt
	}
	artist := meta.ArtistString()
	switch meta.Layout {
	case LayoutTitleArtist:
		if artist != "" {
			return meta.Title + " - " + artist + audioExt
		}
	case LayoutArtistTitle:
		if artist != "" {
			return artist + " - " + meta.Title + audioExt
		}
	case LayoutTitleOnly, LayoutEmpty:
		return meta.Title + audioExt
	default:
		if artist != "" {
			return artist + " - " + meta.Title + audioExt
		}
	}
	return meta.Title + audioExt
}

func composeName(meta Meta, stem, audioExt string, titleFirst bool) string {
	if meta.Title == "" {
		return stem + audioExt
	}
	artist := meta.ArtistString()
	if artist == "" {
		return meta.Title + audioExt
	}
	if titleFirst {
		return meta.Title + " - " + artist + audioExt
	}
	return artist + " - " + meta.Title + audioExt
}
