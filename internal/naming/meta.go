package naming

import (
	"path"
	"slices"
	"strings"
	"unicode"
)

// Layout records which side of the "-" separator held what in the source stem.
type Layout string

const (
	LayoutEmpty       Layout = "empty"
	LayoutTitleOnly   Layout = "title-only"
	LayoutTitleArtist Layout = "title-artist"
	LayoutArtistTitle Layout = "artist-title"
)

// Meta is the metadata recovered from a filename stem.
type Meta struct {
	Title   string
	Artists []string
	Layout  Layout
}

// ArtistString joins the artists the way they appear in output filenames.
func (m Meta) ArtistString() string {
	return strings.Join(m.Artists, ", ")
}

// SmartParse extracts title and artists from a filename. The extension is
// stripped first; a trailing "_info" segment is dropped before splitting on
// "-" so quality markers do not confuse the side classification.
func SmartParse(filename string) Meta {
	stem := strings.TrimSpace(strings.TrimSuffix(filename, path.Ext(filename)))
	if stem == "" {
		return Meta{Layout: LayoutEmpty}
	}
	if idx := strings.Index(stem, "_"); idx > 0 {
		if head := strings.TrimSpace(stem[:idx]); head != "" {
			stem = head
		}
	}

	items := strings.Split(stem, "-")
	if len(items) == 1 {
		return Meta{Title: strings.TrimSpace(items[0]), Layout: LayoutTitleOnly}
	}

	part1 := strings.TrimSpace(items[0])
	part2 := strings.TrimSpace(strings.Join(items[1:], "-"))
	switch {
	case part1 == "" && part2 == "":
		return Meta{Layout: LayoutEmpty}
	case part1 == "":
		return Meta{Title: part2, Layout: LayoutTitleOnly}
	case part2 == "":
		return Meta{Title: part1, Layout: LayoutTitleOnly}
	}

	clean1 := stripQualitySuffix(part1)
	clean2 := stripQualitySuffix(part2)

	// Score each assignment of roles and keep the stronger one. A tie falls
	// back to artist-title, the dominant convention in the wild.
	artistTitle := artistScore(clean1) + titleScore(clean2)
	titleArtist := titleScore(clean1) + artistScore(clean2)

	meta := Meta{}
	if artistTitle >= titleArtist {
		meta.Artists = splitArtists(clean1)
		meta.Title = clean2
		meta.Layout = LayoutArtistTitle
	} else {
		meta.Title = clean1
		meta.Artists = splitArtists(clean2)
		meta.Layout = LayoutTitleArtist
	}
	return meta
}

// splitArtists breaks a joint credit like "A, B" or "A_B" into entries.
func splitArtists(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '_'
	})
	artists := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			artists = append(artists, trimmed)
		}
	}
	return artists
}

func artistScore(text string) int {
	if text == "" {
		return 0
	}
	score := 0
	runes := []rune(text)

	switch dominantScript(text) {
	case scriptHan:
		if len(runes) >= 2 && len(runes) <= 4 {
			score += 3
		}
		if slices.Contains(chineseSurnames, string(runes[0])) {
			score += 4
		}
	case scriptHangul:
		if len(runes) >= 2 && len(runes) <= 5 {
			score += 2
		}
	case scriptLatin:
		if isCapitalized(text) {
			score += 2
		}
		if strings.Contains(text, " ") && !containsSongKeyword(text) {
			score += 3
		}
		if len(text) <= 15 {
			score++
		}
		// Short all-caps names like "U2" or "IU" read as act names.
		if len(runes) <= 4 && !strings.Contains(text, " ") &&
			strings.ToUpper(text) == text && text != strings.ToLower(text) {
			score += 3
		}
	}

	if !containsBrackets(text) {
		score++
	}
	if !containsSongKeyword(text) {
		score++
	}
	return score
}

func titleScore(text string) int {
	if text == "" {
		return 0
	}
	score := 0
	if containsBrackets(text) {
		score += 4
	}
	if containsSongKeyword(text) {
		score += 5
	}
	if strings.ContainsFunc(text, unicode.IsDigit) {
		score += 2
	}
	runeCount := len([]rune(text))
	if runeCount > 6 {
		score += 2
	}
	if runeCount > 10 {
		score++
	}
	if dominantScript(text) == scriptHan && runeCount > 4 {
		score += 2
	}
	return score
}

type script int

const (
	scriptOther script = iota
	scriptHan
	scriptLatin
	scriptHangul
	scriptKana
)

func dominantScript(text string) script {
	counts := map[script]int{}
	total := 0
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Han, r):
			counts[scriptHan]++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			counts[scriptLatin]++
		case r >= 0xAC00 && r <= 0xD7AF:
			counts[scriptHangul]++
		case (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF):
			counts[scriptKana]++
		}
	}
	if total == 0 {
		return scriptOther
	}
	best, bestCount := scriptOther, 0
	for s, c := range counts {
		if c > bestCount {
			best, bestCount = s, c
		}
	}
	if bestCount*2 <= total {
		return scriptOther
	}
	return best
}

func isCapitalized(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 {
		return false
	}
	for _, word := range words {
		if !unicode.IsUpper([]rune(word)[0]) {
			return false
		}
	}
	return true
}

func containsBrackets(text string) bool {
	return strings.ContainsAny(text, "()[]{}（）【】")
}

func containsSongKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range songKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// stripQualitySuffix removes trailing release markers such as "_hires",
// repeating until none remain.
func stripQualitySuffix(text string) string {
	for {
		before := text
		lower := strings.ToLower(text)
		for _, suffix := range qualitySuffixes {
			if strings.HasSuffix(lower, suffix) {
				text = strings.TrimSpace(text[:len(text)-len(suffix)])
				lower = strings.ToLower(text)
			}
		}
		if text == before {
			return text
		}
	}
}

var songKeywords = []string{
	"live", "remix", "cover", "acoustic", "instrumental", "demo",
	"version", "remaster", "extended", "radio edit",
	"现场", "翻唱", "伴奏", "纯音乐", "演奏版", "重制版", "混音版",
	"ライブ", "リミックス", "カバー",
	"라이브", "리믹스", "커버",
}

var qualitySuffixes = []string{
	"_hires", "_live", "_lossless", "_flac", "_dsd",
	"_24bit", "_96khz", "_192khz", "_studio", "_master",
	"_remaster", "_original", "_deluxe", "_edition", "_version",
}

var chineseSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "黄", "赵", "周", "吴",
	"徐", "孙", "朱", "马", "胡", "郭", "林", "何", "高", "梁",
	"郑", "罗", "宋", "谢", "唐", "韩", "曹", "许", "邓", "萧",
	"蒋", "沈", "秦", "尤", "吕", "施", "孔", "严", "华", "金",
	"魏", "陶", "姜",
}
