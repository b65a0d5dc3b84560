// Package naming derives output filenames for converted audio.
//
// Encrypted sources rarely carry reliable tags, so the filename itself is
// often the best metadata available. SmartParse splits a "part - part" stem
// and scores each side as artist or title using script detection, keyword
// tables and surname lists, then OutputName rebuilds the stem according to
// the configured format.
package naming
