// Package convert turns encrypted audio containers into playable files.
//
// Processor implements batch.Converter: it validates the source against the
// supported-format table, sniffs the payload for already-decoded audio,
// resolves the destination through the naming policy and writes the output
// atomically via a temp file in the destination directory.
package convert
