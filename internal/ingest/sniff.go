package ingest

import "bytes"

// SniffResult is the outcome of byte-signature detection. The zero value
// means no signature matched, which is expected and valid for formats with
// no reliable magic number (plain text, CSV).
type SniffResult struct {
	MIME string
	Ext  string
}

// Known reports whether a signature matched.
func (r SniffResult) Known() bool { return r.MIME != "" }

// signature maps a fixed leading-byte pattern to a media type and its
// canonical extension. offset supports formats whose marker is not at byte 0
// (WEBP's RIFF container). The table is closed on purpose: detection feeds
// the allow-list policy, so every entry here must have a policy opinion.
type signature struct {
	offset int
	magic  []byte
	mime   string
	ext    string
}

var signatures = []signature{
	{0, []byte("%PDF"), "application/pdf", "pdf"},
	{0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png", "png"},
	{0, []byte{0xFF, 0xD8, 0xFF}, "image/jpeg", "jpg"},
	{0, []byte("GIF87a"), "image/gif", "gif"},
	{0, []byte("GIF89a"), "image/gif", "gif"},
	{0, []byte{0x49, 0x49, 0x2A, 0x00}, "image/tiff", "tiff"},
	{0, []byte{0x4D, 0x4D, 0x00, 0x2A}, "image/tiff", "tiff"},
	{8, []byte("WEBP"), "image/webp", "webp"},
	// ZIP container: covers plain archives and the OOXML Office formats,
	// which are disambiguated by extension in the type policy.
	{0, []byte{'P', 'K', 0x03, 0x04}, "application/zip", "zip"},
	// OLE compound file: legacy Office (doc/xls/ppt).
	{0, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, "application/x-ole-storage", "doc"},
}

// SniffHeadSize is how many leading bytes Sniff needs to see.
const SniffHeadSize = 16

// Sniff determines the true media type of content from its leading bytes.
// It is a pure function of the bytes and ignores every client-supplied
// claim; a renamed or disguised payload cannot influence the result.
func Sniff(head []byte) SniffResult {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(head) < end {
			continue
		}
		if bytes.Equal(head[sig.offset:end], sig.magic) {
			return SniffResult{MIME: sig.mime, Ext: sig.ext}
		}
	}
	return SniffResult{}
}
