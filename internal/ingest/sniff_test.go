package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name     string
		head     []byte
		wantMIME string
		wantExt  string
	}{
		{
			name:     "pdf",
			head:     []byte("%PDF-1.7\n%..."),
			wantMIME: "application/pdf",
			wantExt:  "pdf",
		},
		{
			name:     "png",
			head:     []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0},
			wantMIME: "image/png",
			wantExt:  "png",
		},
		{
			name:     "jpeg",
			head:     []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10},
			wantMIME: "image/jpeg",
			wantExt:  "jpg",
		},
		{
			name:     "gif89a",
			head:     []byte("GIF89a......"),
			wantMIME: "image/gif",
			wantExt:  "gif",
		},
		{
			name:     "tiff little endian",
			head:     []byte{0x49, 0x49, 0x2A, 0x00, 0x08},
			wantMIME: "image/tiff",
			wantExt:  "tiff",
		},
		{
			name:     "webp riff container",
			head:     []byte("RIFF\x24\x00\x00\x00WEBPVP8 "),
			wantMIME: "image/webp",
			wantExt:  "webp",
		},
		{
			name:     "zip container",
			head:     []byte{'P', 'K', 0x03, 0x04, 0x14, 0x00},
			wantMIME: "application/zip",
			wantExt:  "zip",
		},
		{
			name:     "ole compound file",
			head:     []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0},
			wantMIME: "application/x-ole-storage",
			wantExt:  "doc",
		},
		{
			name: "plain text has no signature",
			head: []byte("just some notes"),
		},
		{
			name: "empty input",
			head: nil,
		},
		{
			name: "truncated signature",
			head: []byte("%PD"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sniff(tt.head)
			assert.Equal(t, tt.wantMIME, got.MIME)
			assert.Equal(t, tt.wantExt, got.Ext)
			assert.Equal(t, tt.wantMIME != "", got.Known())
		})
	}
}

func TestSniff_Deterministic(t *testing.T) {
	head := []byte("%PDF-1.4")
	assert.Equal(t, Sniff(head), Sniff(head))
}
