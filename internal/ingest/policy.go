package ingest

import (
	"fmt"
	"strings"
)

// Policy is the immutable type allow-list consulted by Validate. Construct
// one with NewPolicy or DefaultPolicy and inject it; nothing here reads
// ambient state.
type Policy struct {
	allowedMIME   map[string]struct{}
	allowedExt    map[string]struct{}
	extsForMIME   map[string][]string
	sniffRequired map[string]struct{}
}

// PolicyConfig spells out a Policy. Extensions are lowercase without the
// leading dot.
type PolicyConfig struct {
	// AllowedMIMEs is the set of sniffable media types accepted at all.
	AllowedMIMEs []string
	// AllowedExts is the set of acceptable extensions, sniffed or declared.
	AllowedExts []string
	// ExtsForMIME maps each sniffable media type to the declared extensions
	// it may legitimately carry.
	ExtsForMIME map[string][]string
	// SniffRequired lists extensions of binary/structured formats that are
	// expected to carry a signature; a file claiming one of these while
	// sniffing Unknown is rejected as unverifiable.
	SniffRequired []string
}

// NewPolicy builds an immutable Policy from cfg.
func NewPolicy(cfg PolicyConfig) *Policy {
	p := &Policy{
		allowedMIME:   make(map[string]struct{}, len(cfg.AllowedMIMEs)),
		allowedExt:    make(map[string]struct{}, len(cfg.AllowedExts)),
		extsForMIME:   make(map[string][]string, len(cfg.ExtsForMIME)),
		sniffRequired: make(map[string]struct{}, len(cfg.SniffRequired)),
	}
	for _, m := range cfg.AllowedMIMEs {
		p.allowedMIME[m] = struct{}{}
	}
	for _, e := range cfg.AllowedExts {
		p.allowedExt[normalizeExt(e)] = struct{}{}
	}
	for m, exts := range cfg.ExtsForMIME {
		cp := make([]string, len(exts))
		for i, e := range exts {
			cp[i] = normalizeExt(e)
		}
		p.extsForMIME[m] = cp
	}
	for _, e := range cfg.SniffRequired {
		p.sniffRequired[normalizeExt(e)] = struct{}{}
	}
	return p
}

// DefaultPolicy covers the document types the administration backend
// accepts: PDF, common images, Office (modern and legacy), plain text, CSV.
func DefaultPolicy() *Policy {
	return NewPolicy(PolicyConfig{
		AllowedMIMEs: []string{
			"application/pdf",
			"image/png",
			"image/jpeg",
			"image/gif",
			"image/tiff",
			"image/webp",
			"application/zip",
			"application/x-ole-storage",
		},
		AllowedExts: []string{
			"pdf", "png", "jpg", "jpeg", "gif", "tiff", "tif", "webp",
			"zip", "docx", "xlsx", "pptx", "doc", "xls", "ppt",
			"txt", "csv",
		},
		ExtsForMIME: map[string][]string{
			"application/pdf":           {"pdf"},
			"image/png":                 {"png"},
			"image/jpeg":                {"jpg", "jpeg"},
			"image/gif":                 {"gif"},
			"image/tiff":                {"tiff", "tif"},
			"image/webp":                {"webp"},
			"application/zip":           {"zip", "docx", "xlsx", "pptx"},
			"application/x-ole-storage": {"doc", "xls", "ppt"},
		},
		SniffRequired: []string{
			"pdf", "png", "jpg", "jpeg", "gif", "tiff", "tif", "webp",
			"zip", "docx", "xlsx", "pptx", "doc", "xls", "ppt",
		},
	})
}

// Validate applies the allow-list policy to a sniffed payload. The order is
// deliberate: the sniffed type is judged first and independently of any
// client claim, so renaming a payload or forging its declared mime cannot
// route around the list. declaredMIME is accepted for interface completeness
// but never trusted or acted upon.
func (p *Policy) Validate(declaredExt, declaredMIME string, sniff SniffResult) error {
	declared := normalizeExt(declaredExt)

	// 1. A sniffed type outside the allow-list is rejected no matter what
	// the client declared.
	if sniff.Known() {
		if _, ok := p.allowedMIME[sniff.MIME]; !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedType, sniff.MIME)
		}
	}

	// 2. Judge the sniffed extension when there is one, the declared one
	// otherwise.
	extToCheck := declared
	if sniff.Known() {
		extToCheck = sniff.Ext
	}
	if _, ok := p.allowedExt[extToCheck]; !ok {
		return fmt.Errorf("%w: .%s", ErrExtensionNotAllowed, extToCheck)
	}

	// 3. The declared extension must be a legal carrier for the sniffed
	// type. Catches payloads disguised under a foreign extension.
	if sniff.Known() {
		legal := false
		for _, e := range p.extsForMIME[sniff.MIME] {
			if declared == e {
				legal = true
				break
			}
		}
		if !legal {
			return fmt.Errorf("%w: .%s does not carry %s", ErrTypeExtensionMismatch, declared, sniff.MIME)
		}
	}

	// 4. Binary formats must prove themselves; only signature-less formats
	// (plain text, CSV) may pass unsniffed.
	if !sniff.Known() {
		if _, required := p.sniffRequired[declared]; required {
			return fmt.Errorf("%w: .%s", ErrUnverifiableType, declared)
		}
	}

	return nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
