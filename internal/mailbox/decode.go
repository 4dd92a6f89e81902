package mailbox

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime"
)

// PartAt returns the structure node addressed by an IMAP section path.
// Part 1 of a non-multipart body is the body itself.
func PartAt(structure *imap.BodyStructure, path []int) *imap.BodyStructure {
	if structure != nil && len(structure.Parts) == 0 {
		// A single-part message is addressed as section 1 and nothing deeper.
		if len(path) == 1 && path[0] == 1 {
			return structure
		}
		return nil
	}

	part := structure
	for _, n := range path {
		if part == nil || len(part.Parts) == 0 {
			return nil
		}
		if n < 1 || n > len(part.Parts) {
			return nil
		}
		part = part.Parts[n-1]
	}
	return part
}

// DecodePart undoes the transfer encoding of a fetched section and converts
// text parts to UTF-8.
func DecodePart(raw []byte, mimeType string, params map[string]string, encoding string) ([]byte, error) {
	contentType := mime.FormatMediaType(mimeType, params)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var header textproto.Header
	header.Set("Content-Type", contentType)
	if encoding != "" {
		header.Set("Content-Transfer-Encoding", encoding)
	}

	var buf bytes.Buffer
	if err := textproto.WriteHeader(&buf, header); err != nil {
		return nil, fmt.Errorf("failed to write part header: %w", err)
	}
	buf.Write(raw)

	root, err := enmime.ReadParts(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode part: %w", err)
	}
	return root.Content, nil
}

// mimeType joins the type and subtype of a structure node
func mimeType(part *imap.BodyStructure) string {
	return strings.ToLower(part.MIMEType + "/" + part.MIMESubType)
}

// decodeBody picks the text section, falling back to part 1 when the text
// section is blank, and decodes it according to its structure node.
func decodeBody(structure *imap.BodyStructure, text, fallback []byte) string {
	raw, path := text, textPath
	if strings.TrimSpace(string(raw)) == "" {
		raw, path = fallback, fallbackPath
	}
	if strings.TrimSpace(string(raw)) == "" {
		return ""
	}

	part := PartAt(structure, path)
	if part == nil || len(part.Parts) > 0 || !strings.EqualFold(part.MIMEType, "text") {
		return string(raw)
	}

	decoded, err := DecodePart(raw, mimeType(part), part.Params, part.Encoding)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
