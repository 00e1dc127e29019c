package artifact

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidBase64    = errors.New("invalid base64 content")
	ErrArtifactNotFound = errors.New("no inline artifact found in document")
)

const dataURIPrefix = "data:"

// maxDocumentDepth bounds how many JSON documents may wrap one another before
// the base64 payload is reached.
const maxDocumentDepth = 2

// Decoded is a base64 payload turned back into bytes. MIMEType is empty when
// the input carried no type information.
type Decoded struct {
	MIMEType string
	Data     []byte
}

// Extension returns the canonical file extension for the decoded payload.
func (d *Decoded) Extension() string {
	if d == nil {
		return DefaultExtension
	}
	return ExtensionForMIME(d.MIMEType)
}

// ContentType returns MIMEType or the generic binary type.
func (d *Decoded) ContentType() string {
	if d == nil || strings.TrimSpace(d.MIMEType) == "" {
		return DefaultContentType
	}
	return d.MIMEType
}

// DecodeArtifact decodes a data URI, a bare base64 string, or a JSON document
// that embeds one of those. The result always holds at least one byte.
func DecodeArtifact(raw string) (*Decoded, error) {
	return decodeArtifact(raw, "", 0)
}

func decodeArtifact(raw, hintMIME string, depth int) (*Decoded, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: input is empty", ErrInvalidBase64)
	}
	if strings.HasPrefix(s, "{") {
		if depth >= maxDocumentDepth {
			return nil, fmt.Errorf("%w: documents nested deeper than %d", ErrArtifactNotFound, maxDocumentDepth)
		}
		doc, err := ParseString(s)
		if err != nil {
			return nil, err
		}
		m, ok := Locate(doc, DefaultImageQueries)
		if !ok {
			return nil, ErrArtifactNotFound
		}
		hint := ""
		if mm, ok := Locate(doc, DefaultMIMEQueries); ok {
			hint = mm.Value()
		}
		return decodeArtifact(m.Value(), hint, depth+1)
	}

	mimeType, content, err := SplitDataURI(s)
	if err != nil {
		return nil, err
	}
	if mimeType == "" {
		mimeType = strings.TrimSpace(hintMIME)
	}
	data, err := DecodeBase64(content)
	if err != nil {
		return nil, err
	}
	return &Decoded{MIMEType: mimeType, Data: data}, nil
}

// SplitDataURI separates "data:<mime>;base64,<content>" into its MIME type
// and content. The MIME type ends at the first ';' or at the comma. Input
// without the data: marker is returned as content with an empty MIME type.
func SplitDataURI(s string) (mimeType, content string, err error) {
	if !strings.HasPrefix(s, dataURIPrefix) {
		return "", s, nil
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", "", fmt.Errorf("%w: data uri has no comma", ErrInvalidBase64)
	}
	header := s[:comma]
	content = s[comma+1:]
	meta := header[len(dataURIPrefix):]
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		meta = meta[:semi]
	}
	return strings.TrimSpace(meta), content, nil
}

// DecodeBase64 decodes standard base64, padded or not. Line breaks are
// tolerated; any other invalid character fails. Empty content is rejected.
func DecodeBase64(content string) ([]byte, error) {
	c := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(content))
	if c == "" {
		return nil, fmt.Errorf("%w: content is empty", ErrInvalidBase64)
	}
	enc := base64.StdEncoding
	if !strings.HasSuffix(c, "=") && len(c)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	data, err := enc.DecodeString(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: content decodes to zero bytes", ErrInvalidBase64)
	}
	return data, nil
}

// IsInline reports whether s carries its payload inline rather than
// referencing it by URL.
func IsInline(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	lower := strings.ToLower(t)
	return !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://")
}
