package chatsdk

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Persisted message content is a string-encoded tagged union: plain text,
// a local file URI, or an inline data URL. The string forms are the storage
// format; everything above the storage boundary works with Content.
const (
	fileURIPrefix  = "file://"
	dataURLPrefix  = "data:image/"
	dataURLB64Mark = ";base64,"
)

// ContentKind discriminates the decoded content variants.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentImageFile
	ContentImageInline
)

// Content is the decoded form of a persisted message content string.
type Content struct {
	Kind ContentKind

	// Text is set for ContentText.
	Text string

	// Path is the local file path for ContentImageFile.
	Path string

	// Data and MIME are set for ContentImageInline.
	Data []byte
	MIME string
}

// DecodeContent parses a stored content string into its variant. Strings that
// match neither image form decode as plain text, including malformed data
// URLs, so a corrupt row still renders as something.
func DecodeContent(s string) Content {
	if strings.HasPrefix(s, fileURIPrefix) {
		return Content{Kind: ContentImageFile, Path: strings.TrimPrefix(s, fileURIPrefix)}
	}
	if strings.HasPrefix(s, dataURLPrefix) {
		rest := strings.TrimPrefix(s, dataURLPrefix)
		subtype, b64, ok := strings.Cut(rest, dataURLB64Mark)
		if ok {
			if data, err := base64.StdEncoding.DecodeString(b64); err == nil {
				return Content{
					Kind: ContentImageInline,
					Data: data,
					MIME: "image/" + subtype,
				}
			}
		}
	}
	return Content{Kind: ContentText, Text: s}
}

// Encode renders the content back into its storage string form. It is the
// inverse of DecodeContent for well-formed values.
func (c Content) Encode() string {
	switch c.Kind {
	case ContentImageFile:
		return fileURIPrefix + c.Path
	case ContentImageInline:
		subtype := strings.TrimPrefix(c.MIME, "image/")
		return fmt.Sprintf("%s%s%s%s", dataURLPrefix, subtype, dataURLB64Mark,
			base64.StdEncoding.EncodeToString(c.Data))
	default:
		return c.Text
	}
}

// IsImageContent reports whether a stored content string encodes an image in
// either the file-URI or data-URL form.
func IsImageContent(s string) bool {
	return strings.HasPrefix(s, fileURIPrefix) || strings.HasPrefix(s, dataURLPrefix)
}

// FileURI builds the stored content string for an image saved at path.
func FileURI(path string) string {
	return fileURIPrefix + path
}
