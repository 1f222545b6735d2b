package model

import (
	"mime"
	"net/url"
	"path/filepath"
	"strings"
)

// Source is the raw input of an ingestion: file bytes or a URL, never both.
type Source struct {
	Kind SourceType

	// file source
	Data     []byte
	Filename string
	MIMEType string

	// url source
	URL string
}

// FileSource builds a file source. An empty mimeType is derived from the filename.
func FileSource(data []byte, filename, mimeType string) Source {
	return Source{
		Kind:     SourceTypeFile,
		Data:     data,
		Filename: filename,
		MIMEType: mimeType,
	}
}

// URLSource builds a URL source.
func URLSource(u string) Source {
	return Source{
		Kind: SourceTypeURL,
		URL:  strings.TrimSpace(u),
	}
}

// Validate checks the source before any remote call is made.
func (x *Source) Validate() error {
	switch x.Kind {
	case SourceTypeFile:
		if len(x.Data) == 0 {
			return InvalidInput("file", "file payload is empty")
		}
		if x.Filename == "" {
			return InvalidInput("filename", "filename is required for file source")
		}
		return nil

	case SourceTypeURL:
		return ValidateURL(x.URL)

	default:
		return InvalidInput("source", "source must be a file or a url")
	}
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return InvalidInput("url", "url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return InvalidInput("url", "url is malformed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return InvalidInput("url", "url scheme must be http or https")
	}
	if u.Host == "" {
		return InvalidInput("url", "url has no host")
	}
	return nil
}

// ContentType returns the MIME type for file sources, falling back to the extension
// and then application/octet-stream.
func (x *Source) ContentType() string {
	if x.Kind != SourceTypeFile {
		return ""
	}
	if x.MIMEType != "" {
		return x.MIMEType
	}
	if t := mime.TypeByExtension(filepath.Ext(x.Filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Reference is a human readable identifier of the source used in logs and run records.
func (x *Source) Reference() string {
	if x.Kind == SourceTypeURL {
		return x.URL
	}
	return x.Filename
}

// Host returns the URL host, or empty for file sources.
func (x *Source) Host() string {
	if x.Kind != SourceTypeURL {
		return ""
	}
	u, err := url.Parse(x.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
