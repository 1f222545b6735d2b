package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/voxkb/pkg/model"
)

func fieldOf(t *testing.T, err error) any {
	t.Helper()
	var gerr *goerr.Error
	gt.True(t, errors.As(err, &gerr))
	return gerr.Values()["field"]
}

func TestSourceValidate(t *testing.T) {
	tests := []struct {
		name  string
		src   model.Source
		field string
	}{
		{name: "file", src: model.FileSource([]byte("x"), "a.txt", "")},
		{name: "url", src: model.URLSource("https://example.com/a")},
		{name: "url with spaces", src: model.URLSource("  https://example.com/a  ")},
		{name: "empty file", src: model.FileSource([]byte{}, "a.txt", ""), field: "file"},
		{name: "nil file", src: model.FileSource(nil, "a.txt", ""), field: "file"},
		{name: "no filename", src: model.FileSource([]byte("x"), "", ""), field: "filename"},
		{name: "empty url", src: model.URLSource(""), field: "url"},
		{name: "no scheme", src: model.URLSource("example.com/a"), field: "url"},
		{name: "mailto", src: model.URLSource("mailto:a@example.com"), field: "url"},
		{name: "no host", src: model.URLSource("https:///path"), field: "url"},
		{name: "no kind", src: model.Source{}, field: "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.src.Validate()
			if tt.field == "" {
				gt.NoError(t, err)
				return
			}
			gt.True(t, errors.Is(err, model.ErrInvalidInput))
			gt.Equal(t, fieldOf(t, err), any(tt.field))
		})
	}
}

func TestSourceContentType(t *testing.T) {
	explicit := model.FileSource([]byte("x"), "a.bin", "text/csv")
	gt.Equal(t, explicit.ContentType(), "text/csv")

	pdf := model.FileSource([]byte("x"), "manual.pdf", "")
	gt.Equal(t, pdf.ContentType(), "application/pdf")

	unknown := model.FileSource([]byte("x"), "blob.zzz-unknown", "")
	gt.Equal(t, unknown.ContentType(), "application/octet-stream")

	url := model.URLSource("https://example.com/a.pdf")
	gt.Equal(t, url.ContentType(), "")
}

func TestSourceReference(t *testing.T) {
	file := model.FileSource([]byte("x"), "a.txt", "")
	gt.Equal(t, file.Reference(), "a.txt")
	gt.Equal(t, file.Host(), "")

	url := model.URLSource("https://Docs.Example.com:8443/a")
	gt.Equal(t, url.Reference(), "https://Docs.Example.com:8443/a")
	gt.Equal(t, url.Host(), "Docs.Example.com")
}
