package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/voxkb/pkg/model"
)

func TestPageSizeNormalize(t *testing.T) {
	f, err := model.DocumentFilter{}.Normalize()
	gt.NoError(t, err)
	gt.Equal(t, f.PageSize, model.DefaultPageSize)

	f, err = model.DocumentFilter{PageSize: 100, Search: "x"}.Normalize()
	gt.NoError(t, err)
	gt.Equal(t, f.PageSize, 100)
	gt.Equal(t, f.Search, "x")

	for _, size := range []int{-1, 101, 1000} {
		_, err := model.DocumentFilter{PageSize: size}.Normalize()
		gt.True(t, errors.Is(err, model.ErrInvalidInput))

		_, err = model.PageRequest{PageSize: size}.Normalize()
		gt.True(t, errors.Is(err, model.ErrInvalidInput))
	}

	r, err := model.PageRequest{Cursor: "c", PageSize: 1}.Normalize()
	gt.NoError(t, err)
	gt.Equal(t, r.PageSize, 1)
	gt.Equal(t, r.Cursor, "c")
}

func TestSourceTypeValid(t *testing.T) {
	gt.True(t, model.SourceTypeFile.Valid())
	gt.True(t, model.SourceTypeURL.Valid())
	gt.True(t, model.SourceTypeText.Valid())
	gt.False(t, model.SourceType("folder").Valid())
	gt.False(t, model.SourceType("").Valid())
}

func TestFallbackName(t *testing.T) {
	gt.Equal(t, model.FallbackName("doc_7"), "Document doc_7")
}

func TestUpstreamError(t *testing.T) {
	var err error = &model.UpstreamError{Method: "GET", Path: "/v1/convai/agents/x", Status: 404, Body: `{"detail":"not found"}`}
	gt.True(t, model.IsNotFound(err))
	gt.S(t, err.Error()).Contains("404")

	up, ok := model.AsUpstream(err)
	gt.True(t, ok)
	gt.Equal(t, up.Path, "/v1/convai/agents/x")

	_, ok = model.AsUpstream(errors.New("plain"))
	gt.False(t, ok)
	gt.False(t, model.IsNotFound(&model.UpstreamError{Status: 500}))
}
