package convai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/voxkb/pkg/adapter/convai"
	"github.com/m-mizutani/voxkb/pkg/adapter/convai/convaitest"
	"github.com/m-mizutani/voxkb/pkg/model"
)

func newClient(t *testing.T, srv *convaitest.Server, opts ...convai.Option) *convai.Client {
	t.Helper()
	base := []convai.Option{
		convai.WithBaseURL(srv.URL),
		convai.WithRateLimit(0),
		convai.WithRetryDelay(time.Millisecond),
	}
	client, err := convai.New(srv.APIKey, append(base, opts...)...)
	gt.NoError(t, err)
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := convai.New("")
	gt.Error(t, err)
}

func TestAPIKeyHeader(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddDocument("doc_1", "guide", "url")

	client, err := convai.New("wrong-key",
		convai.WithBaseURL(srv.URL),
		convai.WithRateLimit(0),
		convai.WithReadRetries(1),
	)
	gt.NoError(t, err)

	_, err = client.Documents().GetDocument(context.Background(), "doc_1")
	gt.Error(t, err)
	upErr, ok := model.AsUpstream(err)
	gt.True(t, ok)
	gt.Equal(t, upErr.Status, http.StatusUnauthorized)
	gt.S(t, upErr.Body).Contains("invalid api key")
}

func TestReadRetriedOnServerError(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddDocument("doc_1", "guide", "url")
	srv.Fail(convaitest.RouteGetDoc, http.StatusServiceUnavailable, "busy", 2)

	client := newClient(t, srv, convai.WithReadRetries(3))
	doc, err := client.Documents().GetDocument(context.Background(), "doc_1")
	gt.NoError(t, err)
	gt.Equal(t, doc.ID, model.DocumentID("doc_1"))
	gt.Equal(t, srv.Calls(convaitest.RouteGetDoc), 3)
}

func TestReadRetryGivesUp(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddDocument("doc_1", "guide", "url")
	srv.Fail(convaitest.RouteGetDoc, http.StatusBadGateway, "down", -1)

	client := newClient(t, srv, convai.WithReadRetries(2))
	_, err := client.Documents().GetDocument(context.Background(), "doc_1")
	gt.Error(t, err)
	upErr, ok := model.AsUpstream(err)
	gt.True(t, ok)
	gt.Equal(t, upErr.Status, http.StatusBadGateway)
	gt.Equal(t, upErr.Body, "down")
	gt.Equal(t, srv.Calls(convaitest.RouteGetDoc), 2)
}

func TestReadNotRetriedOnClientError(t *testing.T) {
	srv := convaitest.New(t)

	client := newClient(t, srv, convai.WithReadRetries(3))
	_, err := client.Documents().GetDocument(context.Background(), "missing")
	gt.Error(t, err)
	gt.True(t, model.IsNotFound(err))
	gt.Equal(t, srv.Calls(convaitest.RouteGetDoc), 1)
}

func TestMutationsNeverRetried(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Receptionist")
	srv.Fail(convaitest.RouteCreateURL, http.StatusInternalServerError, "boom", 1)
	srv.Fail(convaitest.RoutePatchAgent, http.StatusInternalServerError, "boom", 1)
	srv.Fail(convaitest.RouteIndex, http.StatusInternalServerError, "boom", 1)

	client := newClient(t, srv, convai.WithReadRetries(5))
	ctx := context.Background()

	_, err := client.Documents().CreateFromURL(ctx, createURL("https://example.com/doc"))
	gt.Error(t, err)
	gt.Equal(t, srv.Calls(convaitest.RouteCreateURL), 1)
	gt.Equal(t, srv.DocumentCount(), 0)

	err = client.Agents().SetKnowledgeBase(ctx, "agent_1", nil)
	gt.Error(t, err)
	gt.Equal(t, srv.Calls(convaitest.RoutePatchAgent), 1)

	_, err = client.Indexes().ComputeIndex(ctx, "doc_1", "")
	gt.Error(t, err)
	gt.Equal(t, srv.Calls(convaitest.RouteIndex), 1)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	srv := convaitest.New(t)
	srv.Fail(convaitest.RouteGetDoc, http.StatusServiceUnavailable, "busy", -1)

	client := newClient(t, srv,
		convai.WithReadRetries(10),
		convai.WithRetryDelay(time.Hour),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Documents().GetDocument(ctx, "doc_1")
	gt.Error(t, err)
	gt.Equal(t, srv.Calls(convaitest.RouteGetDoc), 1)
}

func TestTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	client, err := convai.New("key",
		convai.WithBaseURL(slow.URL),
		convai.WithRateLimit(0),
		convai.WithTimeout(20*time.Millisecond),
		convai.WithReadRetries(1),
	)
	gt.NoError(t, err)

	_, err = client.Documents().GetDocument(context.Background(), "doc_1")
	gt.Error(t, err)
	_, isUpstream := model.AsUpstream(err)
	gt.False(t, isUpstream)
}
