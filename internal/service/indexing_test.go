package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"well_bbs/internal/core/config"
)

func newIndexer(t *testing.T, status int) (*SearchIndexer, *atomic.Int32, *[]indexNowPayload) {
	t.Helper()
	var hits atomic.Int32
	var got []indexNowPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var p indexNowPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		got = append(got, p)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	idx := NewSearchIndexer(config.IndexingConfig{Endpoint: srv.URL, Key: "k1", DedupTTL: 3600}, "https://bbs.example.com/", rdb)
	require.NotNil(t, idx)
	return idx, &hits, &got
}

func TestSearchIndexerDisabledWithoutEndpoint(t *testing.T) {
	require.Nil(t, NewSearchIndexer(config.IndexingConfig{}, "https://bbs.example.com", nil))
}

func TestSearchIndexerSubmitsNewApprovedThreads(t *testing.T) {
	idx, hits, got := newIndexer(t, http.StatusAccepted)
	ctx := context.Background()

	require.NoError(t, idx.Handle(ctx, &PostPublished{Tid: 5, Slug: "hello-world", NewThread: true, Approved: true}))
	require.Equal(t, int32(1), hits.Load())
	require.Equal(t, "bbs.example.com", (*got)[0].Host)
	require.Equal(t, []string{"https://bbs.example.com/thread/5/hello-world"}, (*got)[0].URLList)

	// duplicate, reply and pending threads are skipped
	require.NoError(t, idx.Handle(ctx, &PostPublished{Tid: 5, Slug: "hello-world", NewThread: true, Approved: true}))
	require.NoError(t, idx.Handle(ctx, &PostPublished{Tid: 5, Pid: 9, Approved: true}))
	require.NoError(t, idx.Handle(ctx, &PostPublished{Tid: 6, NewThread: true}))
	require.Equal(t, int32(1), hits.Load())
}

func TestSearchIndexerFailureReleasesDedup(t *testing.T) {
	idx, hits, _ := newIndexer(t, http.StatusInternalServerError)
	ctx := context.Background()

	require.Error(t, idx.Submit(ctx, "https://bbs.example.com/thread/1"))
	require.Error(t, idx.Submit(ctx, "https://bbs.example.com/thread/1"))
	require.Equal(t, int32(2), hits.Load())
}
