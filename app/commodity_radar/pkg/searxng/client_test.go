package searxng

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/search"
)

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "铜 库存", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "news", r.URL.Query().Get("categories"))
		assert.Equal(t, "week", r.URL.Query().Get("time_range"))
		assert.Equal(t, "zh-CN", r.URL.Query().Get("language"))
		_ = json.NewEncoder(w).Encode(SearchResponse{Results: []SearchResult{
			{Title: "1", URL: "https://a/1"},
			{Title: "2", URL: "https://a/2"},
			{Title: "3", URL: "https://a/3"},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	resp, err := c.Search(context.Background(), &search.Request{
		Query: "铜 库存", Topic: "news", MaxResults: 2, Language: "zh-CN",
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "2", resp.Results[1].Title)
}

func TestClient_SearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 1).Search(context.Background(), &search.Request{Query: "铜"})
	assert.ErrorContains(t, err, "status 403")
}
