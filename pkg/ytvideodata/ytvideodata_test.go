package ytvideodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		input string
		want  string
		err   bool
	}{
		{input: "dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{input: "  dQw4w9WgXcQ ", want: "dQw4w9WgXcQ"},
		{input: "https://youtu.be/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{input: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", want: "dQw4w9WgXcQ"},
		{input: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{input: "https://www.youtube.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{input: "https://example.com/watch?v=dQw4w9WgXcQ", err: true},
		{input: "https://www.youtube.com/watch?v=short", err: true},
		{input: "", err: true},
		{input: "not a video", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidVideoID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(WithHTTPClient(srv.Client()), WithBaseURLs(srv.URL+"/oembed", srv.URL+"/page"))
}

func TestGetEmbed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oembed", r.URL.Path)
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", r.URL.Query().Get("url"))
		w.Write([]byte(`{"title":"Song","author_name":"Rick","thumbnail_url":"https://img"}`))
	})

	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, &VideoData{Title: "Song", AuthorName: "Rick", ThumbnailUrl: "https://img"}, data)
}

func TestGetFallsBackToPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oembed" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/page/dQw4w9WgXcQ", r.URL.Path)
		w.Write([]byte(`<html><head><title>Song - YouTube</title></head>
<body><span><link itemprop="name" content="Rick"></span></body></html>`))
	})

	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Song", data.Title)
	assert.Equal(t, "Rick", data.AuthorName)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", data.ThumbnailUrl)
}

func TestGetNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
