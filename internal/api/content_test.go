package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramsetu/gramsetu-go/internal/session"
)

func newContentClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := newTestStore(t, testSession())
	inv := session.NewInvalidator(store, nil, slog.Default())

	return NewClient(srv.URL, "rampur", http.DefaultClient, store, inv, slog.Default(), nil)
}

func TestListPosts(t *testing.T) {
	client := newContentClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/posts", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[
			{"id":"p1","title":"Gram sabha minutes","published_at":"2026-08-01T10:00:00Z"},
			{"id":"p2","title":"Water supply notice","cover_key":"img-7","published_at":"2026-08-02T10:00:00Z"}
		],"total":2}`))
	}))

	posts, err := client.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, "img-7", posts[1].CoverKey)
}

func TestGetPost(t *testing.T) {
	client := newContentClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/posts/p1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"p1","title":"Gram sabha minutes","body":"Resolutions passed.","published_at":"2026-08-01T10:00:00Z"}`))
	}))

	post, err := client.GetPost(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, "Resolutions passed.", post.Body)
}

func TestListAnnouncements(t *testing.T) {
	client := newContentClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/announcements", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[
			{"id":"a1","text":"Water supply interrupted on Monday","expires_at":"2026-09-01T00:00:00Z"}
		],"total":1}`))
	}))

	anns, err := client.ListAnnouncements(context.Background())
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "a1", anns[0].ID)
	assert.Equal(t, "Water supply interrupted on Monday", anns[0].Text)
}

func TestListSchemes(t *testing.T) {
	client := newContentClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/schemes", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[
			{"id":"s1","name":"Housing assistance","description":"Rural housing subsidy","document_ids":["d1","d2"]}
		],"total":1}`))
	}))

	schemes, err := client.ListSchemes(context.Background())
	require.NoError(t, err)
	require.Len(t, schemes, 1)
	assert.Equal(t, "Housing assistance", schemes[0].Name)
	assert.Equal(t, []string{"d1", "d2"}, schemes[0].DocumentIDs)
}

func TestGetDocument(t *testing.T) {
	client := newContentClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/documents/d1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"d1","title":"Budget 2026","file_key":"doc-d1","mime_type":"application/pdf","size":120000}`))
	}))

	doc, err := client.GetDocument(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "doc-d1", doc.FileKey)
}

func TestGetSignedURL(t *testing.T) {
	client := newContentClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/img-7/signed-url", r.URL.Path)
		assert.Equal(t, "post", r.URL.Query().Get("entity_type"))
		assert.Equal(t, "p2", r.URL.Query().Get("entity_id"))

		_, _ = w.Write([]byte(`{"url":"https://cdn.example/img-7?sig=abc","expires_in":300}`))
	}))

	url, ttl, err := client.GetSignedURL(context.Background(), "img-7", "post", "p2")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img-7?sig=abc", url)
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestGetSignedURL_FailureIsResourceUnavailable(t *testing.T) {
	client := newContentClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, _, err := client.GetSignedURL(context.Background(), "missing", "", "")
	require.ErrorIs(t, err, ErrResourceUnavailable)
}

func TestGetSignedURL_EmptyWindowIsResourceUnavailable(t *testing.T) {
	client := newContentClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"url":"","expires_in":0}`))
	}))

	_, _, err := client.GetSignedURL(context.Background(), "img-7", "", "")
	require.ErrorIs(t, err, ErrResourceUnavailable)
}
