package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumesFixture = `{
	"totalItems": 2,
	"items": [
		{
			"id": "vol-1",
			"volumeInfo": {
				"title": "Dune",
				"authors": ["Frank Herbert"],
				"publisher": "Chilton Books",
				"publishedDate": "1965",
				"description": "Melange and sand.",
				"industryIdentifiers": [
					{"type": "ISBN_10", "identifier": "0441013597"},
					{"type": "ISBN_13", "identifier": "9780441013593"}
				],
				"pageCount": 412,
				"categories": ["Fiction", "Science Fiction"],
				"averageRating": 4.5,
				"ratingsCount": 5000,
				"language": "en",
				"imageLinks": {
					"smallThumbnail": "http://books.example/small.jpg",
					"thumbnail": "http://books.example/thumb.jpg"
				}
			}
		},
		{
			"id": "vol-2",
			"volumeInfo": {
				"title": "Anonymous Epic"
			}
		}
	]
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(server.URL, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSearch_MapsVolumeFields(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("maxResults"))
		w.Write([]byte(volumesFixture))
	})

	results, err := client.Search(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, results, 2)

	dune := results[0]
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, "Frank Herbert", dune.Author)
	assert.Equal(t, "9780441013593", dune.ISBN) // ISBN_13 preferred over ISBN_10
	assert.Equal(t, "http://books.example/thumb.jpg", dune.Thumbnail)
	assert.Equal(t, 412, dune.PageCount)
	assert.Equal(t, []string{"Fiction", "Science Fiction"}, dune.Categories)
	assert.Equal(t, 4.5, dune.AverageRating)
	assert.Equal(t, "Chilton Books", dune.Publisher)
}

func TestSearch_MissingAuthorFallback(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(volumesFixture))
	})

	results, err := client.Search(context.Background(), "epic")
	require.NoError(t, err)

	assert.Equal(t, "Unknown Author", results[1].Author)
	assert.Empty(t, results[1].ISBN)
}

func TestSearch_JoinsMultipleAuthors(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"totalItems":1,"items":[{"id":"vol-3","volumeInfo":{"title":"Good Omens","authors":["Terry Pratchett","Neil Gaiman"]}}]}`))
	})

	results, err := client.Search(context.Background(), "good omens")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Terry Pratchett, Neil Gaiman", results[0].Author)
}

func TestSearch_NoItemsReturnsEmptySlice(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"totalItems":0}`))
	})

	results, err := client.Search(context.Background(), "zxqj")
	require.NoError(t, err)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_UpstreamErrorStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Search(context.Background(), "dune")
	assert.Error(t, err)
}

func TestSearch_SendsAPIKeyWhenConfigured(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		w.Write([]byte(`{"totalItems":0}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "secret-key", slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.Search(context.Background(), "dune")
	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)
}
