package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmarkapp/shelfmark-server/internal/auth"
	"github.com/shelfmarkapp/shelfmark-server/internal/catalog"
	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/search"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
	"github.com/shelfmarkapp/shelfmark-server/internal/shelf"
	"github.com/shelfmarkapp/shelfmark-server/internal/sse"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

const testKeyHex = "0000000000000000000000000000000000000000000000000000000000000002"

// envelope mirrors the response wrapper with raw data for per-test decoding.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
}

type testEnv struct {
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalogUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"totalItems":1,"items":[{"id":"vol-1","volumeInfo":{"title":"Dune","authors":["Frank Herbert"],"pageCount":412}}]}`))
	}))
	t.Cleanup(catalogUpstream.Close)

	st, err := store.New(t.TempDir(), logger, store.NewNoopEmitter())
	require.NoError(t, err)

	searchIndex, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)

	searchService := service.NewSearchService(searchIndex, logger)
	st.SetSearchIndexer(searchService)

	tokenService, err := auth.NewTokenService(testKeyHex, 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	sessionService := service.NewSessionService(st, tokenService, logger)
	authService := service.NewAuthService(st, tokenService, sessionService, logger)

	manager := shelf.NewManager(st, nil, logger)
	shelfService := service.NewShelfService(manager, logger)

	catalogClient := catalog.NewClient(catalogUpstream.URL, "", logger)
	catalogService := service.NewCatalogService(catalogClient, logger)

	sseManager := sse.NewManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go sseManager.Start(ctx)

	server := httptest.NewServer(NewServer(Options{
		AuthService:    authService,
		ShelfService:   shelfService,
		CatalogService: catalogService,
		SearchService:  searchService,
		SSEHandler:     sse.NewHandler(sseManager, logger),
		Logger:         logger,
		CORSOrigins:    []string{"*"},
		ServerName:     "Shelfmark Test",
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
		manager.Shutdown()
		searchIndex.Close()
		st.Close()
	})

	return &testEnv{server: server}
}

// do sends a JSON request and decodes the response envelope.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}

	return resp.StatusCode, env
}

// registerFull creates an account and returns the full auth response.
func (e *testEnv) registerFull(t *testing.T, email string) service.AuthResponse {
	t.Helper()

	status, env := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, status)

	var resp service.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

// register creates an account and returns its access token.
func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()
	return e.registerFull(t, email).AccessToken
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
}

func TestServer_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "reader@example.com")

	status, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "reader@example.com",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, status)

	var resp service.AuthResponse
	require.NoError(t, json.Unmarshal(body.Data, &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "reader@example.com", resp.User.Email)
	assert.Empty(t, resp.User.PasswordHash)
}

func TestServer_Login_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "reader@example.com")

	status, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "reader@example.com",
		"password": "not the password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, body.Success)
}

func TestServer_Bookshelf_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodGet, "/api/v1/bookshelf/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/api/v1/bookshelf/", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServer_AddAndMoveBook(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "reader@example.com")

	status, body := env.do(t, http.MethodPost, "/api/v1/bookshelf/books", token, map[string]any{
		"book": map[string]any{"title": "Dune", "author": "Frank Herbert"},
	})
	require.Equal(t, http.StatusCreated, status)

	var book domain.Book
	require.NoError(t, json.Unmarshal(body.Data, &book))
	assert.NotEmpty(t, book.ID)

	status, body = env.do(t, http.MethodPost, "/api/v1/bookshelf/move", token, map[string]string{
		"active_id": "Want to Read-0",
		"over_id":   "Currently Reading",
	})
	require.Equal(t, http.StatusOK, status)

	var shelves domain.Bookshelf
	require.NoError(t, json.Unmarshal(body.Data, &shelves))
	assert.Empty(t, shelves.Shelves[domain.ShelfWantToRead])
	assert.Len(t, shelves.Shelves[domain.ShelfCurrentlyReading], 1)
}

func TestServer_Logout_ClosesShelfSession(t *testing.T) {
	env := newTestEnv(t)
	account := env.registerFull(t, "reader@example.com")
	token := account.AccessToken

	status, _ := env.do(t, http.MethodPost, "/api/v1/bookshelf/books", token, map[string]any{
		"book": map[string]any{"title": "Dune"},
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/logout", "", map[string]string{
		"session_id": account.SessionID,
	})
	require.Equal(t, http.StatusNoContent, status)

	// Signing out the last session flushes and discards the live shelf
	// session. The access token is still valid, so the next read builds a
	// fresh one from the persisted document; the book must have survived
	// the flush.
	status, body := env.do(t, http.MethodGet, "/api/v1/bookshelf/", token, nil)
	require.Equal(t, http.StatusOK, status)

	var shelves domain.Bookshelf
	require.NoError(t, json.Unmarshal(body.Data, &shelves))
	require.Len(t, shelves.Shelves[domain.ShelfWantToRead], 1)
	assert.Equal(t, "Dune", shelves.Shelves[domain.ShelfWantToRead][0].Title)
}

func TestServer_MoveBook_ExplicitForm(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "reader@example.com")

	status, _ := env.do(t, http.MethodPost, "/api/v1/bookshelf/books", token, map[string]any{
		"book": map[string]any{"title": "Dune"},
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := env.do(t, http.MethodPost, "/api/v1/bookshelf/move", token, map[string]any{
		"from":  "Want to Read",
		"index": 0,
		"to":    "Finished Reading",
	})
	require.Equal(t, http.StatusOK, status)

	var shelves domain.Bookshelf
	require.NoError(t, json.Unmarshal(body.Data, &shelves))
	assert.Empty(t, shelves.Shelves[domain.ShelfWantToRead])
	assert.Len(t, shelves.Shelves[domain.ShelfFinished], 1)
}

func TestServer_DeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "reader@example.com")

	status, _ := env.do(t, http.MethodPost, "/api/v1/bookshelf/books", token, map[string]any{
		"book": map[string]any{"title": "Dune"},
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/auth/account", token, nil)
	require.Equal(t, http.StatusNoContent, status)

	// The deleted user's token no longer authenticates.
	status, _ = env.do(t, http.MethodGet, "/api/v1/bookshelf/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// Re-registering the email starts from an empty bookshelf.
	token = env.register(t, "reader@example.com")
	status, body := env.do(t, http.MethodGet, "/api/v1/bookshelf/", token, nil)
	require.Equal(t, http.StatusOK, status)

	var shelves domain.Bookshelf
	require.NoError(t, json.Unmarshal(body.Data, &shelves))
	assert.Empty(t, shelves.Shelves[domain.ShelfWantToRead])
}

func TestServer_MoveBook_MalformedDragID(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "reader@example.com")

	status, _ := env.do(t, http.MethodPost, "/api/v1/bookshelf/move", token, map[string]string{
		"active_id": "garbage",
		"over_id":   "Want to Read",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_Stats(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "reader@example.com")

	status, _ := env.do(t, http.MethodPost, "/api/v1/bookshelf/books", token, map[string]any{
		"book":  map[string]any{"title": "Dune", "page_count": 412},
		"shelf": "Finished Reading",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := env.do(t, http.MethodGet, "/api/v1/bookshelf/stats", token, nil)
	require.Equal(t, http.StatusOK, status)

	var stats domain.ReadingStats
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, 1, stats.TotalBooks)
	assert.Equal(t, 412, stats.TotalPagesRead)
}

func TestServer_CatalogSearch(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "reader@example.com")

	status, body := env.do(t, http.MethodGet, "/api/v1/catalog/search?q=dune", token, nil)
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Results []domain.BookDraft `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Dune", resp.Results[0].Title)
	assert.Equal(t, 412, resp.Results[0].PageCount)
}

func TestServer_CatalogSearch_EmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "reader@example.com")

	status, _ := env.do(t, http.MethodGet, "/api/v1/catalog/search", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServer_SyncStatus(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "reader@example.com")

	status, body := env.do(t, http.MethodGet, "/api/v1/bookshelf/sync/status", token, nil)
	require.Equal(t, http.StatusOK, status)

	var sync service.SyncStatus
	require.NoError(t, json.Unmarshal(body.Data, &sync))
	assert.True(t, sync.InSync)
}
