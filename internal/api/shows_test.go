package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Belphemur/ShowTracker/internal/models"
	"github.com/Belphemur/ShowTracker/internal/shows"
	"github.com/Belphemur/ShowTracker/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testEnvelope mirrors Envelope with a raw result so tests can decode it per route.
type testEnvelope struct {
	Code    int             `json:"code"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type showResult struct {
	Show models.Show `json:"show"`
}

type showsResult struct {
	Shows []models.Show `json:"shows"`
}

func newTestRouter(t *testing.T) (*gin.Engine, shows.Repository) {
	t.Helper()
	s, err := store.New("memory", store.ProviderConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	repo := shows.NewRepository(s)
	return NewRouter(Dependencies{Repository: repo}), repo
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env testEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	assert.Equal(t, w.Code, env.Code, "envelope code must match the HTTP status")
	return w, env
}

func decodeResult[T any](t *testing.T, env testEnvelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Result, &v))
	return v
}

func TestShowLifecycle(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	w, env := doRequest(t, r, http.MethodPost, "/shows", `{"name":"Lost","episodes_seen":5}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, MsgShowCreated, env.Message)
	created := decodeResult[showResult](t, env).Show
	assert.Equal(t, models.Show{ID: 1, Name: "Lost", EpisodesSeen: 5}, created)

	w, env = doRequest(t, r, http.MethodGet, "/shows/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Retrieved the show with id 1", env.Message)
	assert.Equal(t, created, decodeResult[showResult](t, env).Show)

	w, env = doRequest(t, r, http.MethodPut, "/shows/1", `{"episodes_seen":6}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Updated show with id 1", env.Message)
	assert.Equal(t, models.Show{ID: 1, Name: "Lost", EpisodesSeen: 6}, decodeResult[showResult](t, env).Show)

	w, env = doRequest(t, r, http.MethodDelete, "/shows/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, MsgShowDeleted, env.Message)
	assert.Equal(t, "null", string(env.Result))

	w, env = doRequest(t, r, http.MethodGet, "/shows/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, MsgShowNotFound, env.Message)
	assert.Equal(t, "null", string(env.Result))
}

func TestListShows(t *testing.T) {
	t.Parallel()
	r, repo := newTestRouter(t)
	require.NoError(t, repo.Seed(context.Background(), []models.Show{
		{Name: "Lost", EpisodesSeen: 5},
		{Name: "Dark", EpisodesSeen: 12},
		{Name: "Fargo", EpisodesSeen: 2},
	}))

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantMessage string
		wantNames   []string
	}{
		{
			name:        "all shows",
			path:        "/shows",
			wantStatus:  http.StatusOK,
			wantMessage: MsgAllShows,
			wantNames:   []string{"Lost", "Dark", "Fargo"},
		},
		{
			name:        "empty filter is ignored",
			path:        "/shows?minEpisodes=",
			wantStatus:  http.StatusOK,
			wantMessage: MsgAllShows,
			wantNames:   []string{"Lost", "Dark", "Fargo"},
		},
		{
			name:        "filter is inclusive",
			path:        "/shows?minEpisodes=5",
			wantStatus:  http.StatusOK,
			wantMessage: "Retrieved all shows with 5 or more episodes seen.",
			wantNames:   []string{"Lost", "Dark"},
		},
		{
			name:        "no match",
			path:        "/shows?minEpisodes=100",
			wantStatus:  http.StatusOK,
			wantMessage: "There are no shows with a minimum of 100 episodes seen.",
			wantNames:   []string{},
		},
		{
			name:        "non-integer filter",
			path:        "/shows?minEpisodes=abc",
			wantStatus:  http.StatusBadRequest,
			wantMessage: MsgInvalidMinEpisode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, env := doRequest(t, r, http.MethodGet, tt.path, "")
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, env.Message)
			if tt.wantNames == nil {
				assert.Equal(t, "null", string(env.Result))
				return
			}

			got := decodeResult[showsResult](t, env).Shows
			require.NotNil(t, got)
			names := make([]string, 0, len(got))
			for _, s := range got {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestListShows_EmptyStoreReturnsArray(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	w, env := doRequest(t, r, http.MethodGet, "/shows", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"shows":[]}`, string(env.Result))
}

func TestCreateShow_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"empty body", "", http.StatusUnprocessableEntity, models.MsgNameMissing},
		{"empty object", `{}`, http.StatusUnprocessableEntity, models.MsgNameMissing},
		{"name missing", `{"episodes_seen":3}`, http.StatusUnprocessableEntity, models.MsgNameMissing},
		{"name empty", `{"name":"","episodes_seen":3}`, http.StatusUnprocessableEntity, models.MsgNameEmpty},
		{"name not a string", `{"name":12,"episodes_seen":3}`, http.StatusUnprocessableEntity, models.MsgNameNotString},
		{"episodes missing", `{"name":"Lost"}`, http.StatusUnprocessableEntity, models.MsgEpisodesSeenMissing},
		{"episodes empty", `{"name":"Lost","episodes_seen":""}`, http.StatusUnprocessableEntity, models.MsgEpisodesSeenEmpty},
		{"episodes not an integer", `{"name":"Lost","episodes_seen":"many"}`, http.StatusUnprocessableEntity, models.MsgEpisodesSeenNotInt},
		{"episodes fractional", `{"name":"Lost","episodes_seen":2.5}`, http.StatusUnprocessableEntity, models.MsgEpisodesSeenNotInt},
		{"array body", `[1,2]`, http.StatusBadRequest, MsgBodyNotObject},
		{"invalid json", `{"name":`, http.StatusBadRequest, MsgBodyNotObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, repo := newTestRouter(t)

			w, env := doRequest(t, r, http.MethodPost, "/shows", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.False(t, env.Success)

			all, err := repo.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all, "nothing should be stored")
		})
	}
}

func TestCreateShow_NumericStringEpisodes(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	w, env := doRequest(t, r, http.MethodPost, "/shows", `{"name":"Dark","episodes_seen":"7"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 7, decodeResult[showResult](t, env).Show.EpisodesSeen)
}

func TestUpdateShow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		path        string
		body        string
		wantStatus  int
		wantMessage string
		wantShow    *models.Show
	}{
		{
			name:        "empty body keeps everything",
			path:        "/shows/1",
			body:        "",
			wantStatus:  http.StatusOK,
			wantMessage: "Updated show with id 1",
			wantShow:    &models.Show{ID: 1, Name: "Lost", EpisodesSeen: 5},
		},
		{
			name:        "empty name keeps the stored name",
			path:        "/shows/1",
			body:        `{"name":"","episodes_seen":9}`,
			wantStatus:  http.StatusOK,
			wantMessage: "Updated show with id 1",
			wantShow:    &models.Show{ID: 1, Name: "Lost", EpisodesSeen: 9},
		},
		{
			name:        "rename",
			path:        "/shows/1",
			body:        `{"name":"Lost (2004)"}`,
			wantStatus:  http.StatusOK,
			wantMessage: "Updated show with id 1",
			wantShow:    &models.Show{ID: 1, Name: "Lost (2004)", EpisodesSeen: 5},
		},
		{
			name:        "invalid episodes",
			path:        "/shows/1",
			body:        `{"episodes_seen":"x"}`,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: models.MsgEpisodesSeenNotInt,
		},
		{
			name:        "unknown id",
			path:        "/shows/42",
			body:        `{"episodes_seen":1}`,
			wantStatus:  http.StatusNotFound,
			wantMessage: MsgShowNotFound,
		},
		{
			name:        "empty episodes keeps the stored count",
			path:        "/shows/1",
			body:        `{"name":"Lost (2004)","episodes_seen":""}`,
			wantStatus:  http.StatusOK,
			wantMessage: "Updated show with id 1",
			wantShow:    &models.Show{ID: 1, Name: "Lost (2004)", EpisodesSeen: 5},
		},
		{
			name:        "unknown id is reported before a non-object body",
			path:        "/shows/42",
			body:        `[1]`,
			wantStatus:  http.StatusNotFound,
			wantMessage: MsgShowNotFound,
		},
		{
			name:        "unknown id is reported before an invalid field",
			path:        "/shows/42",
			body:        `{"episodes_seen":"x"}`,
			wantStatus:  http.StatusNotFound,
			wantMessage: MsgShowNotFound,
		},
		{
			name:        "non-integer id",
			path:        "/shows/abc",
			body:        `{"episodes_seen":1}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: MsgInvalidShowID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, repo := newTestRouter(t)
			_, err := repo.Create(context.Background(), "Lost", 5)
			require.NoError(t, err)

			w, env := doRequest(t, r, http.MethodPut, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMessage, env.Message)
			if tt.wantShow != nil {
				assert.Equal(t, *tt.wantShow, decodeResult[showResult](t, env).Show)
			}
		})
	}
}

func TestShowByID_BadRequests(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w, env := doRequest(t, r, method, "/shows/1.5", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, method)
		assert.Equal(t, MsgInvalidShowID, env.Message, method)

		w, env = doRequest(t, r, method, "/shows/3", "")
		assert.Equal(t, http.StatusNotFound, w.Code, method)
		assert.Equal(t, MsgShowNotFound, env.Message, method)
	}
}

func TestDeletedIDsAreNotReused(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	doRequest(t, r, http.MethodPost, "/shows", `{"name":"Lost","episodes_seen":5}`)
	doRequest(t, r, http.MethodDelete, "/shows/1", "")

	w, env := doRequest(t, r, http.MethodPost, "/shows", `{"name":"Dark","episodes_seen":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, decodeResult[showResult](t, env).Show.ID)
}

// failingRepository fails every call with a store error.
type failingRepository struct{}

var errStoreDown = errors.New("store unavailable")

func (failingRepository) List(context.Context) ([]models.Show, error) { return nil, errStoreDown }
func (failingRepository) Get(context.Context, int) (models.Show, error) {
	return models.Show{}, errStoreDown
}
func (failingRepository) Create(context.Context, string, int) (models.Show, error) {
	return models.Show{}, errStoreDown
}
func (failingRepository) Update(context.Context, int, models.ShowInput) (models.Show, error) {
	return models.Show{}, errStoreDown
}
func (failingRepository) Delete(context.Context, int) error { return errStoreDown }
func (failingRepository) LastID(context.Context) (int, error) { return 0, errStoreDown }
func (failingRepository) Seed(context.Context, []models.Show) error { return errStoreDown }

func TestStoreFailureIsInternalError(t *testing.T) {
	t.Parallel()
	r := NewRouter(Dependencies{Repository: failingRepository{}})

	w, env := doRequest(t, r, http.MethodGet, "/shows", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, MsgInternalError, env.Message)
	assert.NotContains(t, w.Body.String(), errStoreDown.Error())

	w, env = doRequest(t, r, http.MethodPost, "/shows", `{"name":"Lost","episodes_seen":5}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, MsgInternalError, env.Message)
}
