package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/jlindqvist/weektrack/pkg/logger"
)

type fakeListStore struct {
	lists map[string][]string
}

func (f *fakeListStore) GetList(_ context.Context, name string) ([]string, error) {
	return f.lists[name], nil
}

func (f *fakeListStore) SaveList(_ context.Context, name string, symbols []string) error {
	f.lists[name] = symbols
	return nil
}

func (f *fakeListStore) ListNames(_ context.Context) ([]string, error) {
	var names []string
	for name := range f.lists {
		names = append(names, name)
	}
	return names, nil
}

func newListsRouter(store *fakeListStore) http.Handler {
	h := NewListsHandler(store, logger.NewNop())
	r := mux.NewRouter()
	r.HandleFunc("/api/lists", h.Names).Methods("GET")
	r.HandleFunc("/api/lists/{name}", h.Get).Methods("GET")
	r.HandleFunc("/api/lists/{name}", h.Save).Methods("PUT")
	return r
}

func TestListNamesEndpoint(t *testing.T) {
	router := newListsRouter(&fakeListStore{lists: map[string][]string{
		"growth": {"AAPL"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/lists", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Lists []string `json:"lists"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []string{"growth"}, body.Lists)
}

func TestGetListEndpoint(t *testing.T) {
	router := newListsRouter(&fakeListStore{lists: map[string][]string{
		"growth": {"AAPL", "MSFT"},
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/lists/growth", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Name    string   `json:"name"`
		Symbols []string `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	if body.Name != "growth" || !reflect.DeepEqual(body.Symbols, []string{"AAPL", "MSFT"}) {
		t.Errorf("Body = %+v", body)
	}
}

func TestGetListUnknown(t *testing.T) {
	router := newListsRouter(&fakeListStore{lists: map[string][]string{}})

	req := httptest.NewRequest(http.MethodGet, "/api/lists/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSaveListEndpoint(t *testing.T) {
	store := &fakeListStore{lists: map[string][]string{}}
	router := newListsRouter(store)

	body := `{"symbols": ["AAPL", "MSFT"]}`
	req := httptest.NewRequest(http.MethodPut, "/api/lists/growth", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	if !reflect.DeepEqual(store.lists["growth"], []string{"AAPL", "MSFT"}) {
		t.Errorf("Stored list = %v", store.lists["growth"])
	}
}

func TestSaveListFromText(t *testing.T) {
	store := &fakeListStore{lists: map[string][]string{}}
	router := newListsRouter(store)

	body := `{"text": "aapl, msft; goog"}`
	req := httptest.NewRequest(http.MethodPut, "/api/lists/growth", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	if !reflect.DeepEqual(store.lists["growth"], []string{"AAPL", "MSFT", "GOOG"}) {
		t.Errorf("Stored list = %v", store.lists["growth"])
	}
}

func TestSaveListRejectsEmpty(t *testing.T) {
	router := newListsRouter(&fakeListStore{lists: map[string][]string{}})

	for _, body := range []string{`{}`, `{"text": " , ; "}`, `not json`} {
		req := httptest.NewRequest(http.MethodPut, "/api/lists/growth", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}
