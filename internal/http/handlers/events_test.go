package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hcsem/communityhub/internal/domain/event"
	"github.com/hcsem/communityhub/internal/http/handlers"
	"github.com/hcsem/communityhub/internal/repo/postgres"
)

type fakeEventStore struct {
	createFn    func(ctx context.Context, req event.CreateRequest) (event.Event, error)
	getBySlugFn func(ctx context.Context, slug string) (event.Event, error)
	listFn      func(ctx context.Context, filter event.ListFilter) ([]event.Event, int, error)
	updateFn    func(ctx context.Context, id string, req event.UpdateRequest) (event.Event, error)
	deleteFn    func(ctx context.Context, id string) error
}

func (f *fakeEventStore) Create(ctx context.Context, req event.CreateRequest) (event.Event, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return event.NewFromCreateRequest(req), nil
}

func (f *fakeEventStore) GetByID(ctx context.Context, id string) (event.Event, error) {
	return event.Event{ID: id}, nil
}

func (f *fakeEventStore) GetBySlug(ctx context.Context, slug string) (event.Event, error) {
	if f.getBySlugFn != nil {
		return f.getBySlugFn(ctx, slug)
	}
	return event.Event{Slug: slug}, nil
}

func (f *fakeEventStore) List(ctx context.Context, filter event.ListFilter) ([]event.Event, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (f *fakeEventStore) Update(ctx context.Context, id string, req event.UpdateRequest) (event.Event, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return event.Event{ID: id}, nil
}

func (f *fakeEventStore) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func TestCreateEvent(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		createFn       func(ctx context.Context, req event.CreateRequest) (event.Event, error)
		wantStatusCode int
	}{
		{
			name:           "ok",
			body:           `{"title":"Summer Fair","slug":"summer-fair","date":"2026-07-01T10:00:00Z"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "slug_taken",
			body: `{"title":"Summer Fair","slug":"summer-fair","date":"2026-07-01T10:00:00Z"}`,
			createFn: func(ctx context.Context, req event.CreateRequest) (event.Event, error) {
				return event.Event{}, postgres.ErrSlugTaken
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:           "missing_title",
			body:           `{"slug":"summer-fair","date":"2026-07-01T10:00:00Z"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid_json",
			body:           `{`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewEventsHandler(&fakeEventStore{createFn: tt.createFn})
			r := setupRouter(http.MethodPost, "/api/admin/events", h.Create)

			req := httptest.NewRequest(http.MethodPost, "/api/admin/events", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestPublicListNeverIncludesHidden(t *testing.T) {
	var gotFilter event.ListFilter

	h := handlers.NewEventsHandler(&fakeEventStore{
		listFn: func(ctx context.Context, filter event.ListFilter) ([]event.Event, int, error) {
			gotFilter = filter
			return nil, 0, nil
		},
	})
	r := setupRouter(http.MethodGet, "/api/events", h.ListPublic)

	// includeHidden is not a query param; the public route pins it off
	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=10&from=2026-01-01T00:00:00Z", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	if gotFilter.IncludeHidden {
		t.Fatal("public listing must not include hidden events")
	}
	if gotFilter.Limit != 10 {
		t.Fatalf("got limit %d, want 10", gotFilter.Limit)
	}
	if gotFilter.From == nil || !gotFilter.From.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("got from %v", gotFilter.From)
	}
}

func TestAdminListIncludesHidden(t *testing.T) {
	var gotFilter event.ListFilter

	h := handlers.NewEventsHandler(&fakeEventStore{
		listFn: func(ctx context.Context, filter event.ListFilter) ([]event.Event, int, error) {
			gotFilter = filter
			return nil, 0, nil
		},
	})
	r := setupRouter(http.MethodGet, "/api/admin/events", h.ListAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/events", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	if !gotFilter.IncludeHidden {
		t.Fatal("admin listing must include hidden events")
	}
}

func TestGetEventBySlug(t *testing.T) {
	tests := []struct {
		name           string
		getBySlugFn    func(ctx context.Context, slug string) (event.Event, error)
		wantStatusCode int
	}{
		{
			name: "ok",
			getBySlugFn: func(ctx context.Context, slug string) (event.Event, error) {
				return event.Event{ID: "e1", Slug: slug}, nil
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "not_found",
			getBySlugFn: func(ctx context.Context, slug string) (event.Event, error) {
				return event.Event{}, postgres.ErrEventNotFound
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "hidden_reads_as_missing",
			getBySlugFn: func(ctx context.Context, slug string) (event.Event, error) {
				return event.Event{ID: "e1", Slug: slug, IsHidden: true}, nil
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewEventsHandler(&fakeEventStore{getBySlugFn: tt.getBySlugFn})
			r := setupRouter(http.MethodGet, "/api/events/:slug", h.GetBySlug)

			req := httptest.NewRequest(http.MethodGet, "/api/events/summer-fair", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeleteEvent(t *testing.T) {
	h := handlers.NewEventsHandler(&fakeEventStore{
		deleteFn: func(ctx context.Context, id string) error {
			return postgres.ErrEventNotFound
		},
	})
	r := setupRouter(http.MethodDelete, "/api/admin/events/:id", h.Delete)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/events/ghost", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}
