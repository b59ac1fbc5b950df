package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akmatori/opsconsole/internal/apierr"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       interface{}
		wantStatus int
		wantBody   string
	}{
		{
			name:       "200 with data",
			status:     http.StatusOK,
			data:       map[string]string{"key": "value"},
			wantStatus: http.StatusOK,
			wantBody:   `{"key":"value"}`,
		},
		{
			name:       "201 created",
			status:     http.StatusCreated,
			data:       map[string]int{"id": 42},
			wantStatus: http.StatusCreated,
			wantBody:   `{"id":42}`,
		},
		{
			name:       "nil data",
			status:     http.StatusOK,
			data:       nil,
			wantStatus: http.StatusOK,
			wantBody:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondJSON(w, tt.status, tt.data)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.data != nil {
				ct := w.Header().Get("Content-Type")
				if ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}
			}
			if tt.wantBody != "" {
				// json.Encoder appends a newline
				got := w.Body.String()
				if got != tt.wantBody+"\n" {
					t.Errorf("body = %q, want %q", got, tt.wantBody+"\n")
				}
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"not found", apierr.NotFound("Incident %s not found", "inc-404"), 404, `{"status":404,"message":"Incident inc-404 not found"}`},
		{"wrapped conflict", fmt.Errorf("create: %w", apierr.Conflict("duplicate")), 409, `{"status":409,"message":"duplicate"}`},
		{"plain error hides text", errors.New("sql: connection refused"), 500, `{"status":500,"message":"Internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Body.String(); got != tt.wantBody+"\n" {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestRespondValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondValidationError(w, map[string]string{
		"name":  "is required",
		"email": "is invalid",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	var resp apierr.Error
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != 422 || resp.Message != "Validation failed" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Details["name"] != "is required" || resp.Details["email"] != "is invalid" {
		t.Errorf("details = %v", resp.Details)
	}
}

func TestRespondStatus(t *testing.T) {
	w := httptest.NewRecorder()
	RespondStatus(w, http.StatusNotFound, "GET /nope Endpoint Not Found")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	want := `{"status":404,"message":"GET /nope Endpoint Not Found"}` + "\n"
	if w.Body.String() != want {
		t.Errorf("body = %q, want %q", w.Body.String(), want)
	}
}

func TestRespondList(t *testing.T) {
	items := []map[string]interface{}{
		{"id": "a", "name": "web"},
		{"id": "b", "name": "db"},
		{"id": "c", "name": "cache"},
	}
	r := httptest.NewRequest(http.MethodGet, "/resources?sort_by=name&page_size=2", nil)
	w := httptest.NewRecorder()
	RespondList(w, r, items)

	var page Page[map[string]interface{}]
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || page.PageSize != 2 || len(page.Items) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Items[0]["name"] != "cache" || page.Items[1]["name"] != "db" {
		t.Errorf("items = %v", page.Items)
	}
}

func TestRespondSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	RespondSuccess(w)
	if w.Body.String() != `{"success":true}`+"\n" {
		t.Errorf("body = %q", w.Body.String())
	}
}
