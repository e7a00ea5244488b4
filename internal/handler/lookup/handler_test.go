package lookup

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/TomasB/geoiplite/internal/loader"
	"github.com/gin-gonic/gin"
)

type mockLookup struct {
	country string
	err     error
	lastIP  string
}

func (m *mockLookup) LookupCountry(ip string) (string, error) {
	m.lastIP = ip
	return m.country, m.err
}

func (m *mockLookup) Close() error {
	return nil
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		lookup     *mockLookup
		wantStatus int
		wantIP     string
		wantBody   LookupResponse
	}{
		{
			name:       "ipv4 found",
			path:       "/api/v1/lookup/1.2.3.4",
			lookup:     &mockLookup{country: "us"},
			wantStatus: http.StatusOK,
			wantIP:     "1.2.3.4",
			wantBody:   LookupResponse{IP: "1.2.3.4", Country: "us"},
		},
		{
			name:       "ipv6 found",
			path:       "/api/v1/lookup/2001:218::1",
			lookup:     &mockLookup{country: "jp"},
			wantStatus: http.StatusOK,
			wantIP:     "2001:218::1",
			wantBody:   LookupResponse{IP: "2001:218::1", Country: "jp"},
		},
		{
			name:       "not found",
			path:       "/api/v1/lookup/10.0.0.1",
			lookup:     &mockLookup{err: loader.ErrNotFound},
			wantStatus: http.StatusNotFound,
			wantIP:     "10.0.0.1",
			wantBody:   LookupResponse{IP: "10.0.0.1", Error: loader.ErrNotFound.Error()},
		},
		{
			name:       "not loaded",
			path:       "/api/v1/lookup/::1",
			lookup:     &mockLookup{err: &loader.NotLoadedError{Family: ipaddr.V6}},
			wantStatus: http.StatusServiceUnavailable,
			wantIP:     "::1",
			wantBody:   LookupResponse{IP: "::1", Error: "data (ipv6) has not been loaded"},
		},
		{
			name:       "internal error",
			path:       "/api/v1/lookup/1.1.1.1",
			lookup:     &mockLookup{err: errors.New("db failure")},
			wantStatus: http.StatusInternalServerError,
			wantIP:     "1.1.1.1",
			wantBody:   LookupResponse{IP: "1.1.1.1", Error: "db failure"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.GET("/api/v1/lookup/:ip", NewHandler(tt.lookup).Lookup)

			req, _ := http.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.lookup.lastIP != tt.wantIP {
				t.Errorf("expected lookup of %s, got %s", tt.wantIP, tt.lookup.lastIP)
			}

			var resp LookupResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp != tt.wantBody {
				t.Errorf("expected body %+v, got %+v", tt.wantBody, resp)
			}
		})
	}
}
