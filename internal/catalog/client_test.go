package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hotfolder/internal/catalog"
	"hotfolder/internal/metadata"
	"hotfolder/internal/services"
)

const recordJSON = `{
  "records": [{
    "logical": {"type": "Monograph", "metadata": [
      {"type": "TitleDocMain", "value": "Proceedings of the Workshop"},
      {"type": "ConferenceIndicator", "value": "kn"}
    ]},
    "physical": {"type": "BoundBook", "metadata": [
      {"type": "pathimagefiles", "value": "file:///legacy"}
    ]}
  }]
}`

func defaultQuery() catalog.Query {
	return catalog.Query{Identifier: "89$140210016", Catalog: "TIB-TOC", Profile: "PICA", Field: "8535"}
}

func TestResolveBuildsDocument(t *testing.T) {
	var gotPath, gotQuery, gotProfile, gotField, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotProfile = r.URL.Query().Get("profile")
		gotField = r.URL.Query().Get("field")
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(recordJSON))
	}))
	defer srv.Close()

	client, err := catalog.New(srv.URL+"/", catalog.WithAPIKey("secret"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	doc, err := client.Resolve(context.Background(), defaultQuery())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if gotPath != "/catalogues/TIB-TOC/search" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "89$140210016" || gotProfile != "PICA" || gotField != "8535" {
		t.Fatalf("unexpected query params query=%q profile=%q field=%q", gotQuery, gotProfile, gotField)
	}
	if gotKey != "secret" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
	if doc.Logical.First(metadata.TypeConferenceIndicator) != "kn" {
		t.Fatalf("conference indicator missing: %+v", doc.Logical)
	}
	if doc.Physical.First(metadata.TypeImagePath) != "file:///legacy" {
		t.Fatalf("physical metadata missing: %+v", doc.Physical)
	}
}

func TestResolveFailuresFoldIntoLookupError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not found status", status: http.StatusNotFound, body: "", wantErr: services.ErrNotFound},
		{name: "empty records", status: http.StatusOK, body: `{"records": []}`, wantErr: services.ErrNotFound},
		{name: "service unavailable", status: http.StatusServiceUnavailable, body: "maintenance", wantErr: services.ErrTransient},
		{name: "malformed json", status: http.StatusOK, body: `{"records": [`, wantErr: services.ErrValidation},
		{name: "record without logical docstruct", status: http.StatusOK, body: `{"records": [{"physical": {"type": "BoundBook"}}]}`, wantErr: services.ErrValidation},
		{name: "unexpected status", status: http.StatusForbidden, body: "", wantErr: services.ErrExternalTool},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, err := catalog.New(srv.URL)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = client.Resolve(context.Background(), defaultQuery())
			if !errors.Is(err, services.ErrLookup) {
				t.Fatalf("expected lookup error, got %v", err)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected cause %v, got %v", tc.wantErr, err)
			}
			if services.Kind(err) != "lookup" {
				t.Fatalf("expected kind lookup, got %q", services.Kind(err))
			}
		})
	}
}

func TestResolveRejectsOversizedResponse(t *testing.T) {
	padded := strings.Replace(recordJSON, `"records"`, `"padding": "`+strings.Repeat("x", 4096)+`", "records"`, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(padded))
	}))
	defer srv.Close()

	limited, err := catalog.New(srv.URL, catalog.WithMaxResponseBytes(1024))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = limited.Resolve(context.Background(), defaultQuery())
	if !errors.Is(err, services.ErrLookup) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation lookup error, got %v", err)
	}
	if !strings.Contains(err.Error(), "exceeds 1.0 KiB") {
		t.Fatalf("expected size limit in error, got %v", err)
	}

	client, err := catalog.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Resolve(context.Background(), defaultQuery()); err != nil {
		t.Fatalf("default limit must accept the padded record: %v", err)
	}
}

func TestResolveNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := catalog.New(url, catalog.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Resolve(context.Background(), defaultQuery())
	if !errors.Is(err, services.ErrLookup) || !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient lookup error, got %v", err)
	}
}

func TestResolveRejectsEmptyIdentifier(t *testing.T) {
	client, err := catalog.New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q := defaultQuery()
	q.Identifier = "  "
	if _, err := client.Resolve(context.Background(), q); !errors.Is(err, services.ErrLookup) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := catalog.New(" "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
