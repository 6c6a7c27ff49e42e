package books

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchNormalizesItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/volumes" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "dune" {
			t.Fatalf("unexpected query: %q", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{"volumeInfo": {"title": "Dune", "authors": ["Frank Herbert"], "imageLinks": {"thumbnail": "http://img/dune.jpg"}}},
				{"volumeInfo": {}},
				{"volumeInfo": {"title": "Good Omens", "authors": ["Terry Pratchett", "Neil Gaiman"]}}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	results, err := client.Search(context.Background(), "dune")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Title != "Dune" || results[0].Author != "Frank Herbert" || results[0].ImageURL != "http://img/dune.jpg" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}

	// 欠損アイテムは埋め草になり、バッチ全体は落ちない
	if results[1].Title != "No Title" || results[1].Author != "Unknown author" || results[1].ImageURL != "" {
		t.Fatalf("unexpected placeholder result: %+v", results[1])
	}
	if results[2].Author != "Terry Pratchett and Neil Gaiman" {
		t.Fatalf("unexpected author formatting: %q", results[2].Author)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Search(context.Background(), "dune"); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestFormatAuthors(t *testing.T) {
	cases := []struct {
		authors []string
		want    string
	}{
		{nil, "Unknown author"},
		{[]string{"A"}, "A"},
		{[]string{"A", "B"}, "A and B"},
		{[]string{"A", "B", "C"}, "A, B and C"},
	}
	for _, tc := range cases {
		if got := FormatAuthors(tc.authors); got != tc.want {
			t.Fatalf("FormatAuthors(%v) = %q, want %q", tc.authors, got, tc.want)
		}
	}
}
