package freshrss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "reader", "secret", 2, srv.Client(), nil)
	c.pageDelay = 0
	return c
}

func loginHandler(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != loginPath {
			http.NotFound(w, r)
			return
		}
		if r.FormValue("Email") != "reader" || r.FormValue("Passwd") != "secret" {
			http.Error(w, "Error=BadAuthentication", http.StatusForbidden)
			return
		}
		fmt.Fprintf(w, "SID=null\nLSID=null\nAuth=%s\n", token)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, loginHandler("tok123"))

	token, err := c.Login(context.Background())
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if token != "tok123" {
		t.Fatalf("expected token tok123, got %q", token)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, loginHandler("tok123"))
	c.password = "wrong"

	if _, err := c.Login(context.Background()); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestLoginMissingAuthLine(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "SID=null\nLSID=null\n")
	}))

	if _, err := c.Login(context.Background()); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestFetchSincePaginates(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, loginHandler("tok123"))
	mux.HandleFunc(streamPath, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "GoogleLogin auth=tok123" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.URL.Query().Get("n"); got != "2" {
			t.Errorf("unexpected page size %q", got)
		}

		if r.URL.Query().Get("c") == "" {
			fmt.Fprint(w, `{
				"continuation": "page2",
				"items": [
					{
						"title": "First",
						"published": 1700000000,
						"alternate": [{"href": "https://example.com/a"}],
						"summary": {"content": "summary a"},
						"origin": {"title": "Example", "htmlUrl": "https://example.com"}
					},
					{
						"title": "No URL",
						"published": 1700000001
					}
				]
			}`)
			return
		}
		fmt.Fprint(w, `{
			"items": [
				{
					"title": "Second",
					"published": 1700000002,
					"canonical": [{"href": "https://example.com/b"}],
					"content": {"content": "full body b"},
					"enclosure": [
						{"href": "https://example.com/b.mp3", "type": "audio/mpeg"},
						{"href": "https://example.com/b.jpg", "type": "image/jpeg"}
					]
				}
			]
		}`)
	})

	c := newTestClient(t, mux)

	items, err := c.FetchSince(context.Background(), time.Unix(1690000000, 0))
	if err != nil {
		t.Fatalf("fetch returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items after dropping the url-less one, got %d", len(items))
	}

	if items[0].Link != "https://example.com/a" || items[0].Title != "First" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[0].Description != "summary a" || items[0].Content != "summary a" {
		t.Fatalf("summary should backfill content: %+v", items[0])
	}
	if items[0].SourceName != "Example" || items[0].SourceURL != "https://example.com" {
		t.Fatalf("origin not mapped: %+v", items[0])
	}
	if !items[0].PublishedAt.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected published time %v", items[0].PublishedAt)
	}

	if items[1].Link != "https://example.com/b" {
		t.Fatalf("canonical fallback failed: %+v", items[1])
	}
	if items[1].ImageURL != "https://example.com/b.jpg" {
		t.Fatalf("expected the image enclosure, got %q", items[1].ImageURL)
	}
	if items[1].Content != "full body b" {
		t.Fatalf("unexpected content %q", items[1].Content)
	}
}

func TestFetchSincePartialResults(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, loginHandler("tok123"))
	mux.HandleFunc(streamPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("c") == "" {
			fmt.Fprint(w, `{
				"continuation": "page2",
				"items": [{
					"title": "Only",
					"published": 1700000000,
					"alternate": [{"href": "https://example.com/only"}]
				}]
			}`)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)

	items, err := c.FetchSince(context.Background(), time.Unix(0, 0))
	if err != nil {
		t.Fatalf("expected partial results, got error: %v", err)
	}
	if len(items) != 1 || items[0].Link != "https://example.com/only" {
		t.Fatalf("unexpected partial results: %+v", items)
	}
}

func TestFetchSinceFirstPageFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, loginHandler("tok123"))
	mux.HandleFunc(streamPath, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)

	if _, err := c.FetchSince(context.Background(), time.Unix(0, 0)); err == nil {
		t.Fatal("expected error when the first page fails")
	}
}

func TestFetchSinceAuthFailureAborts(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, loginHandler("tok123"))
	c.username = ""

	if _, err := c.FetchSince(context.Background(), time.Unix(0, 0)); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}
