package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"

	"github.com/Vodeneev/smartbet/internal/pkg/browser"
)

const testPage = `<html><body><div id="cf-challenge-running">checking</div><p>hello</p></body></html>`

func encode(t *testing.T, enc string, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch enc {
	case "gzip":
		w := gzip.NewWriter(&buf)
		w.Write(body)
		w.Close()
	case "br":
		w := brotli.NewWriter(&buf)
		w.Write(body)
		w.Close()
	case "zstd":
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		w.Write(body)
		w.Close()
	default:
		buf.Write(body)
	}
	return buf.Bytes()
}

func TestPage_DecodesContentEncodings(t *testing.T) {
	for _, enc := range []string{"", "gzip", "br", "zstd"} {
		t.Run("encoding="+enc, func(t *testing.T) {
			body := encode(t, enc, []byte(testPage))
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if enc != "" {
					w.Header().Set("Content-Encoding", enc)
				}
				w.Write(body)
			}))
			defer srv.Close()

			c := NewClient(5*time.Second, browser.NewIdentity(nil, nil, nil))
			p, _ := c.NewPage(context.Background())
			if err := p.Navigate(context.Background(), srv.URL, time.Second); err != nil {
				t.Fatalf("Navigate: %v", err)
			}
			html, err := p.HTML(context.Background())
			if err != nil {
				t.Fatalf("HTML: %v", err)
			}
			if html != testPage {
				t.Errorf("decoded body = %q", html)
			}
		})
	}
}

func TestPage_SendsIdentityHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	id := browser.NewIdentity(func(int) int { return 0 }, []string{"test-agent"}, nil)
	p, _ := NewClient(5*time.Second, id).NewPage(context.Background())
	if err := p.Navigate(context.Background(), srv.URL, 0); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	if got.Get("User-Agent") != "test-agent" {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
	if !strings.HasPrefix(got.Get("Accept-Language"), "es-ES") {
		t.Errorf("Accept-Language = %q", got.Get("Accept-Language"))
	}
}

func TestPage_Exists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	p, _ := NewClient(5*time.Second, browser.Identity{}).NewPage(context.Background())
	if err := p.Navigate(context.Background(), srv.URL, 0); err != nil {
		t.Fatalf("Navigate should keep error pages: %v", err)
	}

	ok, err := p.Exists(context.Background(), "#cf-challenge-running, .challenge-running")
	if err != nil || !ok {
		t.Errorf("Exists(challenge) = %v, %v", ok, err)
	}
	ok, err = p.Exists(context.Background(), ".missing")
	if err != nil || ok {
		t.Errorf("Exists(.missing) = %v, %v", ok, err)
	}
}
