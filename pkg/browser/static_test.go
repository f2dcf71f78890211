package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/surfcore/models"
)

const testPage = `<!DOCTYPE html>
<html><head><title>Test Page</title></head>
<body>
<h1 id="headline">Hello</h1>
<p class="para">First paragraph.</p>
<p class="para">Second paragraph.</p>
</body></html>`

func setupStaticHandle(t *testing.T, handler http.Handler) (Handle, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	driver := NewStaticDriver()
	handle, err := driver.CreateContext(context.Background(), ContextConfig{
		Identity: models.Identity{UserAgent: "surfcore-test/1.0", Locale: "en-US"},
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	return handle, srv
}

func TestStaticNavigate(t *testing.T) {
	var gotUA, gotLang string
	handle, srv := setupStaticHandle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte(testPage))
	}))

	res, err := handle.Navigate(context.Background(), srv.URL, WaitLoad, 0)
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Errorf("res.Status = %d, want %d", res.Status, http.StatusOK)
	}
	if res.FinalURL != srv.URL {
		t.Errorf("res.FinalURL = %q, want %q", res.FinalURL, srv.URL)
	}
	if gotUA != "surfcore-test/1.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "surfcore-test/1.0")
	}
	if gotLang != "en-US" {
		t.Errorf("Accept-Language = %q, want %q", gotLang, "en-US")
	}
}

func TestStaticNavigateFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	})
	handle, srv := setupStaticHandle(t, mux)

	res, err := handle.Navigate(context.Background(), srv.URL+"/start", WaitLoad, 0)
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if !strings.HasSuffix(res.FinalURL, "/final") {
		t.Errorf("res.FinalURL = %q, want suffix %q", res.FinalURL, "/final")
	}
	if res.Status != http.StatusOK {
		t.Errorf("res.Status = %d, want %d", res.Status, http.StatusOK)
	}
}

func TestStaticNavigateReportsErrorStatus(t *testing.T) {
	handle, srv := setupStaticHandle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))

	// A served error page is still a navigation; the caller reads the status.
	res, err := handle.Navigate(context.Background(), srv.URL, WaitLoad, 0)
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if res.Status != http.StatusForbidden {
		t.Errorf("res.Status = %d, want %d", res.Status, http.StatusForbidden)
	}
}

func TestStaticNavigateTimeout(t *testing.T) {
	handle, srv := setupStaticHandle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.Write([]byte(testPage))
	}))

	_, err := handle.Navigate(context.Background(), srv.URL, WaitLoad, 50*time.Millisecond)
	if err == nil {
		t.Fatal("Navigate returned nil error, want timeout")
	}
	if !models.IsKind(err, models.ErrTimeout) {
		t.Errorf("error kind = %v, want ErrTimeout", err)
	}
	if !models.IsTransient(err) {
		t.Errorf("IsTransient(%v) = false, want true", err)
	}
}

func TestStaticExtractDOM(t *testing.T) {
	handle, srv := setupStaticHandle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	if _, err := handle.Navigate(context.Background(), srv.URL, WaitLoad, 0); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	tests := []struct {
		name     string
		selector string
		want     []string
		wantErr  bool
	}{
		{name: "whole page", selector: "", want: []string{"<title>Test Page</title>", "Second paragraph."}},
		{name: "single element", selector: "#headline", want: []string{"Hello"}},
		{name: "all matches", selector: "p.para", want: []string{"First paragraph.", "Second paragraph."}},
		{name: "no match", selector: "#missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := handle.ExtractDOM(context.Background(), tt.selector)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ExtractDOM returned nil error, want failure")
				}
				if !models.IsKind(err, models.ErrBrowserOperation) {
					t.Errorf("error kind = %v, want ErrBrowserOperation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractDOM failed: %v", err)
			}
			for _, fragment := range tt.want {
				if !strings.Contains(got, fragment) {
					t.Errorf("ExtractDOM(%q) missing %q in output", tt.selector, fragment)
				}
			}
		})
	}
}

func TestStaticExtractDOMBeforeNavigate(t *testing.T) {
	handle, _ := setupStaticHandle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))

	if _, err := handle.ExtractDOM(context.Background(), ""); err == nil {
		t.Fatal("ExtractDOM before Navigate returned nil error")
	}
}

func TestStaticUnsupportedOperations(t *testing.T) {
	handle, srv := setupStaticHandle(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	if _, err := handle.Navigate(context.Background(), srv.URL, WaitLoad, 0); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	if err := handle.Interact(context.Background(), ActionClick, "#headline", "", 0); !models.IsKind(err, models.ErrBrowserOperation) {
		t.Errorf("Interact error = %v, want ErrBrowserOperation", err)
	}
	if _, err := handle.Screenshot(context.Background(), ScreenshotOptions{}); !models.IsKind(err, models.ErrBrowserOperation) {
		t.Errorf("Screenshot error = %v, want ErrBrowserOperation", err)
	}
}
