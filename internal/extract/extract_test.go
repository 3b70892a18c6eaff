package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func articlePage(sentences int) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Test</title></head><body><nav>menu</nav><div id="content">`)
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, "This is sentence number %d of the main article body, long enough to matter. ", i)
	}
	b.WriteString(`</div><footer>footer noise</footer></body></html>`)
	return b.String()
}

func TestExtractSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage(10))
	}))
	defer server.Close()

	e := New(Config{MinLength: 100})
	content, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !content.Quality.OK {
		t.Fatalf("Expected usable content, got reason %q", content.Quality.Reason)
	}
	if !strings.Contains(content.Text, "sentence number 3") {
		t.Error("Expected extracted text to contain the article body")
	}
	if strings.Contains(content.Text, "footer noise") {
		t.Error("Expected noise elements to be stripped")
	}
}

func TestExtractTooShort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="content">tiny</div></body></html>`)
	}))
	defer server.Close()

	e := New(Config{MinLength: 200})
	content, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if content.Quality.OK {
		t.Fatal("Expected too-short content to be rejected")
	}
	if content.Quality.Reason != ReasonTooShort {
		t.Errorf("Expected reason %q, got %q", ReasonTooShort, content.Quality.Reason)
	}
	if content.Text != "" {
		t.Error("Expected rejected content to carry no text")
	}
}

func TestExtractFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	e := New(Config{})
	content, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if content.Quality.Reason != ReasonFetchError {
		t.Errorf("Expected reason %q, got %q", ReasonFetchError, content.Quality.Reason)
	}
}

func TestExtractTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, articlePage(5))
	}))
	defer server.Close()

	e := New(Config{Timeout: 50 * time.Millisecond})
	content, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if content.Quality.OK {
		t.Fatal("Expected timed-out fetch to be unusable")
	}
	if content.Quality.Reason != ReasonTimeout {
		t.Errorf("Expected reason %q, got %q", ReasonTimeout, content.Quality.Reason)
	}
}

func TestExtractErrorPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="content">Page Not Found. The page you requested does not exist on this server anymore.</div></body></html>`)
	}))
	defer server.Close()

	e := New(Config{MinLength: 10})
	content, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if content.Quality.Reason != ReasonErrorPage {
		t.Errorf("Expected reason %q, got %q", ReasonErrorPage, content.Quality.Reason)
	}
}

func TestExtractInvalidURL(t *testing.T) {
	e := New(Config{})
	for _, bad := range []string{"", "not a url", "ftp://example.com/file"} {
		if _, err := e.Extract(context.Background(), bad); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Expected ErrInvalidURL for %q, got %v", bad, err)
		}
	}
}

func TestExtractParagraphFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<p>This is the first paragraph of the page and it carries a reasonable amount of text content.</p>
			<p>This is the second paragraph of the page, also carrying enough text to pass the size filter.</p>
		</body></html>`)
	}))
	defer server.Close()

	e := New(Config{MinLength: 100})
	content, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !content.Quality.OK {
		t.Fatalf("Expected paragraph fallback to produce usable content, got reason %q", content.Quality.Reason)
	}
	if !strings.Contains(content.Text, "second paragraph") {
		t.Error("Expected fallback text to include all paragraphs")
	}
}

func TestExtractAllRecombinesByIndex(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage(10))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	e := New(Config{MinLength: 100})
	urls := []string{bad.URL, good.URL, "::invalid::"}
	contents := e.ExtractAll(context.Background(), urls)

	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(contents))
	}
	if contents[0].Quality.OK || contents[0].Quality.Reason != ReasonFetchError {
		t.Errorf("Expected index 0 to be a fetch error, got %+v", contents[0].Quality)
	}
	if !contents[1].Quality.OK {
		t.Errorf("Expected index 1 to be usable, got reason %q", contents[1].Quality.Reason)
	}
	if contents[2].Quality.OK {
		t.Error("Expected index 2 (invalid URL) to be unusable")
	}
	for i, c := range contents {
		if c.URL != urls[i] {
			t.Errorf("Expected contents[%d].URL = %q, got %q", i, urls[i], c.URL)
		}
	}
}

func TestExtractAllOneSlowPageDoesNotBlockOthers(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage(10))
	}))
	defer fast.Close()

	e := New(Config{Timeout: 200 * time.Millisecond, MinLength: 100})

	start := time.Now()
	contents := e.ExtractAll(context.Background(), []string{slow.URL, fast.URL})
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("Expected fan-out to finish near the per-fetch timeout, took %v", elapsed)
	}
	if contents[0].Quality.OK {
		t.Error("Expected the slow page to time out")
	}
	if !contents[1].Quality.OK {
		t.Errorf("Expected the fast page to extract, got reason %q", contents[1].Quality.Reason)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	in := "a  b\n\nc\t d"
	if got := collapseWhitespace(in); got != "a b c d" {
		t.Errorf("Expected collapsed string, got %q", got)
	}
}
