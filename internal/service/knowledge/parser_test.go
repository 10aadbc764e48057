package knowledge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ========== 文件解析 ==========

func TestParsePlainText(t *testing.T) {
	parser := NewParser()

	text, err := parser.Parse(context.Background(), "notes.txt", strings.NewReader("第一段。\n\n第二段。"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if text != "第一段。\n\n第二段。" {
		t.Errorf("text = %q", text)
	}
}

func TestParseMarkdownPassthrough(t *testing.T) {
	parser := NewParser()

	content := "# Title\n\nsome **bold** text"
	text, err := parser.Parse(context.Background(), "README.md", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if text != content {
		t.Errorf("markdown must pass through unmodified, got %q", text)
	}
}

func TestParseHTMLExtractsBody(t *testing.T) {
	parser := NewParser()

	page := `<html><head><title>ignored</title></head><body><p>正文内容</p></body></html>`
	text, err := parser.Parse(context.Background(), "page.html", strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(text, "正文内容") {
		t.Errorf("text = %q, want body content", text)
	}
	if strings.Contains(text, "<p>") {
		t.Errorf("text = %q, tags must be stripped", text)
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse(context.Background(), "image.png", strings.NewReader("binary"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseEmptyContentFails(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name    string
		content string
	}{
		{"完全为空", ""},
		{"仅空白", "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(context.Background(), "empty.txt", strings.NewReader(tt.content))
			if err == nil {
				t.Fatal("expected error for empty content")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("err = %T, want *ParseError", err)
			}
		})
	}
}

func TestParseStripsInvalidUTF8(t *testing.T) {
	parser := NewParser()

	content := "valid\xff\xfe text\x00end"
	text, err := parser.Parse(context.Background(), "broken.txt", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if text != "valid text" + "end" {
		t.Errorf("text = %q, invalid bytes must be removed", text)
	}
}

// ========== 网页抓取 ==========

func TestParseWebPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "Context-OS/1.0" {
			t.Errorf("User-Agent = %q", ua)
		}
		fmt.Fprint(w, `<html><body><article>网页正文段落</article></body></html>`)
	}))
	defer srv.Close()

	parser := NewParser()
	text, err := parser.ParseWebPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ParseWebPage: %v", err)
	}
	if !strings.Contains(text, "网页正文段落") {
		t.Errorf("text = %q", text)
	}
}

func TestParseWebPageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	parser := NewParser()
	_, err := parser.ParseWebPage(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %T, want *ParseError", err)
	}
}

func TestFileExt(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"doc.PDF", ".pdf"},
		{"a/b/c.txt", ".txt"},
		{"noext", ""},
		{"dir.d/file", ""},
	}
	for _, tt := range tests {
		if got := fileExt(tt.name); got != tt.want {
			t.Errorf("fileExt(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
