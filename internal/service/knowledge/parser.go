package knowledge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/docx"
	"github.com/cloudwego/eino-ext/components/document/parser/html"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoparser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
)

// Parser 格式多态的文档解析器
// 根据扩展名选择具体解析实现，输出统一的 UTF-8 纯文本。
type Parser struct {
	httpClient *http.Client
}

// NewParser 创建解析器
func NewParser() *Parser {
	return &Parser{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Parse 解析文件内容
// name 用于识别格式；解析后没有任何文本时返回 ParseError。
func (p *Parser) Parse(ctx context.Context, name string, reader io.Reader) (string, error) {
	fileParser, err := p.newFileParser(ctx, name)
	if err != nil {
		return "", err
	}

	docs, err := fileParser.Parse(ctx, reader)
	if err != nil {
		return "", &ParseError{Source: name, Err: err}
	}

	text := normalizeText(joinDocuments(docs))
	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Source: name, Err: ErrEmptyContent}
	}
	return text, nil
}

// ParseWebPage 抓取网页并提取正文
func (p *Parser) ParseWebPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &ParseError{Source: url, Err: err}
	}
	req.Header.Set("User-Agent", "Context-OS/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &ParseError{Source: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ParseError{Source: url, Err: fmt.Errorf("fetch returned status %d", resp.StatusCode)}
	}

	bodySelector := "body"
	htmlParser, err := html.NewParser(ctx, &html.Config{Selector: &bodySelector})
	if err != nil {
		return "", &ParseError{Source: url, Err: err}
	}

	docs, err := htmlParser.Parse(ctx, resp.Body)
	if err != nil {
		return "", &ParseError{Source: url, Err: err}
	}

	text := normalizeText(joinDocuments(docs))
	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Source: url, Err: ErrEmptyContent}
	}
	return text, nil
}

// newFileParser 按扩展名创建解析器
func (p *Parser) newFileParser(ctx context.Context, name string) (einoparser.Parser, error) {
	switch fileExt(name) {
	case ".pdf":
		return pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	case ".docx":
		return docx.NewDocxParser(ctx, &docx.Config{
			ToSections:      false,
			IncludeComments: false,
			IncludeHeaders:  true,
			IncludeFooters:  false,
			IncludeTables:   true,
		})
	case ".html", ".htm":
		bodySelector := "body"
		return html.NewParser(ctx, &html.Config{Selector: &bodySelector})
	case ".txt", ".md", ".markdown":
		return &textParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileExt(name))
	}
}

// textParser 纯文本解析器
type textParser struct{}

func (p *textParser) Parse(_ context.Context, reader io.Reader, opts ...einoparser.Option) ([]*schema.Document, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}
	if len(content) == 0 {
		return []*schema.Document{}, nil
	}
	return []*schema.Document{
		{Content: string(content), MetaData: make(map[string]any)},
	}, nil
}

func joinDocuments(docs []*schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Content != "" {
			parts = append(parts, d.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// normalizeText 规整为合法 UTF-8 并去掉 NUL 字符
func normalizeText(text string) string {
	text = strings.ToValidUTF8(text, "")
	return strings.ReplaceAll(text, "\x00", "")
}

func fileExt(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '.':
			return strings.ToLower(name[i:])
		case '/', '\\':
			return ""
		}
	}
	return ""
}
