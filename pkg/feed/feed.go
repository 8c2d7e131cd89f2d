package feed

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// Fetcher は、フィード本体を取得する機能のインターフェースです。
// *httpkit.Client はこのインターフェースを満たします。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Parser は RSS/Atom フィードを取得・パースし、チェック対象のURLリストを組み立てます。
type Parser struct {
	client Fetcher
}

// NewParser は新しい Parser インスタンスを初期化し、依存関係を注入します。
func NewParser(client Fetcher) *Parser {
	return &Parser{client: client}
}

// FetchAndParse は指定されたURLからフィードを取得し、パースします。
func (p *Parser) FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := p.client.FetchBytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", feedURL, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("RSSフィードのパース失敗 (URL: %s): %w", feedURL, err)
	}
	return feed, nil
}

// FetchLinks はフィード内の記事リンクを、出現順に重複を除いて返します。
func (p *Parser) FetchLinks(ctx context.Context, feedURL string) ([]string, error) {
	feed, err := p.FetchAndParse(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return Links(feed), nil
}

// Links は gofeed.Feed から空でないリンクを抽出します。
func Links(feed *gofeed.Feed) []string {
	if feed == nil || len(feed.Items) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(feed.Items))
	urls := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		if _, dup := seen[item.Link]; dup {
			continue
		}
		seen[item.Link] = struct{}{}
		urls = append(urls, item.Link)
	}
	return urls
}
