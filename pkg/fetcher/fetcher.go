package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/shouni/go-link-checker/pkg/types"
)

const (
	// DefaultHTTPTimeout は、クライアント全体のタイムアウトです。
	// URLごとのタイムアウトは呼び出し元の context で制御します。
	DefaultHTTPTimeout = 5 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB

	// サイトからのブロックを避けるためのUser-Agent
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースです。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetchError は、ネットワークエラー・DNSエラー・タイムアウトなどトランスポートレベルの失敗を表します。
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("URL(%s)の取得に失敗しました: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Timeout は失敗の原因がタイムアウトかどうかを返します。
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// Client は、URLごとに1回だけGETリクエストを発行します。リトライは行いません。
type Client struct {
	httpClient Doer
}

// ClientOption はClientの設定を行うための関数型です。
type ClientOption func(*Client)

// WithHTTPClient はカスタムのDoerを設定します。
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// New は新しいClientを初期化します。
// 接続はリクエストごとに閉じられ、バッチ間で再利用されません。
func New(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true

	c := &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Fetch は URL に対してGETを1回発行します。
// ステータス 200 の場合のみボディを読み込み、UTF-8 に変換して返します。
func (c *Client) Fetch(ctx context.Context, url string) types.FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.FetchResult{Err: &FetchError{URL: url, Err: err}}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.FetchResult{Err: &FetchError{URL: url, Err: err}}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.FetchResult{StatusCode: resp.StatusCode}
	}

	body, err := readBody(resp)
	if err != nil {
		return types.FetchResult{StatusCode: resp.StatusCode, Err: &FetchError{URL: url, Err: err}}
	}
	return types.FetchResult{StatusCode: resp.StatusCode, Body: body}
}

// readBody は最大 MaxBodySize バイトまでボディを読み込み、UTF-8 に変換します。
// Content-Type やメタタグから文字コードを判定できない場合は読み込んだバイト列をそのまま返します。
func readBody(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err)
	}

	r, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return raw, nil
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return raw, nil
	}
	return decoded, nil
}
