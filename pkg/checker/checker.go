package checker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shouni/go-link-checker/pkg/extract"
	"github.com/shouni/go-link-checker/pkg/fetcher"
	"github.com/shouni/go-link-checker/pkg/types"
)

const (
	// DefaultMaxConcurrency は、同時に実行するフェッチ数のデフォルト値です。
	DefaultMaxConcurrency = 10
	// MaxURLs を超えるURLは処理されず、レポートにも含まれません。
	MaxURLs = 100
	// FetchTimeout は1つのURLの取得と判定に許される時間です。
	FetchTimeout = 5 * time.Second
)

// ErrNoInput は、処理対象のURLが1つも渡されなかったことを示します。
var ErrNoInput = errors.New("no URLs provided")

// Fetcher は、1つのURLに対してGETを1回発行する機能のインターフェースです。
type Fetcher interface {
	Fetch(ctx context.Context, url string) types.FetchResult
}

// Classifier は、HTMLボディの単語数と、十分な本文があるかどうかを返す機能のインターフェースです。
type Classifier interface {
	Classify(body []byte) (words int, significant bool)
}

var (
	_ Fetcher    = (*fetcher.Client)(nil)
	_ Classifier = (*extract.Classifier)(nil)
)

// Checker はURLのリストを並列に取得・判定し、BatchReport を組み立てます。
type Checker struct {
	fetcher        Fetcher
	classifier     Classifier
	maxConcurrency int
	fetchTimeout   time.Duration
	logger         zerolog.Logger
	onResult       func(types.LinkResult)
}

// Option はCheckerの設定を行うための関数型です。
type Option func(*Checker)

// WithMaxConcurrency は同時実行数を設定します。0 以下の場合はデフォルト値を使用します。
func WithMaxConcurrency(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithLogger はURLごとの結果を出力するロガーを設定します。
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithResultHook は、各URLの処理が完了するたびに呼ばれる関数を設定します。
// 関数は複数のゴルーチンから同時に呼ばれます。
func WithResultHook(fn func(types.LinkResult)) Option {
	return func(c *Checker) {
		c.onResult = fn
	}
}

// New は Checker を初期化します。
func New(f Fetcher, cl Classifier, opts ...Option) *Checker {
	c := &Checker{
		fetcher:        f,
		classifier:     cl,
		maxConcurrency: DefaultMaxConcurrency,
		fetchTimeout:   FetchTimeout,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check は先頭 MaxURLs 件のURLを処理し、入力順を保った BatchReport を返します。
// URLが空の場合は ErrNoInput を返し、フェッチは行いません。
func (c *Checker) Check(ctx context.Context, urls []string) (*types.BatchReport, error) {
	if len(urls) == 0 {
		return nil, ErrNoInput
	}
	if len(urls) > MaxURLs {
		urls = urls[:MaxURLs]
	}

	log := c.loggerFrom(ctx)
	log.Info().Int("count", len(urls)).Int("concurrency", c.maxConcurrency).Msg("リンクチェックを開始します")

	// 各ゴルーチンは自分のインデックスにのみ書き込む
	results := make([]types.LinkResult, len(urls))

	var wg sync.WaitGroup
	// バッファ付きチャネルをセマフォとして使用し、同時実行数を制限する
	semaphore := make(chan struct{}, c.maxConcurrency)

	for i, url := range urls {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			results[i] = c.checkOne(ctx, u)
			if c.onResult != nil {
				c.onResult(results[i])
			}
		}(i, url)
	}

	wg.Wait()

	report := types.NewBatchReport(results)
	log.Info().
		Int("valid", report.ValidCount()).
		Int("invalid", report.InvalidCount()).
		Int("with_article", report.WithArticleCount()).
		Msg("リンクチェックが完了しました")
	return report, nil
}

// checkOne は1つのURLを取得し、ステータス 200 の場合は本文を判定します。
// タイムアウトはこのURLの処理のみを打ち切ります。
func (c *Checker) checkOne(ctx context.Context, url string) types.LinkResult {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	log := c.loggerFrom(ctx)
	res := c.fetcher.Fetch(ctx, url)
	result := types.LinkResult{URL: url, StatusCode: res.StatusCode, Err: res.Err}

	switch {
	case !res.OK():
		log.Error().Str("url", url).Err(res.Err).Msg("URLのチェック中にエラーが発生しました")
	case !result.Valid():
		log.Info().Str("url", url).Int("status", res.StatusCode).Msg("無効なステータスコード")
	default:
		var words int
		words, result.HasArticle = c.classifier.Classify(res.Body)
		log.Info().
			Str("url", url).
			Int("status", res.StatusCode).
			Int("words", words).
			Bool("has_article", result.HasArticle).
			Msg("URLのチェックが完了しました")
	}
	return result
}

// loggerFrom は ctx にリクエストスコープのロガーがあればそれを、なければ WithLogger で設定したロガーを返します。
func (c *Checker) loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &c.logger
}
