package types

import "net/http"

// FetchResult は、1つのURLに対する単一のGETリクエストの結果を保持します。
// Err が nil の場合はトランスポートレベルで成功 (StatusCode と Body が有効) です。
type FetchResult struct {
	StatusCode int
	Body       []byte
	Err        error
}

// OK はトランスポートレベルで取得に成功したかどうかを返します。
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// LinkResult は、1つのURLに対するチェック結果です。
// チェッカーの出力であり、BatchReport の入力として利用されます。
type LinkResult struct {
	URL        string // 処理対象のURL
	StatusCode int    // HTTPステータスコード (取得失敗時は 0)
	Err        error  // 取得中に発生したエラー
	HasArticle bool   // 本文が十分な量存在するかどうか
}

// Valid はリンクが有効 (取得成功かつステータス 200) かどうかを返します。
func (r LinkResult) Valid() bool {
	return r.Err == nil && r.StatusCode == http.StatusOK
}

// BatchReport は1回のバッチ処理の集計結果です。生成後は変更されません。
// valid と invalid は互いに素で、withArticle は valid の部分集合です。
type BatchReport struct {
	valid       []string
	invalid     []string
	withArticle []string
}

// NewBatchReport は LinkResult の列を、その順序を保ったまま3つの区分に振り分けます。
func NewBatchReport(results []LinkResult) *BatchReport {
	r := &BatchReport{
		valid:       []string{},
		invalid:     []string{},
		withArticle: []string{},
	}
	for _, res := range results {
		if !res.Valid() {
			r.invalid = append(r.invalid, res.URL)
			continue
		}
		r.valid = append(r.valid, res.URL)
		if res.HasArticle {
			r.withArticle = append(r.withArticle, res.URL)
		}
	}
	return r
}

func (r *BatchReport) Valid() []string       { return clone(r.valid) }
func (r *BatchReport) Invalid() []string     { return clone(r.invalid) }
func (r *BatchReport) WithArticle() []string { return clone(r.withArticle) }

func (r *BatchReport) ValidCount() int       { return len(r.valid) }
func (r *BatchReport) InvalidCount() int     { return len(r.invalid) }
func (r *BatchReport) WithArticleCount() int { return len(r.withArticle) }

// Processed は処理されたURLの総数です。
func (r *BatchReport) Processed() int {
	return len(r.valid) + len(r.invalid)
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
