package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/shouni/go-link-checker/pkg/report"
	"github.com/shouni/go-link-checker/pkg/types"
)

// BatchChecker は URL リストを処理して BatchReport を返す機能の抽象化です。
// (*checker.Checker がこれを実装します)
type BatchChecker interface {
	Check(ctx context.Context, urls []string) (*types.BatchReport, error)
}

// ParseURLs は空白文字 (スペース・タブ・改行) で区切られた入力をURLのリストに分割します。
func ParseURLs(raw string) []string {
	return strings.Fields(raw)
}

// Result はパイプラインの出力です。
type Result struct {
	Report *types.BatchReport
	CSV    []byte
}

// Run はURLのチェックを実行し、レポートをCSVに変換するメインの処理パイプラインです。
// checker のエラー (ErrNoInput を含む) はそのまま返します。
func Run(ctx context.Context, checker BatchChecker, urls []string) (*Result, error) {
	batch, err := checker.Check(ctx, urls)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, report.Build(batch)); err != nil {
		return nil, fmt.Errorf("レポートの生成に失敗しました: %w", err)
	}
	return &Result{Report: batch, CSV: buf.Bytes()}, nil
}
