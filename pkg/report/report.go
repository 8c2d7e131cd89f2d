package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shouni/go-link-checker/pkg/types"
)

const (
	// FileName は、ダウンロードされるCSVのファイル名です。
	FileName = "links_analysis.csv"
	// ContentType は、CSVレスポンスのMIMEタイプです。
	ContentType = "text/csv"

	linkSeparator = ", "
)

// Header はCSVのヘッダー行です。Record.Row と同じ順序です。
var Header = []string{
	"Valid Links Count",
	"Invalid Links Count",
	"Links with Articles Count",
	"Valid Links",
	"Invalid Links",
	"Links with Articles",
}

// Record は BatchReport を平坦化した1行分のデータです。
type Record struct {
	ValidCount       int
	InvalidCount     int
	WithArticleCount int
	ValidLinks       string
	InvalidLinks     string
	WithArticleLinks string
}

// Build は BatchReport から Record を生成します。
// 各区分のURLは追加された順に ", " で連結されます。
func Build(r *types.BatchReport) Record {
	return Record{
		ValidCount:       r.ValidCount(),
		InvalidCount:     r.InvalidCount(),
		WithArticleCount: r.WithArticleCount(),
		ValidLinks:       strings.Join(r.Valid(), linkSeparator),
		InvalidLinks:     strings.Join(r.Invalid(), linkSeparator),
		WithArticleLinks: strings.Join(r.WithArticle(), linkSeparator),
	}
}

// Row は Header に対応するフィールドの並びを返します。
func (rec Record) Row() []string {
	return []string{
		strconv.Itoa(rec.ValidCount),
		strconv.Itoa(rec.InvalidCount),
		strconv.Itoa(rec.WithArticleCount),
		rec.ValidLinks,
		rec.InvalidLinks,
		rec.WithArticleLinks,
	}
}

// WriteCSV はヘッダー行と1行のデータをUTF-8のCSVとして書き込みます。
func WriteCSV(w io.Writer, rec Record) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll([][]string{Header, rec.Row()}); err != nil {
		return fmt.Errorf("CSVの書き込みに失敗しました: %w", err)
	}
	return nil
}
