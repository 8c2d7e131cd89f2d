package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"
	"golang.org/x/net/html"
)

// ----------------------------------------------------------------------
// 定数定義 (解析関連のみ)
// ----------------------------------------------------------------------
const (
	// SignificantWordCount を超える単語数を持つページを「本文あり」と判定します。
	SignificantWordCount = 300
)

// mainContentSelectors は本文領域の探索順です。最初に見つかった要素を採用し、
// どれも見つからない場合はドキュメント全体を対象とします。
var mainContentSelectors = []string{"main", "article", ".content"}

// skipTags は表示されないテキストを含む要素です。
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Classifier は、HTMLボディから本文を抽出し、十分な量の本文があるかを判定します。
type Classifier struct{}

// NewClassifier は、新しいClassifierのインスタンスを生成します。
func NewClassifier() *Classifier {
	return &Classifier{}
}

// HasSignificantContent は本文の単語数が SignificantWordCount を超えるかどうかを返します。
func (c *Classifier) HasSignificantContent(body []byte) bool {
	return c.WordCount(body) > SignificantWordCount
}

// Classify は単語数と、それが SignificantWordCount を超えるかどうかを返します。
func (c *Classifier) Classify(body []byte) (words int, significant bool) {
	words = c.WordCount(body)
	return words, words > SignificantWordCount
}

// WordCount は本文テキストを空白で分割した単語数を返します。
func (c *Classifier) WordCount(body []byte) int {
	return len(strings.Fields(c.MainText(body)))
}

// MainText は本文領域の可視テキストを、テキストノードごとに半角スペースで連結して返します。
// HTMLとして解析できない場合は空文字列を返します。
func (c *Classifier) MainText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var parts []string
	for _, n := range findMainContent(doc).Nodes {
		parts = collectText(n, parts)
	}
	return strings.Join(parts, " ")
}

// findMainContent はメインコンテントを取得
func findMainContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range mainContentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

// collectText は n 配下のテキストノードを文書順に収集します。
func collectText(n *html.Node, parts []string) []string {
	switch n.Type {
	case html.TextNode:
		if text := textUtils.NormalizeText(n.Data); text != "" {
			parts = append(parts, text)
		}
		return parts
	case html.ElementNode:
		if skipTags[n.Data] {
			return parts
		}
	case html.CommentNode, html.DoctypeNode:
		return parts
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		parts = collectText(child, parts)
	}
	return parts
}
