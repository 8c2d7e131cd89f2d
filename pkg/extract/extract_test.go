package extract_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shouni/go-link-checker/pkg/extract"
	"github.com/stretchr/testify/assert"
)

// words は "w1 w2 ... wn" 形式のテキストを生成します。
func words(n int) string {
	ws := make([]string, n)
	for i := range ws {
		ws[i] = fmt.Sprintf("w%d", i+1)
	}
	return strings.Join(ws, " ")
}

func TestHasSignificantContent_Threshold(t *testing.T) {
	testCases := []struct {
		name     string
		count    int
		expected bool
	}{
		{"zero_words", 0, false},
		{"exactly_threshold", extract.SignificantWordCount, false},
		{"one_over_threshold", extract.SignificantWordCount + 1, true},
		{"well_over_threshold", 500, true},
	}

	c := extract.NewClassifier()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			html := fmt.Sprintf(`<html><body><main><p>%s</p></main></body></html>`, words(tc.count))
			assert.Equal(t, tc.count, c.WordCount([]byte(html)))
			assert.Equal(t, tc.expected, c.HasSignificantContent([]byte(html)))
		})
	}
}

func TestMainText_SelectorFallback(t *testing.T) {
	testCases := []struct {
		name         string
		html         string
		expectedText string
	}{
		{
			name:         "main_preferred_over_article",
			html:         `<html><body><article>article text</article><main>main text</main></body></html>`,
			expectedText: "main text",
		},
		{
			name:         "article_when_no_main",
			html:         `<html><body><div class="content">content text</div><article>article text</article></body></html>`,
			expectedText: "article text",
		},
		{
			name:         "content_class_when_no_main_or_article",
			html:         `<html><body><nav>menu</nav><div class="content">content text</div></body></html>`,
			expectedText: "content text",
		},
		{
			name:         "first_match_only",
			html:         `<html><body><main>first</main><main>second</main></body></html>`,
			expectedText: "first",
		},
		{
			name:         "whole_document_fallback",
			html:         `<html><head><title>Title</title></head><body><nav>menu</nav><p>body text</p></body></html>`,
			expectedText: "Title menu body text",
		},
	}

	c := extract.NewClassifier()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedText, c.MainText([]byte(tc.html)))
		})
	}
}

func TestMainText_TextNormalization(t *testing.T) {
	c := extract.NewClassifier()

	t.Run("text_nodes_joined_with_space", func(t *testing.T) {
		html := `<main><p>alpha</p><p>beta</p><span>gamma</span></main>`
		assert.Equal(t, "alpha beta gamma", c.MainText([]byte(html)))
		assert.Equal(t, 3, c.WordCount([]byte(html)))
	})

	t.Run("redundant_whitespace_trimmed", func(t *testing.T) {
		html := "<main>\n\t  one   two \n\n three\t</main>"
		assert.Equal(t, 3, c.WordCount([]byte(html)))
	})

	t.Run("invisible_elements_skipped", func(t *testing.T) {
		html := `<main><script>var a = 1;</script><style>p{}</style><!-- note --><p>visible</p></main>`
		assert.Equal(t, "visible", c.MainText([]byte(html)))
	})
}

func TestWordCount_Degenerate(t *testing.T) {
	c := extract.NewClassifier()

	testCases := []struct {
		name string
		body string
	}{
		{"empty_body", ""},
		{"whitespace_only", "   \n\t "},
		{"markup_only", `<html><head></head><body><main></main></body></html>`},
		{"binary_garbage", "\x00\x01\x02\xff"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, c.HasSignificantContent([]byte(tc.body)))
		})
	}
}

func TestWordCount_MalformedMarkup(t *testing.T) {
	c := extract.NewClassifier()
	html := fmt.Sprintf(`<html><body><main><p>%s<div><span>`, words(301))
	assert.True(t, c.HasSignificantContent([]byte(html)))
}
