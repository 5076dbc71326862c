// Package preview 生成付费内容的纯文本预览。
package preview

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	DefaultWords = 150
	MinWords     = 1
	MaxWords     = 200
	Ellipsis     = "..."
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	// 去掉标签时补空格，避免 <p>a</p><p>b</p> 粘成一个词
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// StripMarkup 去掉所有标签并还原 HTML 实体
func StripMarkup(body string) string {
	return html.UnescapeString(policy.Sanitize(body))
}

// ClampWords n 为 0 表示未指定，使用默认值；其余值限制在 [MinWords, MaxWords]
func ClampWords(n int) int {
	switch {
	case n == 0:
		return DefaultWords
	case n < MinWords:
		return MinWords
	case n > MaxWords:
		return MaxWords
	}
	return n
}

// Truncate 取正文前 n 个词，用单个空格连接；原文词数超过 n 时追加 "..."
func Truncate(body string, n int) string {
	n = ClampWords(n)
	words := strings.Fields(StripMarkup(body))
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + Ellipsis
}
