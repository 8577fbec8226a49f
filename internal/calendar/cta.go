package calendar

import (
	"regexp"
	"strings"

	"github.com/k-negishi/calendar-event-aggregator/internal/domain"
)

// ctaPattern 説明文に埋め込まれたCTA指定
//
// 書式: [CTA: <ボタン文言> | <URL>]
//   - "CTA" は大文字固定、":" と "|" の前後の空白は任意
//   - 文言には "[", "]", "|" を含められない
//   - URLには "[", "]" と空白を含められない
//
// 閉じ括弧のないもの、"|" のないもの、文言の中に括弧があるものは一致しない。
var ctaPattern = regexp.MustCompile(`\[\s*CTA\s*:\s*([^\[\]|]+?)\s*\|\s*([^\[\]\s]+)\s*\]`)

// CTAMatch 説明文から取り出したCTA
type CTAMatch struct {
	CTA domain.CTA
	// Description CTA指定を取り除いた説明文
	Description string
}

// ParseCTA 説明文からCTA指定を探す
//
// 有効なCTA指定が見つからない場合は ok=false を返す。
func ParseCTA(description string) (match CTAMatch, ok bool) {
	for _, loc := range ctaPattern.FindAllStringSubmatchIndex(description, -1) {
		text := strings.TrimSpace(description[loc[2]:loc[3]])
		link := strings.TrimSpace(description[loc[4]:loc[5]])
		if text == "" || link == "" {
			continue
		}

		return CTAMatch{
			CTA:         domain.CTA{Text: text, Link: link},
			Description: removeSpan(description, loc[0], loc[1]),
		}, true
	}
	return CTAMatch{}, false
}

// extractCTA CTAと説明文を決定する（未指定ならデフォルトCTA、説明文はそのまま）
func extractCTA(description string) (domain.CTA, string) {
	if match, ok := ParseCTA(description); ok {
		return match.CTA, match.Description
	}
	return domain.DefaultCTA(), description
}

// removeSpan s[start:end] を取り除き、継ぎ目の空白を1つにまとめる
func removeSpan(s string, start, end int) string {
	before := strings.TrimRight(s[:start], " \t")
	after := strings.TrimLeft(s[end:], " \t")

	sep := ""
	if before != "" && after != "" &&
		!strings.HasSuffix(before, "\n") && !strings.HasPrefix(after, "\n") {
		sep = " "
	}
	return strings.TrimSpace(before + sep + after)
}
