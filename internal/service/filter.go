package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"well_bbs/internal/model"
)

var (
	htmlTagRe      = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	linkRe         = regexp.MustCompile(`(?i)https?://`)
	entityReplacer = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`)
)

// StripHTML 去标签、解码常见实体、折叠空白；仅用于分析，不用于存储
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CountLinks 统计 http(s):// 出现次数
func CountLinks(s string) int {
	return len(linkRe.FindAllStringIndex(s, -1))
}

// CheckResult 违禁词检测结果
type CheckResult struct {
	HasBannedWords bool
	Matches        []string
	Filtered       string
}

// FilterResult 过滤动作结果
type FilterResult struct {
	Allowed bool
	Text    string
	Flagged bool
	Reason  string
}

type bannedWord struct {
	word string
	re   *regexp.Regexp
}

// ContentFilter 违禁词过滤
type ContentFilter struct {
	enabled bool
	action  model.FilterAction
	words   []bannedWord
}

// NewContentFilter 按审核配置编译词表
func NewContentFilter(s *model.ModerationSettings) *ContentFilter {
	f := &ContentFilter{enabled: s.ProfanityFilter, action: s.FilterAction}
	for _, w := range s.Words() {
		f.words = append(f.words, bannedWord{
			word: w,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`),
		})
	}
	return f
}

func censor(match string) string {
	return strings.Repeat("*", utf8.RuneCountInString(match))
}

// Check 整词、大小写不敏感匹配，Filtered 为打码后的文本
func (f *ContentFilter) Check(text string) CheckResult {
	res := CheckResult{Filtered: text}
	for _, w := range f.words {
		if !w.re.MatchString(text) {
			continue
		}
		res.HasBannedWords = true
		res.Matches = append(res.Matches, w.word)
		res.Filtered = w.re.ReplaceAllStringFunc(res.Filtered, censor)
	}
	return res
}

// Apply 在纯文本上检测，在原始 HTML 上执行动作
func (f *ContentFilter) Apply(raw string) FilterResult {
	if !f.enabled {
		return FilterResult{Allowed: true, Text: raw}
	}

	check := f.Check(StripHTML(raw))
	if !check.HasBannedWords {
		return FilterResult{Allowed: true, Text: raw}
	}
	words := strings.Join(check.Matches, ", ")

	switch f.action {
	case model.FilterBlock:
		return FilterResult{Allowed: false, Text: raw, Reason: "prohibited content: " + words}
	case model.FilterFlag:
		return FilterResult{Allowed: true, Text: raw, Flagged: true, Reason: "contains banned words: " + words}
	default:
		matched := make(map[string]struct{}, len(check.Matches))
		for _, m := range check.Matches {
			matched[m] = struct{}{}
		}
		text := raw
		for _, w := range f.words {
			if _, ok := matched[w.word]; ok {
				text = w.re.ReplaceAllStringFunc(text, censor)
			}
		}
		return FilterResult{Allowed: true, Text: text}
	}
}
