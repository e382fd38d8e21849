package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/repository"
)

const maxSlugLength = 100

var (
	slugInvalidRe   = regexp.MustCompile(`[^a-z0-9_\s-]`)
	slugSeparatorRe = regexp.MustCompile(`[\s_-]+`)
)

// Slugify 标题转 URL 片段，结果为空时返回 "thread"
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugInvalidRe.ReplaceAllString(s, "")
	s = slugSeparatorRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	if s == "" {
		return "thread"
	}
	return s
}

// SlugAssigner 分配唯一 slug
type SlugAssigner struct {
	threads repository.ThreadRepository
}

// NewSlugAssigner 创建 slug 分配器
func NewSlugAssigner(threads repository.ThreadRepository) *SlugAssigner {
	return &SlugAssigner{threads: threads}
}

// Assign 冲突时依次追加 -1、-2 ...；excludeTid 为重命名时的主题自身
func (a *SlugAssigner) Assign(ctx context.Context, title string, excludeTid int64) (string, error) {
	base := Slugify(title)
	slug := base
	for i := 1; ; i++ {
		taken, err := a.threads.SlugExists(ctx, slug, excludeTid)
		if err != nil {
			return "", apperr.Fatal("failed to check slug", err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
