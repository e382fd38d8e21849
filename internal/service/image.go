package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"well_bbs/internal/core/logger"
	"well_bbs/internal/core/snowflake"
	"well_bbs/internal/model"
	"well_bbs/internal/repository"
)

// ImageLinker 将帖子中的上传图片与帖子关联
type ImageLinker struct {
	images repository.PostImageRepository
	prefix string
}

// NewImageLinker 创建图片关联；prefix 为空时接受所有地址
func NewImageLinker(images repository.PostImageRepository, prefix string) *ImageLinker {
	return &ImageLinker{images: images, prefix: prefix}
}

// Extract 返回 prefix 下的 img src，去重并保持顺序
func (l *ImageLinker) Extract(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse post html: %w", err)
	}

	seen := make(map[string]struct{})
	var urls []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || !strings.HasPrefix(src, l.prefix) {
			return
		}
		if _, ok := seen[src]; ok {
			return
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
	})
	return urls, nil
}

// Handle 事件总线入口；失败只记日志
func (l *ImageLinker) Handle(ctx context.Context, event any) error {
	ev, ok := event.(*PostPublished)
	if !ok {
		return fmt.Errorf("image linker: unexpected event %T", event)
	}
	l.OnPostPublished(ctx, ev)
	return nil
}

// OnPostPublished 插入 post_image 记录
func (l *ImageLinker) OnPostPublished(ctx context.Context, ev *PostPublished) {
	urls, err := l.Extract(ev.Content)
	if err != nil {
		logger.Warn("image linker: extract failed", logger.Int64("pid", ev.Pid), logger.ErrorField(err))
		return
	}
	now := time.Now().Unix()
	for _, u := range urls {
		img := &model.PostImage{
			ID:        snowflake.Generate(),
			Pid:       ev.Pid,
			URL:       u,
			CreatedAt: now,
		}
		if err := l.images.Create(ctx, img); err != nil {
			logger.Warn("image linker: save failed",
				logger.Int64("pid", ev.Pid), logger.String("url", u), logger.ErrorField(err))
		}
	}
}
