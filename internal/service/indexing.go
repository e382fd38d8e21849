package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"well_bbs/internal/core/config"
	"well_bbs/internal/core/logger"
)

const indexingDedupPrefix = "indexnow"

// indexNowPayload IndexNow 提交内容
type indexNowPayload struct {
	Host        string   `json:"host"`
	Key         string   `json:"key"`
	KeyLocation string   `json:"keyLocation,omitempty"`
	URLList     []string `json:"urlList"`
}

// SearchIndexer 新主题公开后推送给 IndexNow（Bing、Yandex 等）
type SearchIndexer struct {
	client  *http.Client
	cfg     config.IndexingConfig
	baseURL string
	rdb     *redis.Client
}

// NewSearchIndexer 创建推送器；cfg.Endpoint 为空时返回 nil
func NewSearchIndexer(cfg config.IndexingConfig, baseURL string, rdb *redis.Client) *SearchIndexer {
	if cfg.Endpoint == "" || baseURL == "" {
		return nil
	}
	return &SearchIndexer{
		client:  &http.Client{Timeout: 5 * time.Second},
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		rdb:     rdb,
	}
}

// ThreadURL 主题的公开地址
func (s *SearchIndexer) ThreadURL(tid int64, slug string) string {
	u := fmt.Sprintf("%s/thread/%d", s.baseURL, tid)
	if slug != "" {
		u += "/" + slug
	}
	return u
}

// Handle 事件总线适配
func (s *SearchIndexer) Handle(ctx context.Context, event any) error {
	ev, ok := event.(*PostPublished)
	if !ok {
		return nil
	}
	// 回复与待审内容不推送
	if !ev.NewThread || !ev.Approved {
		return nil
	}
	return s.Submit(ctx, s.ThreadURL(ev.Tid, ev.Slug))
}

// Submit 提交单个地址，去重窗口内重复提交直接跳过
func (s *SearchIndexer) Submit(ctx context.Context, pageURL string) error {
	key := fmt.Sprintf("%s:%s", indexingDedupPrefix, pageURL)
	fresh, err := s.rdb.SetNX(ctx, key, "1", s.cfg.GetDedupTTL()).Result()
	if err != nil {
		return err
	}
	if !fresh {
		logger.Debug("indexnow: already submitted", logger.String("url", pageURL))
		return nil
	}

	if err := s.post(ctx, []string{pageURL}); err != nil {
		// 释放去重标记，交给事件总线重试
		s.rdb.Del(ctx, key)
		return err
	}
	logger.Info("indexnow: submitted", logger.String("url", pageURL))
	return nil
}

func (s *SearchIndexer) post(ctx context.Context, urls []string) error {
	u, err := url.Parse(urls[0])
	if err != nil {
		return err
	}
	body, err := json.Marshal(indexNowPayload{
		Host:        u.Host,
		Key:         s.cfg.Key,
		KeyLocation: s.cfg.KeyLocation,
		URLList:     urls,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("indexnow submit failed: %d, %s", resp.StatusCode, string(msg))
	}
	return nil
}
