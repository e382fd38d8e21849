package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"well_bbs/internal/model"
)

const moderationColumns = "id, is_active, profanity_filter, require_approval, banned_words, filter_action, min_post_length, max_post_length, max_links_per_post, moderation_queue, trusted_user_post_count, updated_at"

// ModerationRepository 审核配置数据访问接口
type ModerationRepository interface {
	GetActive(ctx context.Context) (*model.ModerationSettings, error)
	Save(ctx context.Context, settings *model.ModerationSettings) error
}

type moderationRepository struct {
	db *sqlx.DB
}

// NewModerationRepository 创建审核配置仓库
func NewModerationRepository(db *sqlx.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

// GetActive 第一条生效配置，无记录返回 nil
func (r *moderationRepository) GetActive(ctx context.Context) (*model.ModerationSettings, error) {
	var s model.ModerationSettings
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &s,
		"SELECT "+moderationColumns+" FROM moderation_settings WHERE is_active = 1 ORDER BY id ASC LIMIT 1")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get moderation settings: %w", err)
	}
	return &s, nil
}

// Save 按 id 更新，记录不存在则插入
func (r *moderationRepository) Save(ctx context.Context, s *model.ModerationSettings) error {
	q := QuerierFromCtx(ctx, r.db)
	values := map[string]interface{}{
		"is_active":               s.IsActive,
		"profanity_filter":        s.ProfanityFilter,
		"require_approval":        s.RequireApproval,
		"banned_words":            s.BannedWords,
		"filter_action":           s.FilterAction,
		"min_post_length":         s.MinPostLength,
		"max_post_length":         s.MaxPostLength,
		"max_links_per_post":      s.MaxLinksPerPost,
		"moderation_queue":        s.ModerationQueue,
		"trusted_user_post_count": s.TrustedUserPostCount,
		"updated_at":              s.UpdatedAt,
	}

	var n int
	if err := q.GetContext(ctx, &n, "SELECT COUNT(*) FROM moderation_settings WHERE id = ?", s.ID); err != nil {
		return fmt.Errorf("probe moderation settings: %w", err)
	}

	var (
		query string
		args  []interface{}
		err   error
	)
	if n > 0 {
		query, args, err = sq.Update("moderation_settings").SetMap(values).Where(sq.Eq{"id": s.ID}).ToSql()
	} else {
		values["id"] = s.ID
		query, args, err = sq.Insert("moderation_settings").SetMap(values).ToSql()
	}
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save moderation settings: %w", err)
	}
	return nil
}
