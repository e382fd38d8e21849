package model

import "strings"

// FilterAction 违禁词处理方式
type FilterAction string

const (
	FilterCensor FilterAction = "CENSOR"
	FilterBlock  FilterAction = "BLOCK"
	FilterFlag   FilterAction = "FLAG"
)

// Valid 是否为已知处理方式
func (a FilterAction) Valid() bool {
	return a == FilterCensor || a == FilterBlock || a == FilterFlag
}

// ModerationSettings 审核配置
type ModerationSettings struct {
	ID                   int64        `db:"id" json:"id"`
	IsActive             bool         `db:"is_active" json:"is_active"`
	ProfanityFilter      bool         `db:"profanity_filter" json:"profanity_filter"`
	RequireApproval      bool         `db:"require_approval" json:"require_approval"`
	BannedWords          string       `db:"banned_words" json:"banned_words"` // 逗号分隔
	FilterAction         FilterAction `db:"filter_action" json:"filter_action"`
	MinPostLength        int          `db:"min_post_length" json:"min_post_length"`
	MaxPostLength        int          `db:"max_post_length" json:"max_post_length"` // <=0 不限
	MaxLinksPerPost      int          `db:"max_links_per_post" json:"max_links_per_post"`
	ModerationQueue      bool         `db:"moderation_queue" json:"moderation_queue"`
	TrustedUserPostCount int          `db:"trusted_user_post_count" json:"trusted_user_post_count"`
	UpdatedAt            int64        `db:"updated_at" json:"updated_at"`
}

// Words 解析违禁词列表，去空白与空项
func (s *ModerationSettings) Words() []string {
	parts := strings.Split(s.BannedWords, ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if w := strings.TrimSpace(p); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// UpdateModerationRequest 更新审核配置请求
type UpdateModerationRequest struct {
	ProfanityFilter      *bool        `json:"profanity_filter" binding:"required"`
	RequireApproval      bool         `json:"require_approval"`
	BannedWords          []string     `json:"banned_words"`
	FilterAction         FilterAction `json:"filter_action" binding:"required"`
	MinPostLength        int          `json:"min_post_length"`
	MaxPostLength        int          `json:"max_post_length"`
	MaxLinksPerPost      int          `json:"max_links_per_post"`
	ModerationQueue      bool         `json:"moderation_queue"`
	TrustedUserPostCount int          `json:"trusted_user_post_count"`
}

// ToSettings 转换为配置行
func (r *UpdateModerationRequest) ToSettings() *ModerationSettings {
	return &ModerationSettings{
		IsActive:             true,
		ProfanityFilter:      r.ProfanityFilter != nil && *r.ProfanityFilter,
		RequireApproval:      r.RequireApproval,
		BannedWords:          strings.Join(r.BannedWords, ","),
		FilterAction:         r.FilterAction,
		MinPostLength:        r.MinPostLength,
		MaxPostLength:        r.MaxPostLength,
		MaxLinksPerPost:      r.MaxLinksPerPost,
		ModerationQueue:      r.ModerationQueue,
		TrustedUserPostCount: r.TrustedUserPostCount,
	}
}
