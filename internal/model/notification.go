package model

// NotificationType 通知类型
type NotificationType string

const (
	NotifyReply       NotificationType = "REPLY"
	NotifyThreadReply NotificationType = "THREAD_REPLY"
	NotifyMention     NotificationType = "MENTION"
)

// Valid 是否为已知类型
func (t NotificationType) Valid() bool {
	return t == NotifyReply || t == NotifyThreadReply || t == NotifyMention
}

// Notification 站内通知
type Notification struct {
	ID          int64            `db:"id" json:"id"`
	Uid         int64            `db:"uid" json:"uid"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	ActionURL   string           `db:"action_url" json:"action_url"`
	TriggeredBy int64            `db:"triggered_by" json:"triggered_by"`
	Tid         int64            `db:"tid" json:"tid"`
	Pid         int64            `db:"pid" json:"pid"`
	IsRead      bool             `db:"is_read" json:"is_read"`
	CreatedAt   int64            `db:"created_at" json:"created_at"`
}

// NotificationPreference 通知偏好，无记录视为开启
type NotificationPreference struct {
	Uid     int64            `db:"uid" json:"uid"`
	Type    NotificationType `db:"type" json:"type"`
	Enabled bool             `db:"enabled" json:"enabled"`
}

// PreferenceRequest 设置通知偏好
type PreferenceRequest struct {
	Type    NotificationType `json:"type" binding:"required"`
	Enabled bool             `json:"enabled"`
}

// ThreadSubscription 主题订阅
type ThreadSubscription struct {
	Tid       int64 `db:"tid"`
	Uid       int64 `db:"uid"`
	CreatedAt int64 `db:"created_at"`
}

// PostImage 帖子图片关联
type PostImage struct {
	ID        int64  `db:"id"`
	Pid       int64  `db:"pid"`
	URL       string `db:"url"`
	CreatedAt int64  `db:"created_at"`
}
