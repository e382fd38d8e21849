package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"well_bbs/internal/model"
)

const notificationColumns = "id, uid, type, title, action_url, triggered_by, tid, pid, is_read, created_at"

// NotificationRepository 通知、通知偏好与主题订阅数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, uid int64, unreadOnly bool, offset, limit int) ([]*model.Notification, error)
	CountUnread(ctx context.Context, uid int64) (int, error)
	MarkRead(ctx context.Context, id, uid int64) (bool, error)
	MarkAllRead(ctx context.Context, uid int64) error

	IsEnabled(ctx context.Context, uid int64, typ model.NotificationType) (bool, error)
	SetPreference(ctx context.Context, pref *model.NotificationPreference) error
	ListPreferences(ctx context.Context, uid int64) ([]*model.NotificationPreference, error)

	Subscribe(ctx context.Context, tid, uid, at int64) error
	Unsubscribe(ctx context.Context, tid, uid int64) error
	IsSubscribed(ctx context.Context, tid, uid int64) (bool, error)
	ListSubscribers(ctx context.Context, tid int64) ([]int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository 创建通知仓库
func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create 写入通知
func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"INSERT INTO notification ("+notificationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		n.ID, n.Uid, n.Type, n.Title, n.ActionURL, n.TriggeredBy, n.Tid, n.Pid, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByUser 用户通知，新的在前
func (r *notificationRepository) ListByUser(ctx context.Context, uid int64, unreadOnly bool, offset, limit int) ([]*model.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notification WHERE uid = ?"
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"

	var list []*model.Notification
	if err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &list, query, uid, limit, offset); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// CountUnread 未读数
func (r *notificationRepository) CountUnread(ctx context.Context, uid int64) (int, error) {
	var n int
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &n, "SELECT COUNT(*) FROM notification WHERE uid = ? AND is_read = 0", uid)
	return n, err
}

// MarkRead 标记已读，返回是否命中
func (r *notificationRepository) MarkRead(ctx context.Context, id, uid int64) (bool, error) {
	res, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"UPDATE notification SET is_read = 1 WHERE id = ? AND uid = ?", id, uid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkAllRead 全部已读
func (r *notificationRepository) MarkAllRead(ctx context.Context, uid int64) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx, "UPDATE notification SET is_read = 1 WHERE uid = ? AND is_read = 0", uid)
	return err
}

// IsEnabled 通知类型是否开启，无偏好记录视为开启
func (r *notificationRepository) IsEnabled(ctx context.Context, uid int64, typ model.NotificationType) (bool, error) {
	var prefs []bool
	err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &prefs,
		"SELECT enabled FROM notification_preference WHERE uid = ? AND type = ?", uid, typ)
	if err != nil {
		return false, fmt.Errorf("get preference: %w", err)
	}
	if len(prefs) == 0 {
		return true, nil
	}
	return prefs[0], nil
}

// SetPreference 写入偏好
func (r *notificationRepository) SetPreference(ctx context.Context, p *model.NotificationPreference) error {
	q := QuerierFromCtx(ctx, r.db)
	var n int
	if err := q.GetContext(ctx, &n, "SELECT COUNT(*) FROM notification_preference WHERE uid = ? AND type = ?", p.Uid, p.Type); err != nil {
		return fmt.Errorf("probe preference: %w", err)
	}
	var err error
	if n > 0 {
		_, err = q.ExecContext(ctx, "UPDATE notification_preference SET enabled = ? WHERE uid = ? AND type = ?", p.Enabled, p.Uid, p.Type)
	} else {
		_, err = q.ExecContext(ctx, "INSERT INTO notification_preference (uid, type, enabled) VALUES (?, ?, ?)", p.Uid, p.Type, p.Enabled)
	}
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

// ListPreferences 用户全部偏好记录
func (r *notificationRepository) ListPreferences(ctx context.Context, uid int64) ([]*model.NotificationPreference, error) {
	var list []*model.NotificationPreference
	err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &list,
		"SELECT uid, type, enabled FROM notification_preference WHERE uid = ? ORDER BY type", uid)
	return list, err
}

// Subscribe 订阅主题，重复订阅忽略
func (r *notificationRepository) Subscribe(ctx context.Context, tid, uid, at int64) error {
	ok, err := r.IsSubscribed(ctx, tid, uid)
	if err != nil || ok {
		return err
	}
	_, err = QuerierFromCtx(ctx, r.db).ExecContext(ctx,
		"INSERT INTO thread_subscription (tid, uid, created_at) VALUES (?, ?, ?)", tid, uid, at)
	return err
}

// Unsubscribe 取消订阅
func (r *notificationRepository) Unsubscribe(ctx context.Context, tid, uid int64) error {
	_, err := QuerierFromCtx(ctx, r.db).ExecContext(ctx, "DELETE FROM thread_subscription WHERE tid = ? AND uid = ?", tid, uid)
	return err
}

// IsSubscribed 是否已订阅
func (r *notificationRepository) IsSubscribed(ctx context.Context, tid, uid int64) (bool, error) {
	var n int
	err := QuerierFromCtx(ctx, r.db).GetContext(ctx, &n,
		"SELECT COUNT(*) FROM thread_subscription WHERE tid = ? AND uid = ?", tid, uid)
	if err != nil {
		return false, fmt.Errorf("probe subscription: %w", err)
	}
	return n > 0, nil
}

// ListSubscribers 主题订阅者
func (r *notificationRepository) ListSubscribers(ctx context.Context, tid int64) ([]int64, error) {
	var uids []int64
	err := QuerierFromCtx(ctx, r.db).SelectContext(ctx, &uids,
		"SELECT uid FROM thread_subscription WHERE tid = ? ORDER BY created_at ASC", tid)
	if err != nil {
		return nil, fmt.Errorf("list subscribers of %d: %w", tid, err)
	}
	return uids, nil
}
