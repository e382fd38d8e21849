package service

import (
	"context"
	"time"

	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/repository"
)

// NotificationPage 通知分页
type NotificationPage struct {
	List   []*model.Notification `json:"list"`
	Unread int                   `json:"unread"`
	Page   int                   `json:"page"`
}

// NotificationService 通知、偏好与订阅
type NotificationService struct {
	repo    repository.NotificationRepository
	threads repository.ThreadRepository
}

// NewNotificationService 创建通知服务
func NewNotificationService(repo repository.NotificationRepository, threads repository.ThreadRepository) *NotificationService {
	return &NotificationService{repo: repo, threads: threads}
}

// List 当前用户通知
func (s *NotificationService) List(ctx context.Context, uid int64, unreadOnly bool, page, pageSize int) (*NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	list, err := s.repo.ListByUser(ctx, uid, unreadOnly, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, apperr.Fatal("failed to list notifications", err)
	}
	unread, err := s.repo.CountUnread(ctx, uid)
	if err != nil {
		return nil, apperr.Fatal("failed to count notifications", err)
	}
	if list == nil {
		list = []*model.Notification{}
	}
	return &NotificationPage{List: list, Unread: unread, Page: page}, nil
}

// MarkRead 标记单条已读，只能操作自己的通知
func (s *NotificationService) MarkRead(ctx context.Context, uid, id int64) error {
	ok, err := s.repo.MarkRead(ctx, id, uid)
	if err != nil {
		return apperr.Fatal("failed to mark notification", err)
	}
	if !ok {
		return apperr.NotFound(apperr.CodeNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead 全部已读
func (s *NotificationService) MarkAllRead(ctx context.Context, uid int64) error {
	if err := s.repo.MarkAllRead(ctx, uid); err != nil {
		return apperr.Fatal("failed to mark notifications", err)
	}
	return nil
}

// SetPreference 开关某类通知
func (s *NotificationService) SetPreference(ctx context.Context, uid int64, req *model.PreferenceRequest) error {
	if !req.Type.Valid() {
		return apperr.Validation(apperr.CodeBadRequest, "type must be REPLY, THREAD_REPLY or MENTION")
	}
	pref := &model.NotificationPreference{Uid: uid, Type: req.Type, Enabled: req.Enabled}
	if err := s.repo.SetPreference(ctx, pref); err != nil {
		return apperr.Fatal("failed to save preference", err)
	}
	return nil
}

// ListPreferences 已保存的偏好
func (s *NotificationService) ListPreferences(ctx context.Context, uid int64) ([]*model.NotificationPreference, error) {
	prefs, err := s.repo.ListPreferences(ctx, uid)
	if err != nil {
		return nil, apperr.Fatal("failed to list preferences", err)
	}
	return prefs, nil
}

// Subscribe 订阅主题
func (s *NotificationService) Subscribe(ctx context.Context, uid, tid int64) error {
	t, err := s.threads.GetByID(ctx, tid)
	if err != nil {
		return apperr.Fatal("failed to load thread", err)
	}
	if t == nil || t.Deleted {
		return apperr.NotFound(apperr.CodeThreadNotFound, "thread not found")
	}
	if err := s.repo.Subscribe(ctx, tid, uid, time.Now().Unix()); err != nil {
		return apperr.Fatal("failed to subscribe", err)
	}
	return nil
}

// Unsubscribe 取消订阅
func (s *NotificationService) Unsubscribe(ctx context.Context, uid, tid int64) error {
	if err := s.repo.Unsubscribe(ctx, tid, uid); err != nil {
		return apperr.Fatal("failed to unsubscribe", err)
	}
	return nil
}
