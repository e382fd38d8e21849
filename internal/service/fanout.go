package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"well_bbs/internal/core/logger"
	"well_bbs/internal/core/snowflake"
	"well_bbs/internal/model"
	"well_bbs/internal/repository"
)

// TopicPostPublished 帖子提交后事件
const TopicPostPublished = "post.published"

// PostPublished 帖子已提交
type PostPublished struct {
	Tid       int64
	Pid       int64
	Fid       int64
	AuthorUID int64
	Subject   string
	Slug      string
	Content   string // 原始 HTML
	NewThread bool   // 主题首帖
	Approved  bool
}

var mentionRe = regexp.MustCompile(`@(\w+)`)

// ExtractMentions 提取 @用户名，按首次出现去重
func ExtractMentions(content string) []string {
	matches := mentionRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// NotificationFanout 回帖通知分发
type NotificationFanout struct {
	threads       repository.ThreadRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	metrics       *Metrics
}

// NewNotificationFanout 创建通知分发
func NewNotificationFanout(threads repository.ThreadRepository, users repository.UserRepository,
	notifications repository.NotificationRepository, metrics *Metrics) *NotificationFanout {
	return &NotificationFanout{
		threads:       threads,
		users:         users,
		notifications: notifications,
		metrics:       metrics,
	}
}

// Handle 事件总线入口
func (f *NotificationFanout) Handle(ctx context.Context, event any) error {
	ev, ok := event.(*PostPublished)
	if !ok {
		return fmt.Errorf("notification fanout: unexpected event %T", event)
	}
	return f.OnPostPublished(ctx, ev)
}

// OnPostPublished 通知楼主、订阅者与被 @ 的用户；单个收件人失败只记录日志。
// 仅主题查询失败时返回错误，交给事件总线重试。
func (f *NotificationFanout) OnPostPublished(ctx context.Context, ev *PostPublished) error {
	thread, err := f.threads.GetByID(ctx, ev.Tid)
	if err != nil {
		return fmt.Errorf("notification fanout: load thread %d: %w", ev.Tid, err)
	}
	if thread == nil {
		logger.Warn("notification fanout: thread vanished", logger.Int64("tid", ev.Tid))
		return nil
	}
	subject := thread.Subject
	url := fmt.Sprintf("/thread/%d#post-%d", ev.Tid, ev.Pid)

	if thread.Uid > 0 && thread.Uid != ev.AuthorUID {
		f.notify(ctx, ev, thread.Uid, model.NotifyReply, "New reply to your thread: "+subject, url)
	}

	uids, err := f.notifications.ListSubscribers(ctx, ev.Tid)
	if err != nil {
		logger.Warn("notification fanout: list subscribers failed",
			logger.Int64("tid", ev.Tid), logger.ErrorField(err))
	}
	for _, uid := range uids {
		if uid == ev.AuthorUID || uid == thread.Uid {
			continue
		}
		f.notify(ctx, ev, uid, model.NotifyThreadReply, "New reply in a thread you follow: "+subject, url)
	}

	names := ExtractMentions(ev.Content)
	if len(names) == 0 {
		return nil
	}
	users, err := f.users.GetByUsernames(ctx, names)
	if err != nil {
		logger.Warn("notification fanout: resolve mentions failed",
			logger.Int64("pid", ev.Pid), logger.ErrorField(err))
		return nil
	}
	for _, u := range users {
		if u.Uid == ev.AuthorUID {
			continue
		}
		f.notify(ctx, ev, u.Uid, model.NotifyMention, "You were mentioned in: "+subject, url)
	}
	return nil
}

func (f *NotificationFanout) notify(ctx context.Context, ev *PostPublished, uid int64, typ model.NotificationType, title, url string) {
	enabled, err := f.notifications.IsEnabled(ctx, uid, typ)
	if err != nil {
		f.record(typ, "failed")
		logger.Warn("notification fanout: preference lookup failed",
			logger.Int64("uid", uid), logger.String("type", string(typ)), logger.ErrorField(err))
		return
	}
	if !enabled {
		f.record(typ, "skipped")
		return
	}

	n := &model.Notification{
		ID:          snowflake.Generate(),
		Uid:         uid,
		Type:        typ,
		Title:       title,
		ActionURL:   url,
		TriggeredBy: ev.AuthorUID,
		Tid:         ev.Tid,
		Pid:         ev.Pid,
		CreatedAt:   time.Now().Unix(),
	}
	if err := f.notifications.Create(ctx, n); err != nil {
		f.record(typ, "failed")
		logger.Warn("notification fanout: create failed",
			logger.Int64("uid", uid), logger.String("type", string(typ)), logger.ErrorField(err))
		return
	}
	f.record(typ, "sent")
}

func (f *NotificationFanout) record(typ model.NotificationType, result string) {
	if f.metrics != nil {
		f.metrics.Notification.WithLabelValues(string(typ), result).Inc()
	}
}
