package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"well_bbs/internal/core/logger"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
	"well_bbs/internal/repository"
)

// GateState 发布闸门状态
type GateState string

const (
	StateReceived          GateState = "RECEIVED"
	StatePermissionChecked GateState = "PERMISSION_CHECKED"
	StateForumStateChecked GateState = "FORUM_STATE_CHECKED"
	StateLengthChecked     GateState = "LENGTH_CHECKED"
	StateFiltered          GateState = "FILTERED"
	StateAccepted          GateState = "ACCEPTED"
	StateAcceptedPending   GateState = "ACCEPTED_PENDING_APPROVAL"
	StateRejected          GateState = "REJECTED"
)

// SubmissionKind 提交类型
type SubmissionKind string

const (
	SubmitPost   SubmissionKind = "post"
	SubmitThread SubmissionKind = "thread"
)

// Submission 一次发帖/发主题提交
type Submission struct {
	Kind     SubmissionKind
	Actor    *model.Actor
	ForumID  int64 // 发主题
	ThreadID int64 // 回帖
	Content  string
}

// Screening 内容检查结果
type Screening struct {
	Content    string
	Flagged    bool
	FlagReason string
	Settings   *model.ModerationSettings
}

// Decision 闸门决定
type Decision struct {
	State       GateState
	Content     string
	Approved    bool
	Flagged     bool
	FlagReason  string
	Forum       *model.Forum
	Thread      *model.Thread
	Permissions Permissions
}

// PublicationGate 发布闸门，只读
type PublicationGate struct {
	forums   repository.ForumRepository
	threads  repository.ThreadRepository
	perms    *PermissionResolver
	settings SettingsSource
}

// NewPublicationGate 创建发布闸门
func NewPublicationGate(forums repository.ForumRepository, threads repository.ThreadRepository, perms *PermissionResolver, settings SettingsSource) *PublicationGate {
	return &PublicationGate{
		forums:   forums,
		threads:  threads,
		perms:    perms,
		settings: settings,
	}
}

// Evaluate 依次执行各项检查，首个失败即返回 *apperr.AppError
func (g *PublicationGate) Evaluate(ctx context.Context, sub *Submission) (*Decision, error) {
	actor := sub.Actor
	if actor == nil {
		actor = model.GuestActor()
	}
	d := &Decision{State: StateReceived}
	reject := func(err error) (*Decision, error) {
		logger.Debug("publication rejected",
			logger.String("kind", string(sub.Kind)),
			logger.String("state", string(StateRejected)),
			logger.String("after", string(d.State)),
			logger.Int64("uid", actor.Uid),
			logger.String("reason", err.Error()))
		return nil, err
	}

	if err := g.loadTargets(ctx, sub, d); err != nil {
		return reject(err)
	}

	if sub.Kind == SubmitPost && d.Thread.IsLocked {
		return reject(apperr.Forbidden(apperr.CodeThreadLocked, "thread is locked"))
	}
	if d.Forum.IsLocked {
		return reject(apperr.Forbidden(apperr.CodeForumClosed, "forum is locked"))
	}
	if !d.Forum.IsActive {
		return reject(apperr.Forbidden(apperr.CodeForumClosed, "forum is inactive"))
	}
	d.State = StateForumStateChecked

	d.Permissions = g.perms.Resolve(ctx, actor.Uid, d.Forum.Fid, actor.Role)
	if err := checkPermission(sub.Kind, actor, d.Forum, d.Permissions); err != nil {
		return reject(err)
	}
	d.State = StatePermissionChecked

	settings := g.settings.GetSettings(ctx)
	if err := CheckLimits(settings, sub.Content); err != nil {
		return reject(err)
	}
	d.State = StateLengthChecked

	sc, err := FilterContent(settings, sub.Content)
	if err != nil {
		return reject(err)
	}
	d.State = StateFiltered

	d.Content = sc.Content
	d.Flagged = sc.Flagged
	d.FlagReason = sc.FlagReason
	d.Approved = Approved(sc.Flagged, settings, actor.PostCount)
	if d.Approved {
		d.State = StateAccepted
	} else {
		d.State = StateAcceptedPending
	}
	return d, nil
}

func (g *PublicationGate) loadTargets(ctx context.Context, sub *Submission, d *Decision) error {
	fid := sub.ForumID
	if sub.Kind == SubmitPost {
		thread, err := g.threads.GetByID(ctx, sub.ThreadID)
		if err != nil {
			return apperr.Fatal("failed to load thread", err)
		}
		if thread == nil || thread.Deleted {
			return apperr.NotFound(apperr.CodeThreadNotFound, "thread not found")
		}
		d.Thread = thread
		fid = thread.Fid
	}

	forum, err := g.forums.GetByID(ctx, fid)
	if err != nil {
		return apperr.Fatal("failed to load forum", err)
	}
	if forum == nil {
		return apperr.NotFound(apperr.CodeForumNotFound, "forum not found")
	}
	d.Forum = forum
	return nil
}

func checkPermission(kind SubmissionKind, actor *model.Actor, forum *model.Forum, p Permissions) error {
	allowed := p.CanReply
	if kind == SubmitThread {
		allowed = p.CanPost
	}
	if !allowed {
		return apperr.Forbidden(apperr.CodeForbidden, "you do not have permission to post here")
	}
	if actor.IsGuest() && !forum.GuestPosting {
		return apperr.Forbidden(apperr.CodeForbidden, "guests cannot post in this forum")
	}
	if p.CanModerate {
		return nil
	}
	if kind == SubmitThread && !forum.CanPost {
		return apperr.Forbidden(apperr.CodeForumClosed, "new threads are disabled in this forum")
	}
	if kind == SubmitPost && !forum.CanReply {
		return apperr.Forbidden(apperr.CodeForumClosed, "replies are disabled in this forum")
	}
	return nil
}

// Screen 用当前审核配置检查内容；编辑帖子时复用
func (g *PublicationGate) Screen(ctx context.Context, content string) (*Screening, error) {
	settings := g.settings.GetSettings(ctx)
	if err := CheckLimits(settings, content); err != nil {
		return nil, err
	}
	return FilterContent(settings, content)
}

// CheckLimits 纯文本长度与链接数检查
func CheckLimits(s *model.ModerationSettings, content string) error {
	n := utf8.RuneCountInString(StripHTML(content))
	if n < s.MinPostLength || (s.MaxPostLength > 0 && n > s.MaxPostLength) {
		if s.MaxPostLength > 0 {
			return apperr.Validation(apperr.CodeContentLength,
				fmt.Sprintf("content length must be between %d and %d characters", s.MinPostLength, s.MaxPostLength))
		}
		return apperr.Validation(apperr.CodeContentLength,
			fmt.Sprintf("content must be at least %d characters", s.MinPostLength))
	}

	if s.MaxLinksPerPost >= 0 && CountLinks(content) > s.MaxLinksPerPost {
		return apperr.Validation(apperr.CodeTooManyLinks,
			fmt.Sprintf("too many links (max %d)", s.MaxLinksPerPost))
	}
	return nil
}

// FilterContent 对去首尾空白的内容执行违禁词动作
func FilterContent(s *model.ModerationSettings, content string) (*Screening, error) {
	res := NewContentFilter(s).Apply(strings.TrimSpace(content))
	if !res.Allowed {
		return nil, apperr.Validation(apperr.CodeProhibited, res.Reason)
	}
	return &Screening{
		Content:    res.Text,
		Flagged:    res.Flagged,
		FlagReason: res.Reason,
		Settings:   s,
	}, nil
}

// Approved 被标记、全局需审核、或审核队列开启且发帖数低于信任阈值时进入待审核
func Approved(flagged bool, s *model.ModerationSettings, postCount int) bool {
	return !(flagged || s.RequireApproval || (s.ModerationQueue && postCount < s.TrustedUserPostCount))
}
