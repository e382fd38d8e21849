package service

import (
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"well_bbs/internal/core/config"
	"well_bbs/internal/model"
	"well_bbs/internal/pkg/pool"
	"well_bbs/internal/repository"
)

// ContainerDeps 组装服务所需的基础设施
type ContainerDeps struct {
	DB         *sqlx.DB
	Redis      *redis.Client
	Config     *config.Config
	Clock      clockwork.Clock
	Registerer prometheus.Registerer
	Events     EventPublisher
}

// Container 全部业务服务
type Container struct {
	Users         *UserService
	Forums        *ForumService
	Threads       *ThreadService
	Groups        *GroupService
	Notifications *NotificationService
	Moderation    *ModerationStore
	Publish       *PublishService
	Fanout        *NotificationFanout
	Images        *ImageLinker
	Metrics       *Metrics
}

// NewContainer 按依赖顺序构造 repository 与 service
func NewContainer(d ContainerDeps) *Container {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	cfg := d.Config

	forums := repository.NewForumRepository(d.DB)
	threads := repository.NewThreadRepository(d.DB)
	posts := repository.NewPostRepository(d.DB)
	users := repository.NewUserRepository(d.DB)
	groups := repository.NewGroupRepository(d.DB)
	notifications := repository.NewNotificationRepository(d.DB)

	metrics := NewMetrics(d.Registerer)
	store := NewModerationStore(repository.NewModerationRepository(d.DB),
		pool.NewTTLCache[string, *model.ModerationSettings](cfg.Moderation.GetSettingsTTL(), d.Clock),
		d.Redis, cfg.Moderation.BannedWords)
	perms := NewPermissionResolver(groups)
	slugs := NewSlugAssigner(threads)

	c := &Container{
		Users:         NewUserService(users, d.Redis, &cfg.Cache, &cfg.JWT),
		Forums:        NewForumService(forums, groups, users, d.Redis, &cfg.Cache),
		Threads:       NewThreadService(threads, posts, slugs, d.Redis, &cfg.Cache),
		Groups:        NewGroupService(groups, users),
		Notifications: NewNotificationService(notifications, threads),
		Moderation:    store,
		Fanout:        NewNotificationFanout(threads, users, notifications, metrics),
		Images:        NewImageLinker(repository.NewPostImageRepository(d.DB), cfg.Moderation.UploadURLPrefix),
		Metrics:       metrics,
	}
	c.Publish = NewPublishService(PublishDeps{
		Gate:        NewPublicationGate(forums, threads, perms, store),
		Slugs:       slugs,
		Ledger:      NewCounterLedger(repository.NewTxManager(d.DB), posts, threads, forums, users),
		Permissions: perms,
		Posts:       posts,
		Threads:     threads,
		Events:      d.Events,
		ThreadCache: c.Threads,
		ForumCache:  c.Forums,
		Metrics:     metrics,
	})
	return c
}
