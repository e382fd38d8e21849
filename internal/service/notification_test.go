package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
)

func TestNotificationServiceFlow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := NewNotificationService(e.notifications, e.threads)
	owner := e.createUser(t, "owner", model.RoleUser, 0)
	fan := e.createUser(t, "fan", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, owner, f, "Followed")

	err := svc.Subscribe(ctx, fan.Uid, 404)
	requireAppError(t, err, apperr.KindNotFound, apperr.CodeThreadNotFound)
	require.NoError(t, svc.Subscribe(ctx, fan.Uid, th.Tid))
	require.NoError(t, svc.Subscribe(ctx, fan.Uid, th.Tid))

	_, err = e.publish.CreatePost(ctx, owner, CreatePostInput{ThreadID: th.Tid, Content: "update"})
	require.NoError(t, err)

	page, err := svc.List(ctx, fan.Uid, true, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.List, 1)
	require.Equal(t, 1, page.Unread)

	id := page.List[0].ID
	err = svc.MarkRead(ctx, owner.Uid, id)
	requireAppError(t, err, apperr.KindNotFound, apperr.CodeNotFound)
	require.NoError(t, svc.MarkRead(ctx, fan.Uid, id))

	page, err = svc.List(ctx, fan.Uid, true, 1, 20)
	require.NoError(t, err)
	require.Empty(t, page.List)
	require.Equal(t, 0, page.Unread)

	require.NoError(t, svc.Unsubscribe(ctx, fan.Uid, th.Tid))
	_, err = e.publish.CreatePost(ctx, owner, CreatePostInput{ThreadID: th.Tid, Content: "another"})
	require.NoError(t, err)
	page, err = svc.List(ctx, fan.Uid, false, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.List, 1)
}

func TestNotificationPreferenceValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := NewNotificationService(e.notifications, e.threads)

	err := svc.SetPreference(ctx, 1, &model.PreferenceRequest{Type: "DIGEST"})
	requireAppError(t, err, apperr.KindValidation, apperr.CodeBadRequest)

	require.NoError(t, svc.SetPreference(ctx, 1, &model.PreferenceRequest{Type: model.NotifyReply, Enabled: false}))
	prefs, err := svc.ListPreferences(ctx, 1)
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	require.False(t, prefs[0].Enabled)
}

func TestGroupServiceMembership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := NewGroupService(e.groups, e.users)
	u := e.createUser(t, "member", model.RoleGuest, 0)
	f := e.createForum(t, nil)

	g, err := svc.Create(ctx, &model.CreateGroupRequest{Name: "repliers", CanReply: true})
	require.NoError(t, err)

	err = svc.AddMember(ctx, g.Gid, 404)
	requireAppError(t, err, apperr.KindNotFound, apperr.CodeNotFound)
	require.NoError(t, svc.AddMember(ctx, g.Gid, u.Uid))

	groups, err := svc.ListByUser(ctx, u.Uid)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, Permissions{CanReply: true}, e.perms.Resolve(ctx, u.Uid, f.Fid, u.Role))

	require.NoError(t, svc.RemoveMember(ctx, g.Gid, u.Uid))
	require.Equal(t, Permissions{}, e.perms.Resolve(ctx, u.Uid, f.Fid, u.Role))
}
