package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"well_bbs/internal/model"
	"well_bbs/internal/pkg/apperr"
)

func TestThreadGetIncludesFirstPost(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "reader", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, u, f, "Readable")

	got, err := e.threadSvc.Get(ctx, th.Tid)
	require.NoError(t, err)
	require.NotNil(t, got.FirstPost)
	require.Equal(t, th.FirstPost.Pid, got.FirstPost.Pid)

	_, err = e.threadSvc.Get(ctx, 404)
	requireAppError(t, err, apperr.KindNotFound, apperr.CodeThreadNotFound)
}

func TestThreadListStickyFirst(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "lister", model.RoleUser, 0)
	f := e.createForum(t, nil)
	a := e.createThread(t, u, f, "Alpha")
	e.createThread(t, u, f, "Beta")

	sticky := true
	_, err := e.threadSvc.Update(ctx, a.Tid, &UpdateThreadInput{IsSticky: &sticky})
	require.NoError(t, err)

	page, err := e.threadSvc.List(ctx, &model.ThreadListQuery{Fid: f.Fid, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, a.Tid, page.List[0].Tid)
}

func TestThreadRenameReslugs(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "renamer", model.RoleUser, 0)
	f := e.createForum(t, nil)
	e.createThread(t, u, f, "Taken Title")
	th := e.createThread(t, u, f, "Original")

	subject := "Taken Title"
	dto, err := e.threadSvc.Update(ctx, th.Tid, &UpdateThreadInput{Subject: &subject})
	require.NoError(t, err)
	require.Equal(t, "taken-title-1", dto.Slug)

	empty := "   "
	_, err = e.threadSvc.Update(ctx, th.Tid, &UpdateThreadInput{Subject: &empty})
	requireAppError(t, err, apperr.KindValidation, apperr.CodeBadRequest)
}

func TestThreadIncViewsInvalidatesCache(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.createUser(t, "viewer", model.RoleUser, 0)
	f := e.createForum(t, nil)
	th := e.createThread(t, u, f, "Viewed")

	_, err := e.threadSvc.Get(ctx, th.Tid)
	require.NoError(t, err)
	require.NoError(t, e.threadSvc.IncViews(ctx, th.Tid))

	got, err := e.threadSvc.Get(ctx, th.Tid)
	require.NoError(t, err)
	require.Equal(t, 1, got.Views)

	require.NoError(t, e.threadSvc.FlushCache(ctx))
	require.False(t, e.mr.Exists(threadKey(th.Tid)))
}
