package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"well_bbs/internal/model"
)

func TestMergePermissions(t *testing.T) {
	cases := []struct {
		name string
		src  PermissionSources
		want Permissions
	}{
		{"guest", PermissionSources{Role: model.RoleGuest}, Permissions{}},
		{"user", PermissionSources{Role: model.RoleUser}, Permissions{CanPost: true, CanReply: true}},
		{"moderator role", PermissionSources{Role: model.RoleModerator}, allPermissions},
		{"admin", PermissionSources{Role: model.RoleAdmin}, allPermissions},
		{"forum moderator", PermissionSources{Role: model.RoleUser, ForumModerator: true}, allPermissions},
		{
			"guest with reply group",
			PermissionSources{Role: model.RoleGuest, Groups: []Permissions{{CanReply: true}}},
			Permissions{CanReply: true},
		},
		{
			"groups are ORed",
			PermissionSources{Role: model.RoleGuest, Groups: []Permissions{{CanPost: true}, {CanModerate: true}}},
			Permissions{CanPost: true, CanModerate: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, MergePermissions(tc.src))
		})
	}
}

func TestResolveUsesModeratorAndGroups(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.createForum(t, nil)
	other := e.createForum(t, nil)
	u := e.createUser(t, "carol", model.RoleUser, 0)

	require.Equal(t, Permissions{CanPost: true, CanReply: true}, e.perms.Resolve(ctx, u.Uid, f.Fid, u.Role))

	require.NoError(t, e.groups.AddModerator(ctx, f.Fid, u.Uid))
	require.Equal(t, allPermissions, e.perms.Resolve(ctx, u.Uid, f.Fid, u.Role))
	require.Equal(t, Permissions{CanPost: true, CanReply: true}, e.perms.Resolve(ctx, u.Uid, other.Fid, u.Role))

	g := &model.UserGroup{Gid: 7, Name: "helpers", CanModerate: true}
	require.NoError(t, e.groups.Create(ctx, g))
	require.NoError(t, e.groups.AddMember(ctx, g.Gid, u.Uid))
	require.Equal(t, allPermissions, e.perms.Resolve(ctx, u.Uid, other.Fid, u.Role))
}

func TestResolveFallsBackToRoleDefaultsOnError(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	f := e.createForum(t, nil)
	u := e.createUser(t, "dave", model.RoleUser, 0)
	require.NoError(t, e.groups.AddModerator(ctx, f.Fid, u.Uid))

	require.NoError(t, e.db.Close())
	require.Equal(t, RoleDefaults(model.RoleUser), e.perms.Resolve(ctx, u.Uid, f.Fid, u.Role))
}
