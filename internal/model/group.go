package model

// UserGroup 用户组
type UserGroup struct {
	Gid         int64  `db:"gid" json:"gid"`
	Name        string `db:"name" json:"name"`
	CanPost     bool   `db:"can_post" json:"can_post"`
	CanReply    bool   `db:"can_reply" json:"can_reply"`
	CanModerate bool   `db:"can_moderate" json:"can_moderate"`
}

// CreateGroupRequest 创建用户组请求
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,max=64"`
	CanPost     bool   `json:"can_post"`
	CanReply    bool   `json:"can_reply"`
	CanModerate bool   `json:"can_moderate"`
}

// MemberRequest 组成员/版主指派请求
type MemberRequest struct {
	Uid int64 `json:"uid" binding:"required"`
}
