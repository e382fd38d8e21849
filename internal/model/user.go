package model

// Role 用户角色
type Role string

const (
	RoleGuest     Role = "GUEST"
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User status
const (
	UserStatusActive   = 0
	UserStatusDisabled = 1
)

// User 用户模型
type User struct {
	Uid       int64  `db:"uid"`
	Username  string `db:"username"`
	Password  string `db:"password"`
	Email     string `db:"email"`
	Avatar    string `db:"avatar"`
	Role      Role   `db:"role"`
	Status    int    `db:"status"`     // 0: 正常, 1: 禁用
	PostCount int    `db:"post_count"` // 增量维护
	Dateline  int64  `db:"dateline"`   // 注册时间
	Lastvisit int64  `db:"lastvisit"`  // 最后访问时间
}

// ToDTO 转换为 DTO
func (u *User) ToDTO() UserDTO {
	return UserDTO{
		Uid:       u.Uid,
		Username:  u.Username,
		Avatar:    u.Avatar,
		Role:      u.Role,
		Status:    u.Status,
		PostCount: u.PostCount,
		Dateline:  u.Dateline,
	}
}

// Actor 发帖人身份，由鉴权中间件构造
type Actor struct {
	Uid       int64
	Role      Role
	IsActive  bool
	PostCount int
}

// GuestActor 未登录访客
func GuestActor() *Actor {
	return &Actor{Role: RoleGuest, IsActive: true}
}

// IsGuest 是否游客
func (a *Actor) IsGuest() bool {
	return a == nil || a.Uid == 0 || a.Role == RoleGuest
}

// Actor 从用户行构造身份
func (u *User) Actor() *Actor {
	return &Actor{
		Uid:       u.Uid,
		Role:      u.Role,
		IsActive:  u.Status == UserStatusActive,
		PostCount: u.PostCount,
	}
}

// UserDTO 用户数据传输对象
type UserDTO struct {
	Uid       int64  `json:"uid"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Role      Role   `json:"role"`
	Status    int    `json:"status"`
	PostCount int    `json:"post_count"`
	Dateline  int64  `json:"dateline"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=32"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=32"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token        string  `json:"token"`
	RefreshToken string  `json:"refresh_token"`
	User         UserDTO `json:"user"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	User UserDTO `json:"user"`
}
