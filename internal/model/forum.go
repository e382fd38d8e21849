package model

// Forum 版块模型
type Forum struct {
	Fid          int64  `db:"fid"`
	Name         string `db:"name"`
	Parent       int64  `db:"parent"`        // 父版块 ID（0 表示一级版块）
	Path         string `db:"path"`          // 路径链，如 "0,1,2"
	Depth        int    `db:"depth"`         // 深度
	DisplayOrder int    `db:"display_order"` // 排序
	IsActive     bool   `db:"is_active"`
	CanPost      bool   `db:"can_post"`      // 允许发主题
	CanReply     bool   `db:"can_reply"`     // 允许回复
	GuestPosting bool   `db:"guest_posting"` // 游客可发帖
	IsLocked     bool   `db:"is_locked"`
	Threads      int    `db:"threads"` // 主题数
	Posts        int    `db:"posts"`   // 帖子数
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

// ForumDTO 版块数据传输对象
type ForumDTO struct {
	Fid          int64  `json:"fid"`
	Name         string `json:"name"`
	Parent       int64  `json:"parent"`
	Path         string `json:"path"`
	Depth        int    `json:"depth"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
	CanPost      bool   `json:"can_post"`
	CanReply     bool   `json:"can_reply"`
	GuestPosting bool   `json:"guest_posting"`
	IsLocked     bool   `json:"is_locked"`
	Threads      int    `json:"threads"`
	Posts        int    `json:"posts"`
}

// ForumTree 论坛树结构
type ForumTree struct {
	ForumDTO
	Children []*ForumTree `json:"children,omitempty"`
}

// ToDTO 转换为 DTO
func (f *Forum) ToDTO() *ForumDTO {
	return &ForumDTO{
		Fid:          f.Fid,
		Name:         f.Name,
		Parent:       f.Parent,
		Path:         f.Path,
		Depth:        f.Depth,
		DisplayOrder: f.DisplayOrder,
		IsActive:     f.IsActive,
		CanPost:      f.CanPost,
		CanReply:     f.CanReply,
		GuestPosting: f.GuestPosting,
		IsLocked:     f.IsLocked,
		Threads:      f.Threads,
		Posts:        f.Posts,
	}
}

// CreateForumRequest 创建版块请求
type CreateForumRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=128"`
	Parent       int64  `json:"parent"`
	DisplayOrder int    `json:"display_order"`
	GuestPosting bool   `json:"guest_posting"`
}

// UpdateForumRequest 更新版块请求，nil 字段保持不变
type UpdateForumRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=128"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     *bool   `json:"is_active"`
	CanPost      *bool   `json:"can_post"`
	CanReply     *bool   `json:"can_reply"`
	GuestPosting *bool   `json:"guest_posting"`
	IsLocked     *bool   `json:"is_locked"`
}
