package model

// Post 帖子模型
type Post struct {
	Pid        int64  `db:"pid"`
	Tid        int64  `db:"tid"`
	Uid        int64  `db:"uid"`
	Content    string `db:"content"` // HTML
	ReplyToPid *int64 `db:"reply_to_pid"`
	Approved   bool   `db:"approved"`
	Flagged    bool   `db:"flagged"`
	FlagReason string `db:"flag_reason"`
	Deleted    bool   `db:"deleted"`
	DeletedAt  int64  `db:"deleted_at"`
	DeletedBy  int64  `db:"deleted_by"`
	EditedAt   int64  `db:"edited_at"`
	EditedBy   int64  `db:"edited_by"`
	EditReason string `db:"edit_reason"`
	CreatedAt  int64  `db:"created_at"`
}

// PostDTO 帖子数据传输对象
type PostDTO struct {
	Pid        int64  `json:"pid"`
	Tid        int64  `json:"tid"`
	Uid        int64  `json:"uid"`
	Content    string `json:"content"`
	ReplyToPid *int64 `json:"reply_to_pid,omitempty"`
	Approved   bool   `json:"approved"`
	Flagged    bool   `json:"flagged"`
	FlagReason string `json:"flag_reason,omitempty"`
	EditedAt   int64  `json:"edited_at,omitempty"`
	EditedBy   int64  `json:"edited_by,omitempty"`
	EditReason string `json:"edit_reason,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// ToDTO 转换为 DTO
func (p *Post) ToDTO() *PostDTO {
	return &PostDTO{
		Pid:        p.Pid,
		Tid:        p.Tid,
		Uid:        p.Uid,
		Content:    p.Content,
		ReplyToPid: p.ReplyToPid,
		Approved:   p.Approved,
		Flagged:    p.Flagged,
		FlagReason: p.FlagReason,
		EditedAt:   p.EditedAt,
		EditedBy:   p.EditedBy,
		EditReason: p.EditReason,
		CreatedAt:  p.CreatedAt,
	}
}

// CreatePostRequest 回帖请求
type CreatePostRequest struct {
	Content   string `json:"content" binding:"required"`
	ThreadID  int64  `json:"threadId" binding:"required"`
	ReplyToID *int64 `json:"replyToId"`
}

// EditPostRequest 编辑帖子请求
type EditPostRequest struct {
	Content string `json:"content" binding:"required"`
	Reason  string `json:"reason" binding:"max=255"`
}

// PostListQuery 帖子列表分页
type PostListQuery struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}
