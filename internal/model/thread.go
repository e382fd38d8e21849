package model

// ThreadType 主题类型
const (
	ThreadTypeNormal       = "NORMAL"
	ThreadTypeAnnouncement = "ANNOUNCEMENT"
)

// Thread 主题模型
type Thread struct {
	Tid         int64   `db:"tid"`
	Fid         int64   `db:"fid"`
	Uid         int64   `db:"uid"` // 楼主
	Subject     string  `db:"subject"`
	Slug        *string `db:"slug"`
	ThreadType  string  `db:"thread_type"`
	IsLocked    bool    `db:"is_locked"`
	IsSticky    bool    `db:"is_sticky"`
	Posts       int     `db:"posts"`
	Replies     int     `db:"replies"`
	Views       int     `db:"views"`
	LastPostAt  int64   `db:"last_post_at"`
	LastPostUid int64   `db:"last_post_uid"`
	Deleted     bool    `db:"deleted"`
	CreatedAt   int64   `db:"created_at"`
	UpdatedAt   int64   `db:"updated_at"`
}

// ThreadDTO 主题数据传输对象
type ThreadDTO struct {
	Tid         int64    `json:"tid"`
	Fid         int64    `json:"fid"`
	Uid         int64    `json:"uid"`
	Subject     string   `json:"subject"`
	Slug        string   `json:"slug,omitempty"`
	ThreadType  string   `json:"thread_type"`
	IsLocked    bool     `json:"is_locked"`
	IsSticky    bool     `json:"is_sticky"`
	Posts       int      `json:"posts"`
	Replies     int      `json:"replies"`
	Views       int      `json:"views"`
	LastPostAt  int64    `json:"last_post_at"`
	LastPostUid int64    `json:"last_post_uid"`
	CreatedAt   int64    `json:"created_at"`
	FirstPost   *PostDTO `json:"first_post,omitempty"`
}

// ToDTO 转换为 DTO
func (t *Thread) ToDTO() *ThreadDTO {
	dto := &ThreadDTO{
		Tid:         t.Tid,
		Fid:         t.Fid,
		Uid:         t.Uid,
		Subject:     t.Subject,
		ThreadType:  t.ThreadType,
		IsLocked:    t.IsLocked,
		IsSticky:    t.IsSticky,
		Posts:       t.Posts,
		Replies:     t.Replies,
		Views:       t.Views,
		LastPostAt:  t.LastPostAt,
		LastPostUid: t.LastPostUid,
		CreatedAt:   t.CreatedAt,
	}
	dto.Slug = t.SlugValue()
	return dto
}

// SlugValue slug 为空时返回 ""
func (t *Thread) SlugValue() string {
	if t.Slug == nil {
		return ""
	}
	return *t.Slug
}

// CreateThreadRequest 发主题请求
type CreateThreadRequest struct {
	Title     string `json:"title" binding:"required,max=255"`
	Content   string `json:"content" binding:"required"`
	SubjectID int64  `json:"subjectId" binding:"required"`
}

// ThreadListQuery 主题列表查询
type ThreadListQuery struct {
	Fid      int64 `form:"fid"`
	Page     int   `form:"page,default=1" binding:"min=1"`
	PageSize int   `form:"page_size,default=20" binding:"min=1,max=100"`
}
