package model

// ========== Twitch Helix API 响应结构（GET /helix/videos?user_id=...&type=archive） ==========

// TwitchVideosResponse GET /videos 的根响应
type TwitchVideosResponse struct {
	Data       []TwitchVideo    `json:"data"`
	Pagination TwitchPagination `json:"pagination"`
}

// TwitchPagination 游标分页
type TwitchPagination struct {
	Cursor string `json:"cursor"`
}

// TwitchVideo 单条 VOD（长录像）
type TwitchVideo struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	UserLogin    string `json:"user_login"`
	UserName     string `json:"user_name"`
	Title        string `json:"title"`
	CreatedAt    string `json:"created_at"`    // 录制开始（RFC3339）
	URL          string `json:"url"`           // 播放地址
	ThumbnailURL string `json:"thumbnail_url"` // 含 %{width}x%{height} 占位符
	Viewable     string `json:"viewable"`
	Type         string `json:"type"`     // archive/highlight/upload
	Duration     string `json:"duration"` // 时长字符串，如 "3h2m10s"
}

// TwitchUsersResponse GET /users?login=... 的根响应
type TwitchUsersResponse struct {
	Data []TwitchUser `json:"data"`
}

// TwitchUser Twitch 用户
type TwitchUser struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}
