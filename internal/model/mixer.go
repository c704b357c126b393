package model

// ========== Mixer API 响应结构（GET /channels/{id}/recordings） ==========

// MixerRecording 一条录像，实际文件以子资源（vods）形式挂在下面
type MixerRecording struct {
	ID        int64      `json:"id"`
	ChannelID int64      `json:"channelId"`
	Name      string     `json:"name"`
	State     string     `json:"state"`     // AVAILABLE/PROCESSING/DELETED
	Duration  float64    `json:"duration"`  // 秒，可带小数
	CreatedAt string     `json:"createdAt"` // 录制开始（RFC3339）
	ExpiresAt string     `json:"expiresAt"`
	Vods      []MixerVod `json:"vods"`
}

// MixerVod 录像子资源（hls/raw/thumbnail/chat）
type MixerVod struct {
	BaseURL string `json:"baseUrl"`
	Format  string `json:"format"`
	Data    *struct {
		Width  int `json:"Width"`
		Height int `json:"Height"`
	} `json:"data"`
}

// MixerChannel GET /channels/{token} 的响应
type MixerChannel struct {
	ID     int64  `json:"id"`
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
	User   struct {
		Username string `json:"username"`
	} `json:"user"`
}
