package model

// ========== YouTube Data API v3 响应结构 ==========

// YouTubeVideosResponse GET /videos?part=snippet,contentDetails,liveStreamingDetails 的根响应
type YouTubeVideosResponse struct {
	Items         []YouTubeVideo `json:"items"`
	NextPageToken string         `json:"nextPageToken"`
}

// YouTubeVideo 单条视频（直播存档或上传）
type YouTubeVideo struct {
	ID                   string                       `json:"id"`
	Snippet              YouTubeSnippet               `json:"snippet"`
	ContentDetails       YouTubeContentDetails        `json:"contentDetails"`
	LiveStreamingDetails *YouTubeLiveStreamingDetails `json:"liveStreamingDetails,omitempty"` // 仅直播存档存在
}

// YouTubeSnippet 基础信息
type YouTubeSnippet struct {
	PublishedAt  string                      `json:"publishedAt"`
	ChannelID    string                      `json:"channelId"`
	Title        string                      `json:"title"`
	ChannelTitle string                      `json:"channelTitle"`
	Thumbnails   map[string]YouTubeThumbnail `json:"thumbnails"` // default/medium/high/standard/maxres
}

// YouTubeThumbnail 缩略图
type YouTubeThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeContentDetails 时长（ISO 8601，如 "PT1H2M3S"）
type YouTubeContentDetails struct {
	Duration string `json:"duration"`
}

// YouTubeLiveStreamingDetails 直播起止时间（绝对时间）
type YouTubeLiveStreamingDetails struct {
	ActualStartTime string `json:"actualStartTime"`
	ActualEndTime   string `json:"actualEndTime"`
}

// YouTubePlaylistItemsResponse GET /playlistItems 的根响应（uploads 列表）
type YouTubePlaylistItemsResponse struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// YouTubeChannelsResponse GET /channels 的根响应
type YouTubeChannelsResponse struct {
	Items []YouTubeChannel `json:"items"`
}

// YouTubeChannel 频道
type YouTubeChannel struct {
	ID      string `json:"id"`
	Snippet struct {
		Title     string `json:"title"`
		CustomURL string `json:"customUrl"`
	} `json:"snippet"`
	ContentDetails struct {
		RelatedPlaylists struct {
			Uploads string `json:"uploads"`
		} `json:"relatedPlaylists"`
	} `json:"contentDetails"`
}
