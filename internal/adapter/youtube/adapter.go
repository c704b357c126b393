package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"EncounterSync/internal/adapter"
	"EncounterSync/internal/config"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"
	"EncounterSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"github.com/sosodev/duration"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	playbackPrefix = "https://www.youtube.com/watch?v="
	pageSize       = 50 // videos 接口单次最多 50 个 id
)

// 缩略图优先级
var thumbnailPreference = []string{"maxres", "high", "medium", "default"}

func init() {
	adapter.Register(model.ProviderYouTube, New)
}

// Adapter YouTube Data API v3 适配器（直播存档与上传视频）
type Adapter struct {
	cfg    *config.ProviderConfig
	client *httpclient.Client
	logger *logrus.Logger
}

func New(cfg *config.ProviderConfig, _ *config.SyncConfig, logger *logrus.Logger) interfaces.ClipProvider {
	return &Adapter{
		cfg:    cfg,
		client: httpclient.New(string(model.ProviderYouTube), cfg.Proxy, cfg.Timeout, logger),
		logger: logger,
	}
}

func (y *Adapter) GetType() model.ProviderType {
	return model.ProviderYouTube
}

func (y *Adapter) endpoint(path string, q url.Values) string {
	base := defaultBaseURL
	if y.cfg.BaseURL != "" {
		base = strings.TrimRight(y.cfg.BaseURL, "/")
	}
	q.Set("key", y.cfg.APIKey)
	return base + path + "?" + q.Encode()
}

// FetchClips uploads 列表 -> 视频ID -> 批量视频详情
func (y *Adapter) FetchClips(ctx context.Context, account *model.VideoAccount) ([]*model.RawClip, error) {
	uploads := account.ChannelToken
	if uploads == "" {
		ch, err := y.channel(ctx, url.Values{"id": {account.ExternalID}})
		if err != nil {
			return nil, err
		}
		if ch == nil {
			return nil, nil
		}
		uploads = ch.ContentDetails.RelatedPlaylists.Uploads
	}

	ids, err := y.playlistVideoIDs(ctx, uploads)
	if err != nil {
		return nil, fmt.Errorf("获取YouTube上传列表失败（%s）: %w", account.ID, err)
	}

	var raws []*model.RawClip
	for start := 0; start < len(ids); start += pageSize {
		end := start + pageSize
		if end > len(ids) {
			end = len(ids)
		}
		q := url.Values{}
		q.Set("part", "snippet,contentDetails,liveStreamingDetails")
		q.Set("id", strings.Join(ids[start:end], ","))
		var resp model.YouTubeVideosResponse
		if err := y.client.GetJSON(ctx, y.endpoint("/videos", q), nil, &resp); err != nil {
			return nil, fmt.Errorf("获取YouTube视频详情失败（%s）: %w", account.ID, err)
		}
		for _, v := range resp.Items {
			raws = append(raws, &model.RawClip{
				Provider:       model.ProviderYouTube,
				ID:             v.ID,
				VideoAccountID: account.ID,
				Data:           v,
			})
		}
	}

	y.logger.WithFields(logrus.Fields{"video_account": account.ID, "count": len(raws)}).Debug("YouTube录像拉取完成")
	return raws, nil
}

func (y *Adapter) playlistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	maxPages := y.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	var ids []string
	pageToken := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("part", "contentDetails")
		q.Set("playlistId", playlistID)
		q.Set("maxResults", fmt.Sprint(pageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		var resp model.YouTubePlaylistItemsResponse
		if err := y.client.GetJSON(ctx, y.endpoint("/playlistItems", q), nil, &resp); err != nil {
			return nil, err
		}
		for _, it := range resp.Items {
			if it.ContentDetails.VideoID != "" {
				ids = append(ids, it.ContentDetails.VideoID)
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return ids, nil
}

func (y *Adapter) channel(ctx context.Context, q url.Values) (*model.YouTubeChannel, error) {
	q.Set("part", "snippet,contentDetails")
	var resp model.YouTubeChannelsResponse
	if err := y.client.GetJSON(ctx, y.endpoint("/channels", q), nil, &resp); err != nil {
		return nil, fmt.Errorf("获取YouTube频道失败: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	return &resp.Items[0], nil
}

// Normalize 直播存档用绝对起止时间；否则 publishedAt + ISO 8601 时长
func (y *Adapter) Normalize(raw *model.RawClip) *model.Clip {
	v, ok := raw.Data.(model.YouTubeVideo)
	if !ok {
		adapter.LogMalformed(y.logger, raw, "数据类型错误")
		return nil
	}
	if v.ID == "" {
		adapter.LogMalformed(y.logger, raw, "缺少id")
		return nil
	}

	start, end, ok := y.recorded(v)
	if !ok {
		adapter.LogMalformed(y.logger, raw, "缺少开始时间")
		return nil
	}
	return &model.Clip{
		ID:             model.ClipID(model.ProviderYouTube, v.ID),
		VideoAccountID: raw.VideoAccountID,
		Provider:       model.ProviderYouTube,
		StartTime:      start,
		EndTime:        end,
		Title:          v.Snippet.Title,
		ThumbnailURL:   pickThumbnail(v.Snippet.Thumbnails),
		PlaybackURL:    playbackPrefix + v.ID,
	}
}

func (y *Adapter) recorded(v model.YouTubeVideo) (time.Time, time.Time, bool) {
	if ls := v.LiveStreamingDetails; ls != nil {
		if start, ok := adapter.ParseTimestamp(ls.ActualStartTime); ok {
			if end, ok := adapter.ParseTimestamp(ls.ActualEndTime); ok && !end.Before(start) {
				return start, end, true
			}
			// 仍在直播或缺少结束时间，退回到时长
			return start, start.Add(y.contentDuration(v)), true
		}
	}
	start, ok := adapter.ParseTimestamp(v.Snippet.PublishedAt)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, start.Add(y.contentDuration(v)), true
}

func (y *Adapter) contentDuration(v model.YouTubeVideo) time.Duration {
	d, err := ParseDuration(v.ContentDetails.Duration)
	if err != nil {
		y.logger.WithError(err).WithField("clip_id", v.ID).Warn("YouTube时长无法解析，按0处理")
		return 0
	}
	return d
}

// ParseDuration 解析 ISO 8601 时长（"PT1H2M3S"）
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("时长为空: %w", interfaces.ErrMalformedResponse)
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("时长 %q 无法解析: %v: %w", s, err, interfaces.ErrMalformedResponse)
	}
	td := d.ToTimeDuration()
	if td < 0 {
		return 0, fmt.Errorf("时长 %q 为负: %w", s, interfaces.ErrMalformedResponse)
	}
	return td, nil
}

func pickThumbnail(thumbs map[string]model.YouTubeThumbnail) string {
	for _, k := range thumbnailPreference {
		if t, ok := thumbs[k]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

// SearchAccountByName 按频道用户名精确查找，未找到返回 nil, nil
func (y *Adapter) SearchAccountByName(ctx context.Context, name string) (*model.VideoAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	ch, err := y.channel(ctx, url.Values{"forUsername": {name}})
	if err != nil || ch == nil {
		return nil, err
	}
	if !strings.EqualFold(ch.Snippet.Title, name) && !strings.EqualFold(strings.TrimPrefix(ch.Snippet.CustomURL, "@"), name) {
		return nil, nil
	}
	return &model.VideoAccount{
		ID:           model.VideoAccountID(model.ProviderYouTube, ch.ID),
		Provider:     model.ProviderYouTube,
		ExternalID:   ch.ID,
		DisplayName:  ch.Snippet.Title,
		LoginName:    strings.ToLower(name),
		ChannelToken: ch.ContentDetails.RelatedPlaylists.Uploads,
	}, nil
}
