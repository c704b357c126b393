package twitch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"EncounterSync/internal/adapter"
	"EncounterSync/internal/config"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"
	"EncounterSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultBaseURL  = "https://api.twitch.tv/helix"
	defaultTokenURL = "https://id.twitch.tv/oauth2/token"
	playbackPrefix  = "https://www.twitch.tv/videos/"
	pageSize        = 100
)

func init() {
	adapter.Register(model.ProviderTwitch, New)
}

// Adapter Twitch Helix 适配器（长录像 VOD）
type Adapter struct {
	cfg     *config.ProviderConfig
	syncCfg *config.SyncConfig
	client  *httpclient.Client
	tokens  oauth2.TokenSource // 应用级 token，过期前复用
	logger  *logrus.Logger
}

func New(cfg *config.ProviderConfig, syncCfg *config.SyncConfig, logger *logrus.Logger) interfaces.ClipProvider {
	a := &Adapter{
		cfg:     cfg,
		syncCfg: syncCfg,
		client:  httpclient.New(string(model.ProviderTwitch), cfg.Proxy, cfg.Timeout, logger),
		logger:  logger,
	}
	if cfg.ClientSecret != "" {
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = defaultTokenURL
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, a.client.HTTP())
		a.tokens = cc.TokenSource(ctx)
	}
	return a
}

func (t *Adapter) GetType() model.ProviderType {
	return model.ProviderTwitch
}

func (t *Adapter) baseURL() string {
	if t.cfg.BaseURL != "" {
		return strings.TrimRight(t.cfg.BaseURL, "/")
	}
	return defaultBaseURL
}

func (t *Adapter) headers() (http.Header, error) {
	h := http.Header{}
	h.Set("Client-Id", t.cfg.ClientID)
	if t.tokens != nil {
		tok, err := t.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("获取Twitch应用token失败: %v: %w", err, interfaces.ErrUpstreamUnavailable)
		}
		h.Set("Authorization", "Bearer "+tok.AccessToken)
	}
	return h, nil
}

// FetchClips 按游标分页拉取某用户的 archive 录像
func (t *Adapter) FetchClips(ctx context.Context, account *model.VideoAccount) ([]*model.RawClip, error) {
	header, err := t.headers()
	if err != nil {
		return nil, err
	}
	maxPages := t.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var raws []*model.RawClip
	cursor := ""
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("user_id", account.ExternalID)
		q.Set("type", "archive")
		q.Set("first", strconv.Itoa(pageSize))
		if cursor != "" {
			q.Set("after", cursor)
		}
		var resp model.TwitchVideosResponse
		if err := t.client.GetJSON(ctx, t.baseURL()+"/videos?"+q.Encode(), header, &resp); err != nil {
			return nil, fmt.Errorf("获取Twitch录像失败（%s）: %w", account.ID, err)
		}
		for _, v := range resp.Data {
			raws = append(raws, &model.RawClip{
				Provider:       model.ProviderTwitch,
				ID:             v.ID,
				VideoAccountID: account.ID,
				Data:           v,
			})
		}
		cursor = resp.Pagination.Cursor
		if cursor == "" || len(resp.Data) == 0 {
			break
		}
	}

	t.logger.WithFields(logrus.Fields{"video_account": account.ID, "count": len(raws)}).Debug("Twitch录像拉取完成")
	return raws, nil
}

// Normalize created_at + 时长字符串 => 区间；缩略图模板替换为配置尺寸
func (t *Adapter) Normalize(raw *model.RawClip) *model.Clip {
	v, ok := raw.Data.(model.TwitchVideo)
	if !ok {
		adapter.LogMalformed(t.logger, raw, "数据类型错误")
		return nil
	}
	if v.ID == "" {
		adapter.LogMalformed(t.logger, raw, "缺少id")
		return nil
	}
	start, ok := adapter.ParseTimestamp(v.CreatedAt)
	if !ok {
		adapter.LogMalformed(t.logger, raw, "created_at无法解析")
		return nil
	}
	d, err := ParseDuration(v.Duration)
	if err != nil {
		// 时长缺失时区间为空，不会与任何对局重叠
		t.logger.WithError(err).WithField("clip_id", v.ID).Warn("Twitch时长无法解析，按0处理")
	}

	playback := v.URL
	if playback == "" {
		playback = playbackPrefix + v.ID
	}
	return &model.Clip{
		ID:             model.ClipID(model.ProviderTwitch, v.ID),
		VideoAccountID: raw.VideoAccountID,
		Provider:       model.ProviderTwitch,
		StartTime:      start,
		EndTime:        start.Add(d),
		Title:          v.Title,
		ThumbnailURL:   t.thumbnail(v.ThumbnailURL),
		PlaybackURL:    playback,
	}
}

func (t *Adapter) thumbnail(template string) string {
	if template == "" {
		return ""
	}
	w, h := t.syncCfg.ThumbnailWidth, t.syncCfg.ThumbnailHeight
	return strings.NewReplacer(
		"%{width}", strconv.Itoa(w),
		"%{height}", strconv.Itoa(h),
	).Replace(template)
}

// SearchAccountByName 按登录名精确查找（大小写不敏感），未找到返回 nil, nil
func (t *Adapter) SearchAccountByName(ctx context.Context, name string) (*model.VideoAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	header, err := t.headers()
	if err != nil {
		return nil, err
	}
	var resp model.TwitchUsersResponse
	if err := t.client.GetJSON(ctx, t.baseURL()+"/users?login="+url.QueryEscape(strings.ToLower(name)), header, &resp); err != nil {
		return nil, fmt.Errorf("查找Twitch用户失败（%s）: %w", name, err)
	}
	for _, u := range resp.Data {
		if strings.EqualFold(u.Login, name) || strings.EqualFold(u.DisplayName, name) {
			return userToAccount(u), nil
		}
	}
	return nil, nil
}

func userToAccount(u model.TwitchUser) *model.VideoAccount {
	return &model.VideoAccount{
		ID:          model.VideoAccountID(model.ProviderTwitch, u.ID),
		Provider:    model.ProviderTwitch,
		ExternalID:  u.ID,
		DisplayName: u.DisplayName,
		LoginName:   strings.ToLower(u.Login),
	}
}

// ParseDuration 解析 Twitch 时长字符串（"3h2m10s"、"45m3s"、"59s"）
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("时长为空: %w", interfaces.ErrMalformedResponse)
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("时长 %q 无法解析: %w", s, interfaces.ErrMalformedResponse)
	}
	return d, nil
}
