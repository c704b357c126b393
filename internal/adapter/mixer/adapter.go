package mixer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"EncounterSync/internal/adapter"
	"EncounterSync/internal/config"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/interval"
	"EncounterSync/internal/model"
	"EncounterSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL  = "https://mixer.com/api/v1"
	playbackPrefix  = "https://mixer.com/"
	thumbnailFormat = "thumbnail"
	thumbnailFile   = "source.png"
	pageSize        = 50
)

func init() {
	adapter.Register(model.ProviderMixer, New)
}

// Adapter Mixer 适配器；录像文件以子资源形式挂在 recording 下
type Adapter struct {
	cfg    *config.ProviderConfig
	client *httpclient.Client
	logger *logrus.Logger
}

func New(cfg *config.ProviderConfig, _ *config.SyncConfig, logger *logrus.Logger) interfaces.ClipProvider {
	return &Adapter{
		cfg:    cfg,
		client: httpclient.New(string(model.ProviderMixer), cfg.Proxy, cfg.Timeout, logger),
		logger: logger,
	}
}

func (m *Adapter) GetType() model.ProviderType {
	return model.ProviderMixer
}

func (m *Adapter) baseURL() string {
	if m.cfg.BaseURL != "" {
		return strings.TrimRight(m.cfg.BaseURL, "/")
	}
	return defaultBaseURL
}

func (m *Adapter) headers() http.Header {
	h := http.Header{}
	if m.cfg.ClientID != "" {
		h.Set("Client-ID", m.cfg.ClientID)
	}
	return h
}

// FetchClips 分页拉取频道录像，只保留可播放的
func (m *Adapter) FetchClips(ctx context.Context, account *model.VideoAccount) ([]*model.RawClip, error) {
	maxPages := m.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	var raws []*model.RawClip
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))
		var recs []model.MixerRecording
		endpoint := fmt.Sprintf("%s/channels/%s/recordings?%s", m.baseURL(), url.PathEscape(account.ExternalID), q.Encode())
		if err := m.client.GetJSON(ctx, endpoint, m.headers(), &recs); err != nil {
			return nil, fmt.Errorf("获取Mixer录像失败（%s）: %w", account.ID, err)
		}
		for _, r := range recs {
			if r.State != "" && r.State != "AVAILABLE" {
				continue
			}
			raws = append(raws, &model.RawClip{
				Provider:       model.ProviderMixer,
				ID:             strconv.FormatInt(r.ID, 10),
				VideoAccountID: account.ID,
				Data:           recordingWithChannel{Recording: r, Channel: account.ChannelToken},
			})
		}
		if len(recs) < pageSize {
			break
		}
	}
	m.logger.WithFields(logrus.Fields{"video_account": account.ID, "count": len(raws)}).Debug("Mixer录像拉取完成")
	return raws, nil
}

// recordingWithChannel 播放地址需要频道名，录像本身只带频道数字ID
type recordingWithChannel struct {
	Recording model.MixerRecording
	Channel   string
}

// Normalize createdAt + 秒数时长；缩略图取 format=thumbnail 的子资源
func (m *Adapter) Normalize(raw *model.RawClip) *model.Clip {
	var (
		rec     model.MixerRecording
		channel string
	)
	switch d := raw.Data.(type) {
	case recordingWithChannel:
		rec, channel = d.Recording, d.Channel
	case model.MixerRecording:
		rec = d
	default:
		adapter.LogMalformed(m.logger, raw, "数据类型错误")
		return nil
	}
	if rec.ID == 0 {
		adapter.LogMalformed(m.logger, raw, "缺少id")
		return nil
	}
	start, ok := adapter.ParseTimestamp(rec.CreatedAt)
	if !ok {
		adapter.LogMalformed(m.logger, raw, "createdAt无法解析")
		return nil
	}
	secs := rec.Duration
	if secs < 0 {
		secs = 0
	}
	recorded := interval.FromSeconds(start, secs)

	id := strconv.FormatInt(rec.ID, 10)
	if channel == "" {
		channel = strconv.FormatInt(rec.ChannelID, 10)
	}
	return &model.Clip{
		ID:             model.ClipID(model.ProviderMixer, id),
		VideoAccountID: raw.VideoAccountID,
		Provider:       model.ProviderMixer,
		StartTime:      recorded.Start,
		EndTime:        recorded.End,
		Title:          rec.Name,
		ThumbnailURL:   thumbnail(rec.Vods),
		PlaybackURL:    fmt.Sprintf("%s%s?vod=%s", playbackPrefix, channel, id),
	}
}

func thumbnail(vods []model.MixerVod) string {
	for _, v := range vods {
		if v.Format != thumbnailFormat || v.BaseURL == "" {
			continue
		}
		base := v.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		return base + thumbnailFile
	}
	return ""
}

// SearchAccountByName 频道名精确查找，404 视为未找到
func (m *Adapter) SearchAccountByName(ctx context.Context, name string) (*model.VideoAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var ch model.MixerChannel
	err := m.client.GetJSON(ctx, m.baseURL()+"/channels/"+url.PathEscape(name), m.headers(), &ch)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("查找Mixer频道失败（%s）: %w", name, err)
	}
	if ch.ID == 0 || !strings.EqualFold(ch.Token, name) {
		return nil, nil
	}
	ext := strconv.FormatInt(ch.ID, 10)
	return &model.VideoAccount{
		ID:           model.VideoAccountID(model.ProviderMixer, ext),
		Provider:     model.ProviderMixer,
		ExternalID:   ext,
		DisplayName:  ch.User.Username,
		LoginName:    strings.ToLower(ch.Token),
		ChannelToken: ch.Token,
	}, nil
}
