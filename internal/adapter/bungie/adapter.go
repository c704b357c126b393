// Package bungie 游戏侧资料来源：账号关联、角色、对局历史、对局详情（PGCR）与官方合作关系
package bungie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"EncounterSync/internal/adapter"
	"EncounterSync/internal/config"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"
	"EncounterSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL  = "https://www.bungie.net/Platform"
	defaultStatsURL = "https://stats.bungie.net/Platform"

	errorCodeSuccess   = 1
	partnerTypeTwitch  = 1
	componentProfiles  = 100
	activityModeAllPvP = 5
	historyPageSize    = 250
)

// Adapter 实现 interfaces.ProfileFetcher
type Adapter struct {
	cfg    *config.BungieConfig
	client *httpclient.Client
	logger *logrus.Logger
}

var _ interfaces.ProfileFetcher = (*Adapter)(nil)

func New(cfg *config.BungieConfig, logger *logrus.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: httpclient.New("bungie", cfg.Proxy, cfg.Timeout, logger),
		logger: logger,
	}
}

func (b *Adapter) baseURL() string {
	if b.cfg.BaseURL != "" {
		return strings.TrimRight(b.cfg.BaseURL, "/")
	}
	return defaultBaseURL
}

func (b *Adapter) statsURL() string {
	if b.cfg.StatsURL != "" {
		return strings.TrimRight(b.cfg.StatsURL, "/")
	}
	return defaultStatsURL
}

// get 统一处理外层 envelope，ErrorCode != 1 视为上游失败
func get[T any](ctx context.Context, b *Adapter, endpoint string) (T, error) {
	var env model.BungieEnvelope[T]
	header := http.Header{}
	header.Set("X-API-Key", b.cfg.APIKey)
	if err := b.client.GetJSON(ctx, endpoint, header, &env); err != nil {
		return env.Response, err
	}
	if env.ErrorCode != errorCodeSuccess {
		return env.Response, fmt.Errorf("bungie %s（%d）: %s: %w", env.ErrorStatus, env.ErrorCode, env.Message, interfaces.ErrUpstreamUnavailable)
	}
	return env.Response, nil
}

// FetchLinkedAccounts 跨平台关联账号；存在 Bungie.net 账号时作为跨存档分组
func (b *Adapter) FetchLinkedAccounts(ctx context.Context, membershipType int, membershipID string) (*interfaces.LinkedAccounts, error) {
	endpoint := fmt.Sprintf("%s/Destiny2/%d/Profile/%s/LinkedProfiles/", b.baseURL(), membershipType, url.PathEscape(membershipID))
	resp, err := get[model.BungieLinkedProfiles](ctx, b, endpoint)
	if err != nil {
		return nil, fmt.Errorf("获取关联账号失败（%d:%s）: %w", membershipType, membershipID, err)
	}

	linked := &interfaces.LinkedAccounts{}
	if resp.BnetMembership != nil && resp.BnetMembership.MembershipID != "" {
		group := resp.BnetMembership.MembershipID
		linked.CrossSaveGroupID = &group
	}
	seen := make(map[string]bool)
	for _, p := range resp.Profiles {
		if p.MembershipID == "" {
			continue
		}
		id := model.PlatformAccountID(p.MembershipType, p.MembershipID)
		if seen[id] {
			continue
		}
		seen[id] = true
		linked.Accounts = append(linked.Accounts, &model.PlatformAccount{
			ID:               id,
			MembershipID:     p.MembershipID,
			MembershipType:   p.MembershipType,
			DisplayName:      p.DisplayName,
			CrossSaveGroupID: linked.CrossSaveGroupID,
		})
	}
	// 请求的账号本身一定在结果中
	if self := model.PlatformAccountID(membershipType, membershipID); !seen[self] {
		linked.Accounts = append(linked.Accounts, &model.PlatformAccount{
			ID:               self,
			MembershipID:     membershipID,
			MembershipType:   membershipType,
			CrossSaveGroupID: linked.CrossSaveGroupID,
		})
	}
	return linked, nil
}

// FetchCharacterIDs 账号下的角色
func (b *Adapter) FetchCharacterIDs(ctx context.Context, account *model.PlatformAccount) ([]string, error) {
	endpoint := fmt.Sprintf("%s/Destiny2/%d/Profile/%s/?components=%d", b.baseURL(), account.MembershipType, url.PathEscape(account.MembershipID), componentProfiles)
	resp, err := get[model.BungieProfile](ctx, b, endpoint)
	if err != nil {
		return nil, fmt.Errorf("获取角色失败（%s）: %w", account.ID, err)
	}
	return resp.Profile.Data.CharacterIDs, nil
}

// FetchActivityHistory 角色的对抗模式对局概要（只有 InstanceID/ActivityHash/StartTime）
func (b *Adapter) FetchActivityHistory(ctx context.Context, account *model.PlatformAccount, characterID string) ([]*model.ActivityInstance, error) {
	endpoint := fmt.Sprintf("%s/Destiny2/%d/Account/%s/Character/%s/Stats/Activities/?mode=%d&count=%d",
		b.baseURL(), account.MembershipType, url.PathEscape(account.MembershipID), url.PathEscape(characterID), activityModeAllPvP, historyPageSize)
	resp, err := get[model.BungieActivityHistory](ctx, b, endpoint)
	if err != nil {
		return nil, fmt.Errorf("获取对局历史失败（%s/%s）: %w", account.ID, characterID, err)
	}

	instances := make([]*model.ActivityInstance, 0, len(resp.Activities))
	for _, a := range resp.Activities {
		start, ok := adapter.ParseTimestamp(a.Period)
		if !ok || a.ActivityDetails.InstanceID == "" {
			b.logger.WithError(interfaces.ErrMalformedResponse).WithField("account", account.ID).Warn("对局概要缺少字段，跳过")
			continue
		}
		instances = append(instances, &model.ActivityInstance{
			InstanceID:   a.ActivityDetails.InstanceID,
			ActivityHash: a.ActivityDetails.DirectorActivityHash,
			StartTime:    start,
		})
	}
	return instances, nil
}

// FetchActivityDetail 对局详情：每个参与者的阵营与实际参与区间
// 同一账号多角色出现时合并为一条（最早加入 ~ 最晚离开）
func (b *Adapter) FetchActivityDetail(ctx context.Context, instanceID string) (*model.ActivityInstance, error) {
	endpoint := fmt.Sprintf("%s/Destiny2/Stats/PostGameCarnageReport/%s/", b.statsURL(), url.PathEscape(instanceID))
	pgcr, err := get[model.BungiePGCR](ctx, b, endpoint)
	if err != nil {
		return nil, fmt.Errorf("获取对局详情失败（%s）: %w", instanceID, err)
	}
	return ConvertPGCR(&pgcr, instanceID)
}

// ConvertPGCR PGCR -> 对局 + 参与记录
func ConvertPGCR(pgcr *model.BungiePGCR, instanceID string) (*model.ActivityInstance, error) {
	start, ok := adapter.ParseTimestamp(pgcr.Period)
	if !ok {
		return nil, fmt.Errorf("对局 %s 缺少开始时间: %w", instanceID, interfaces.ErrMalformedResponse)
	}
	if pgcr.ActivityDetails.InstanceID != "" {
		instanceID = pgcr.ActivityDetails.InstanceID
	}
	inst := &model.ActivityInstance{
		InstanceID:   instanceID,
		ActivityHash: pgcr.ActivityDetails.DirectorActivityHash,
		StartTime:    start,
		EndTime:      start,
	}

	byAccount := make(map[string]*model.Participation)
	for _, e := range pgcr.Entries {
		info := e.Player.DestinyUserInfo
		if info.MembershipID == "" {
			continue
		}
		joined := start.Add(seconds(e.Values, "startSeconds"))
		left := joined.Add(seconds(e.Values, "timePlayedSeconds"))
		if d := start.Add(seconds(e.Values, "activityDurationSeconds")); d.After(inst.EndTime) {
			inst.EndTime = d
		}
		if left.After(inst.EndTime) {
			inst.EndTime = left
		}

		accountID := model.PlatformAccountID(info.MembershipType, info.MembershipID)
		p, exists := byAccount[accountID]
		if !exists {
			p = &model.Participation{
				InstanceID:  instanceID,
				AccountID:   accountID,
				CharacterID: e.CharacterID,
				StartTime:   joined,
				EndTime:     left,
			}
			if v, ok := e.Values["team"]; ok {
				team := int(v.Basic.Value)
				p.Team = &team
			}
			byAccount[accountID] = p
			continue
		}
		if joined.Before(p.StartTime) {
			p.StartTime = joined
		}
		if left.After(p.EndTime) {
			p.EndTime = left
		}
	}

	ids := make([]string, 0, len(byAccount))
	for id := range byAccount {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		inst.Participations = append(inst.Participations, *byAccount[id])
	}
	return inst, nil
}

func seconds(values map[string]model.BungieStatValue, key string) time.Duration {
	v, ok := values[key]
	if !ok || v.Basic.Value < 0 {
		return 0
	}
	return time.Duration(v.Basic.Value * float64(time.Second))
}

// FetchPartnerships 官方合作关系；目前只有 Twitch
func (b *Adapter) FetchPartnerships(ctx context.Context, crossSaveGroupID string) ([]interfaces.Partnership, error) {
	endpoint := fmt.Sprintf("%s/User/%s/Partnerships/", b.baseURL(), url.PathEscape(crossSaveGroupID))
	resp, err := get[[]model.BungiePartnership](ctx, b, endpoint)
	if err != nil {
		return nil, fmt.Errorf("获取官方合作关系失败（%s）: %w", crossSaveGroupID, err)
	}
	var out []interfaces.Partnership
	for _, p := range resp {
		if p.PartnerType != partnerTypeTwitch || p.Identifier == "" {
			continue
		}
		out = append(out, interfaces.Partnership{
			Provider:   model.ProviderTwitch,
			ExternalID: p.Identifier,
			Name:       p.Name,
		})
	}
	return out, nil
}
