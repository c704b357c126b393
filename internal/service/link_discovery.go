package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"EncounterSync/internal/adapter"
	"EncounterSync/internal/config"
	"EncounterSync/internal/identity"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/metrics"
	"EncounterSync/internal/model"
	"EncounterSync/internal/reconcile"
	"EncounterSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// LinkDiscoveryService 自动发现 游戏账号 -> 视频账号 的关联：
// 官方合作关系（partnership）与同名匹配（name_match）
type LinkDiscoveryService struct {
	accounts  repository.AccountRepository
	links     repository.LinkRepository
	fetcher   interfaces.ProfileFetcher
	providers *adapter.ProviderRegistry
	cfg       *config.SyncConfig
	logger    *logrus.Logger
}

func NewLinkDiscoveryService(
	accounts repository.AccountRepository,
	links repository.LinkRepository,
	fetcher interfaces.ProfileFetcher,
	providers *adapter.ProviderRegistry,
	cfg *config.SyncConfig,
	logger *logrus.Logger,
) *LinkDiscoveryService {
	return &LinkDiscoveryService{
		accounts:  accounts,
		links:     links,
		fetcher:   fetcher,
		providers: providers,
		cfg:       cfg,
		logger:    logger,
	}
}

type candidateLink struct {
	account *model.PlatformAccount
	video   *model.VideoAccount
	method  model.LinkMethod
}

// Discover 对一组跨平台账号执行全部发现策略，返回写入的关联数
// 单个策略或平台失败只记录日志
func (s *LinkDiscoveryService) Discover(ctx context.Context, linked *interfaces.LinkedAccounts) (int, error) {
	if linked == nil || len(linked.Accounts) == 0 {
		return 0, nil
	}
	var candidates []candidateLink
	var errs []error

	if linked.CrossSaveGroupID != nil {
		found, err := s.partnerships(ctx, *linked.CrossSaveGroupID, linked.Accounts)
		if err != nil {
			errs = append(errs, err)
		}
		candidates = append(candidates, found...)
	}
	found, err := s.nameMatches(ctx, linked.Accounts)
	if err != nil {
		errs = append(errs, err)
	}
	candidates = append(candidates, found...)

	if len(candidates) == 0 {
		return 0, errors.Join(errs...)
	}

	videos := make([]*model.VideoAccount, 0, len(candidates))
	for _, c := range candidates {
		videos = append(videos, c.video)
	}
	if err := s.saveVideoAccounts(ctx, videos); err != nil {
		return 0, err
	}

	saved := 0
	for _, c := range candidates {
		link := identity.NewLink(c.account, c.video, c.method)
		if err := s.links.UpsertLink(ctx, link); err != nil {
			errs = append(errs, err)
			continue
		}
		metrics.LinksDiscoveredTotal.WithLabelValues(string(c.method)).Inc()
		saved++
	}
	return saved, errors.Join(errs...)
}

// partnerships 官方合作关系归属于整个跨存档分组，为组内每个账号建立关联
func (s *LinkDiscoveryService) partnerships(ctx context.Context, group string, accounts []*model.PlatformAccount) ([]candidateLink, error) {
	cctx, cancel := callTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	partners, err := s.fetcher.FetchPartnerships(cctx, group)
	if err != nil {
		return nil, fmt.Errorf("FetchPartnerships: %w", err)
	}
	var out []candidateLink
	for _, p := range partners {
		video := &model.VideoAccount{
			ID:          model.VideoAccountID(p.Provider, p.ExternalID),
			Provider:    p.Provider,
			ExternalID:  p.ExternalID,
			DisplayName: p.Name,
			LoginName:   strings.ToLower(p.Name),
		}
		for _, a := range accounts {
			out = append(out, candidateLink{account: a, video: video, method: model.LinkPartnership})
		}
	}
	return out, nil
}

// nameMatches 以游戏显示名在每个视频平台精确查找（大小写不敏感）
func (s *LinkDiscoveryService) nameMatches(ctx context.Context, accounts []*model.PlatformAccount) ([]candidateLink, error) {
	if s.providers == nil {
		return nil, nil
	}
	var out []candidateLink
	var errs []error
	searched := make(map[string]*model.VideoAccount)
	for _, a := range accounts {
		name := searchableName(a.DisplayName)
		if name == "" {
			continue
		}
		for _, pt := range s.providers.List() {
			provider, err := s.providers.Get(pt)
			if err != nil {
				continue
			}
			key := string(pt) + "|" + strings.ToLower(name)
			video, done := searched[key]
			if !done {
				// 已知同名视频账号直接复用，不再调用平台接口
				if known, err := s.accounts.ListVideoAccountsByLogin(ctx, pt, strings.ToLower(name)); err == nil && len(known) > 0 {
					video, done = known[0], true
					searched[key] = video
				}
			}
			if !done {
				cctx, cancel := callTimeout(ctx, s.cfg.CallTimeout)
				video, err = provider.SearchAccountByName(cctx, name)
				cancel()
				if err != nil {
					errs = append(errs, fmt.Errorf("%s 同名查找 %q: %w", pt, name, err))
					continue
				}
				searched[key] = video
			}
			if video == nil {
				continue
			}
			out = append(out, candidateLink{account: a, video: video, method: model.LinkNameMatch})
		}
	}
	return out, errors.Join(errs...)
}

// searchableName 去掉 Bungie 名称的 #1234 后缀
func searchableName(display string) string {
	name := strings.TrimSpace(display)
	if i := strings.LastIndex(name, "#"); i > 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func (s *LinkDiscoveryService) saveVideoAccounts(ctx context.Context, fresh []*model.VideoAccount) error {
	return saveVideoAccounts(ctx, s.accounts, s.logger, fresh)
}

// saveVideoAccounts 视频账号对比写入；已存在且字段一致的跳过
func saveVideoAccounts(ctx context.Context, accounts repository.AccountRepository, logger *logrus.Logger, fresh []*model.VideoAccount) error {
	ids := make([]string, 0, len(fresh))
	for _, v := range fresh {
		ids = append(ids, v.ID)
	}
	stored, err := accounts.ListVideoAccounts(ctx, ids)
	if err != nil {
		return fmt.Errorf("ListVideoAccounts: %w", err)
	}
	// 已知视频账号保留库中的频道 token（同名查找不一定返回）
	byID := make(map[string]*model.VideoAccount, len(stored))
	for _, v := range stored {
		byID[v.ID] = v
	}
	for _, v := range fresh {
		if old, ok := byID[v.ID]; ok && v.ChannelToken == "" {
			v.ChannelToken = old.ChannelToken
		}
	}

	key := func(v *model.VideoAccount) string { return v.ID }
	plan := reconcile.Diff(stored, fresh, key, model.VideoAccountEqual, false)
	res := reconcile.Apply(ctx, plan, key, accounts.VideoAccountWriter())
	metrics.RecordReconcile("video_account", res.Inserted, res.Updated, res.Deleted, len(res.Failures))
	if err := res.Err(); err != nil {
		logger.WithError(err).Warn("部分视频账号写入失败")
	}
	return nil
}
