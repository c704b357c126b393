package service

import (
	"context"
	"fmt"
	"time"

	"EncounterSync/internal/config"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/metrics"
	"EncounterSync/internal/model"
	"EncounterSync/internal/reconcile"
	"EncounterSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// ProfileSyncResult 单个玩家资料刷新结果
type ProfileSyncResult struct {
	Accounts     int        `json:"accounts"`
	NewInstances int        `json:"new_instances"`
	Links        int        `json:"links"`
	Activity     PassResult `json:"activity_units"`
}

// ProfileSyncService 刷新游戏账号关联、对局历史，并触发关联发现
type ProfileSyncService struct {
	accounts   repository.AccountRepository
	activities repository.ActivityRepository
	fetcher    interfaces.ProfileFetcher
	discovery  *LinkDiscoveryService
	cfg        *config.SyncConfig
	logger     *logrus.Logger
	now        func() time.Time
}

func NewProfileSyncService(
	accounts repository.AccountRepository,
	activities repository.ActivityRepository,
	fetcher interfaces.ProfileFetcher,
	discovery *LinkDiscoveryService,
	cfg *config.SyncConfig,
	logger *logrus.Logger,
) *ProfileSyncService {
	return &ProfileSyncService{
		accounts:   accounts,
		activities: activities,
		fetcher:    fetcher,
		discovery:  discovery,
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SyncProfile 刷新一个玩家：关联账号 -> 各账号对局 -> 关联发现
func (s *ProfileSyncService) SyncProfile(ctx context.Context, membershipType int, membershipID string) (*ProfileSyncResult, error) {
	cctx, cancel := callTimeout(ctx, s.cfg.CallTimeout)
	linked, err := s.fetcher.FetchLinkedAccounts(cctx, membershipType, membershipID)
	cancel()
	if err != nil {
		return nil, err
	}
	if err := s.saveAccounts(ctx, linked.Accounts); err != nil {
		return nil, err
	}

	res := &ProfileSyncResult{Accounts: len(linked.Accounts)}
	var newInstances int64
	res.Activity = runUnits(ctx, s.logger, "activity", s.cfg.Workers, linked.Accounts,
		func(a *model.PlatformAccount) logrus.Fields { return logrus.Fields{"account": a.ID} },
		func(ctx context.Context, a *model.PlatformAccount) error {
			n, err := s.syncActivities(ctx, a)
			if err != nil {
				return err
			}
			addInt64(&newInstances, int64(n))
			return s.accounts.TouchPlatformAccount(ctx, a.ID, s.now())
		})
	res.NewInstances = int(newInstances)

	if s.discovery != nil {
		n, err := s.discovery.Discover(ctx, linked)
		if err != nil {
			s.logger.WithError(err).WithField("account", model.PlatformAccountID(membershipType, membershipID)).Warn("关联发现失败")
		}
		res.Links = n
	}
	return res, nil
}

// RunStale 定时任务：刷新最久未刷新的账号
func (s *ProfileSyncService) RunStale(ctx context.Context, limit int) (PassResult, error) {
	stale, err := s.accounts.ListStalePlatformAccounts(ctx, limit)
	if err != nil {
		return PassResult{}, fmt.Errorf("ListStalePlatformAccounts: %w", err)
	}
	return runUnits(ctx, s.logger, "profile", s.cfg.Workers, stale,
		func(a *model.PlatformAccount) logrus.Fields { return logrus.Fields{"account": a.ID} },
		func(ctx context.Context, a *model.PlatformAccount) error {
			_, err := s.SyncProfile(ctx, a.MembershipType, a.MembershipID)
			return err
		}), nil
}

// saveAccounts 游戏账号只新增或更新，从不删除
func (s *ProfileSyncService) saveAccounts(ctx context.Context, fresh []*model.PlatformAccount) error {
	ids := make([]string, 0, len(fresh))
	for _, a := range fresh {
		ids = append(ids, a.ID)
	}
	stored, err := s.accounts.ListPlatformAccounts(ctx, ids)
	if err != nil {
		return fmt.Errorf("ListPlatformAccounts: %w", err)
	}
	key := func(a *model.PlatformAccount) string { return a.ID }
	plan := reconcile.Diff(stored, fresh, key, model.PlatformAccountEqual, false)
	res := reconcile.Apply(ctx, plan, key, s.accounts.PlatformAccountWriter())
	metrics.RecordReconcile("platform_account", res.Inserted, res.Updated, res.Deleted, len(res.Failures))
	if err := res.Err(); err != nil {
		s.logger.WithError(err).Warn("部分游戏账号写入失败")
	}
	return nil
}

// syncActivities 拉取账号全部角色的对局历史，只为新对局拉取详情
func (s *ProfileSyncService) syncActivities(ctx context.Context, account *model.PlatformAccount) (int, error) {
	cctx, cancel := callTimeout(ctx, s.cfg.CallTimeout)
	characters, err := s.fetcher.FetchCharacterIDs(cctx, account)
	cancel()
	if err != nil {
		return 0, err
	}

	var summaries []*model.ActivityInstance
	seen := make(map[string]bool)
	for _, cid := range characters {
		cctx, cancel := callTimeout(ctx, s.cfg.CallTimeout)
		history, err := s.fetcher.FetchActivityHistory(cctx, account, cid)
		cancel()
		if err != nil {
			return 0, err
		}
		for _, inst := range history {
			if !seen[inst.InstanceID] {
				seen[inst.InstanceID] = true
				summaries = append(summaries, inst)
			}
		}
	}
	if len(summaries) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(summaries))
	for _, inst := range summaries {
		ids = append(ids, inst.InstanceID)
	}
	existing, err := s.activities.ExistingInstanceIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("ExistingInstanceIDs: %w", err)
	}

	var details []*model.ActivityInstance
	for _, id := range ids {
		if existing[id] {
			continue
		}
		cctx, cancel := callTimeout(ctx, s.cfg.CallTimeout)
		detail, err := s.fetcher.FetchActivityDetail(cctx, id)
		cancel()
		if err != nil {
			// 单个对局详情失败不影响其它对局，下一轮会重试
			s.logger.WithError(err).WithField("instance_id", id).Warn("对局详情拉取失败，跳过")
			continue
		}
		details = append(details, detail)
	}
	if err := s.activities.SaveInstances(ctx, details); err != nil {
		return 0, err
	}
	return len(details), nil
}
