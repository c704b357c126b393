package service

import (
	"context"
	"fmt"
	"time"

	"EncounterSync/internal/adapter"
	"EncounterSync/internal/config"
	"EncounterSync/internal/correlate"
	"EncounterSync/internal/identity"
	"EncounterSync/internal/metrics"
	"EncounterSync/internal/model"
	"EncounterSync/internal/reconcile"
	"EncounterSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// ClipSyncResult 单个视频账号的录像刷新结果
type ClipSyncResult struct {
	VideoAccountID string `json:"video_account_id"`
	Fetched        int    `json:"fetched"`
	Inserted       int    `json:"inserted"`
	Updated        int    `json:"updated"`
	Deleted        int    `json:"deleted"`
	Failed         int    `json:"failed"`
	Fresh          int    `json:"fresh"` // 结束时间在 clip_recency 窗口内的录像
}

// ClipSyncService 按视频账号拉取录像、对比入库并刷新匹配字段
type ClipSyncService struct {
	accounts   repository.AccountRepository
	links      repository.LinkRepository
	activities repository.ActivityRepository
	clips      repository.ClipRepository
	providers  *adapter.ProviderRegistry
	cfg        *config.SyncConfig
	logger     *logrus.Logger
	now        func() time.Time
}

func NewClipSyncService(
	accounts repository.AccountRepository,
	links repository.LinkRepository,
	activities repository.ActivityRepository,
	clips repository.ClipRepository,
	providers *adapter.ProviderRegistry,
	cfg *config.SyncConfig,
	logger *logrus.Logger,
) *ClipSyncService {
	return &ClipSyncService{
		accounts:   accounts,
		links:      links,
		activities: activities,
		clips:      clips,
		providers:  providers,
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run 刷新一批视频账号（从未拉取/最久未拉取的优先）
func (s *ClipSyncService) Run(ctx context.Context) (PassResult, error) {
	enabled := s.providers.List()
	if len(enabled) == 0 {
		s.logger.Debug("没有已启用的视频平台，跳过录像采集")
		return PassResult{}, nil
	}
	vas, err := s.accounts.ListVideoAccountsForRefresh(ctx, enabled, s.cfg.ClipBatchSize)
	if err != nil {
		return PassResult{}, fmt.Errorf("ListVideoAccountsForRefresh: %w", err)
	}
	return runUnits(ctx, s.logger, "clip", s.cfg.Workers, vas,
		func(v *model.VideoAccount) logrus.Fields {
			return logrus.Fields{"video_account": v.ID, "provider": v.Provider}
		},
		func(ctx context.Context, v *model.VideoAccount) error {
			_, err := s.SyncVideoAccount(ctx, v)
			return err
		}), nil
}

// SyncVideoAccount 拉取 -> 归一化 -> 对比 -> 写入 -> 刷新匹配
func (s *ClipSyncService) SyncVideoAccount(ctx context.Context, va *model.VideoAccount) (*ClipSyncResult, error) {
	provider, err := s.providers.Get(va.Provider)
	if err != nil {
		return nil, err
	}
	cctx, cancel := callTimeout(ctx, s.cfg.CallTimeout)
	raws, err := provider.FetchClips(cctx, va)
	cancel()
	if err != nil {
		return nil, err
	}
	fresh := adapter.NormalizeAll(provider, raws)

	stored, err := s.clips.ListClipsByVideoAccount(ctx, va.ID)
	if err != nil {
		return nil, fmt.Errorf("ListClipsByVideoAccount: %w", err)
	}
	key := func(c *model.Clip) string { return c.ID }
	plan := reconcile.Diff(stored, fresh, key, model.ClipEqual, true)
	plan.Delete = deletableClips(stored, fresh, plan.Delete)

	res := reconcile.Apply(ctx, plan, key, s.clips.ClipWriter())
	metrics.RecordReconcile("clip", res.Inserted, res.Updated, res.Deleted, len(res.Failures))
	if err := res.Err(); err != nil {
		s.logger.WithError(err).WithField("video_account", va.ID).Warn("部分录像写入失败")
	}

	now := s.now()
	if err := s.accounts.TouchVideoAccount(ctx, va.ID, now); err != nil {
		return nil, fmt.Errorf("TouchVideoAccount: %w", err)
	}
	if err := s.RefreshClipMatches(ctx, va.ID); err != nil {
		s.logger.WithError(err).WithField("video_account", va.ID).Warn("刷新录像匹配失败")
	}

	out := &ClipSyncResult{
		VideoAccountID: va.ID,
		Fetched:        len(fresh),
		Inserted:       res.Inserted,
		Updated:        res.Updated,
		Deleted:        res.Deleted,
		Failed:         len(res.Failures),
	}
	for _, c := range fresh {
		if c.Fresh(now, s.cfg.ClipRecency) {
			out.Fresh++
		}
	}
	return out, nil
}

// deletableClips 只删除本次拉取覆盖时间范围内消失的录像；
// 分页截断之外的旧录像、以及整次拉取为空时都不删除
func deletableClips(stored, fresh []*model.Clip, candidates []string) []string {
	if len(fresh) == 0 || len(candidates) == 0 {
		return nil
	}
	oldest := fresh[0].StartTime
	for _, c := range fresh[1:] {
		if c.StartTime.Before(oldest) {
			oldest = c.StartTime
		}
	}
	byID := make(map[string]*model.Clip, len(stored))
	for _, c := range stored {
		byID[c.ID] = c
	}
	var out []string
	for _, id := range candidates {
		if c, ok := byID[id]; ok && !c.StartTime.Before(oldest) {
			out = append(out, id)
		}
	}
	return out
}

// RefreshClipMatches 重新计算某视频账号下每条录像命中的对局与账号
func (s *ClipSyncService) RefreshClipMatches(ctx context.Context, videoAccountID string) error {
	clips, err := s.clips.ListClipsByVideoAccount(ctx, videoAccountID)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		return nil
	}
	inbound, err := s.links.ListLinksByVideoAccount(ctx, videoAccountID)
	if err != nil {
		return err
	}
	var owners []string
	for _, l := range inbound {
		if !l.Rejected {
			owners = append(owners, l.AccountID)
		}
	}

	var snap *correlate.Snapshot
	if len(owners) == 0 {
		snap = correlate.NewSnapshot(identity.NewGraph(s.logger), nil, clips)
	} else {
		closure, err := s.accounts.ListAccountClosure(ctx, owners)
		if err != nil {
			return err
		}
		accountIDs := unionIDs(owners, accountIDsOf(closure))
		links, err := s.links.ListLinksByAccounts(ctx, accountIDs)
		if err != nil {
			return err
		}
		vas, err := s.accounts.ListVideoAccounts(ctx, []string{videoAccountID})
		if err != nil {
			return err
		}
		from, to := clipSpan(clips)
		instances, err := s.activities.ListInstancesOverlapping(ctx, accountIDs, from, to)
		if err != nil {
			return err
		}
		g := identity.Build(s.logger, closure, vas, links)
		snap = correlate.NewSnapshot(g, instances, clips)
	}

	matches := correlate.ClipMatches(snap, videoAccountID)
	for _, c := range clips {
		m := matches[c.ID]
		if sameStrings(c.MatchedInstanceIDs, m.InstanceIDs) && sameStrings(c.MatchedAccountIDs, m.AccountIDs) {
			continue
		}
		if err := s.clips.UpdateMatches(ctx, c.ID, m.InstanceIDs, m.AccountIDs); err != nil {
			return fmt.Errorf("UpdateMatches %s: %w", c.ID, err)
		}
	}
	return nil
}

// clipSpan 录像覆盖的整体时间范围
func clipSpan(clips []*model.Clip) (time.Time, time.Time) {
	from, to := clips[0].StartTime, clips[0].EndTime
	for _, c := range clips[1:] {
		if c.StartTime.Before(from) {
			from = c.StartTime
		}
		if c.EndTime.After(to) {
			to = c.EndTime
		}
	}
	return from, to
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
