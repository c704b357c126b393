package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"EncounterSync/internal/correlate"
	"EncounterSync/internal/identity"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/interval"
	"EncounterSync/internal/metrics"
	"EncounterSync/internal/model"
	"EncounterSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// PlayerEncounters 某玩家的遭遇列表
type PlayerEncounters struct {
	Player    identity.Player
	Instances []correlate.InstanceEncounters
}

// CrossQuery 跨阵营查询条件
type CrossQuery struct {
	TeamA, TeamB int
	Provider     model.ProviderType // 为空表示任意平台
	Window       *interval.Interval // 为空表示不限时间
	Limit        int
}

// EncounterService 从仓储加载快照并调用匹配引擎；每次请求独立构建快照
type EncounterService struct {
	accounts   repository.AccountRepository
	links      repository.LinkRepository
	activities repository.ActivityRepository
	clips      repository.ClipRepository
	logger     *logrus.Logger
}

func NewEncounterService(
	accounts repository.AccountRepository,
	links repository.LinkRepository,
	activities repository.ActivityRepository,
	clips repository.ClipRepository,
	logger *logrus.Logger,
) *EncounterService {
	return &EncounterService{
		accounts:   accounts,
		links:      links,
		activities: activities,
		clips:      clips,
		logger:     logger,
	}
}

// FindEncounters 玩家（任一账号 membershipType:membershipId）参与过的对局中，被谁的录像拍到
// 未知账号返回空结果而不是错误
func (s *EncounterService) FindEncounters(ctx context.Context, accountID string, limit int) (*PlayerEncounters, error) {
	defer metrics.ObserveSince(metrics.QueryDuration, "player", time.Now())

	closure, err := s.accounts.ListAccountClosure(ctx, []string{accountID})
	if err != nil {
		return nil, fmt.Errorf("ListAccountClosure: %w", err)
	}
	selfIDs := unionIDs([]string{accountID}, accountIDsOf(closure))
	instances, err := s.activities.ListInstancesByAccounts(ctx, selfIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("ListInstancesByAccounts: %w", err)
	}

	snap, g, err := s.loadSnapshot(ctx, instances, selfIDs)
	if err != nil {
		return nil, err
	}
	player := g.ResolvePlayer(accountID)
	return &PlayerEncounters{
		Player:    player,
		Instances: correlate.FindEncounters(snap, player),
	}, nil
}

// FindCrossEncounters 两个对立阵营都被录到的对局
// 先用 SQL 做 阵营×录像 存在性过滤并求交，只对交集加载完整数据
func (s *EncounterService) FindCrossEncounters(ctx context.Context, q CrossQuery) ([]correlate.InstanceEncounters, error) {
	defer metrics.ObserveSince(metrics.QueryDuration, "cross", time.Now())
	if q.TeamA == q.TeamB {
		return nil, fmt.Errorf("两个阵营不能相同: %w", interfaces.ErrInvalidInput)
	}

	a, err := s.activities.ListCandidateInstanceIDs(ctx, q.TeamA, q.Provider)
	if err != nil {
		return nil, err
	}
	b, err := s.activities.ListCandidateInstanceIDs(ctx, q.TeamB, q.Provider)
	if err != nil {
		return nil, err
	}
	candidates := toSet(a).Intersect(toSet(b))
	if len(candidates) == 0 {
		return []correlate.InstanceEncounters{}, nil
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	instances, err := s.activities.ListInstancesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("ListInstancesByIDs: %w", err)
	}
	if q.Window != nil {
		kept := instances[:0]
		for _, inst := range instances {
			if interval.Overlaps(*q.Window, inst.Period()) {
				kept = append(kept, inst)
			}
		}
		instances = kept
	}

	snap, _, err := s.loadSnapshot(ctx, instances, nil)
	if err != nil {
		return nil, err
	}
	// 只对 SQL 候选集做完整匹配（SQL 结果是超集，引擎会再次校验）
	set := make(correlate.InstanceSet, len(instances))
	for _, inst := range instances {
		set[inst.InstanceID] = struct{}{}
	}
	out := correlate.FindCrossEncounters(snap, q.TeamA, q.TeamB, set)
	if q.Limit > 0 && len(out) > q.Limit {
		// 引擎输出已按开始时间倒序
		out = out[:q.Limit]
	}
	if out == nil {
		out = []correlate.InstanceEncounters{}
	}
	return out, nil
}

// loadSnapshot 加载对局参与者的跨存档闭包、关联、视频账号与时间范围内的录像
func (s *EncounterService) loadSnapshot(ctx context.Context, instances []*model.ActivityInstance, extra []string) (*correlate.Snapshot, *identity.Graph, error) {
	participantIDs := append([]string{}, extra...)
	var from, to time.Time
	for i, inst := range instances {
		for _, p := range inst.Participations {
			participantIDs = append(participantIDs, p.AccountID)
		}
		if i == 0 || inst.StartTime.Before(from) {
			from = inst.StartTime
		}
		if i == 0 || inst.EndTime.After(to) {
			to = inst.EndTime
		}
		for _, p := range inst.Participations {
			if p.EndTime.After(to) {
				to = p.EndTime
			}
		}
	}
	participantIDs = unionIDs(participantIDs, nil)

	accounts, err := s.accounts.ListAccountClosure(ctx, participantIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("ListAccountClosure: %w", err)
	}
	accountIDs := unionIDs(participantIDs, accountIDsOf(accounts))
	links, err := s.links.ListLinksByAccounts(ctx, accountIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("ListLinksByAccounts: %w", err)
	}
	var vaIDs []string
	for _, l := range links {
		if !l.Rejected {
			vaIDs = append(vaIDs, l.VideoAccountID)
		}
	}
	vaIDs = unionIDs(vaIDs, nil)
	vas, err := s.accounts.ListVideoAccounts(ctx, vaIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("ListVideoAccounts: %w", err)
	}
	clips, err := s.clips.ListClipsOverlapping(ctx, vaIDs, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("ListClipsOverlapping: %w", err)
	}

	g := identity.Build(s.logger, accounts, vas, links)
	return correlate.NewSnapshot(g, instances, clips), g, nil
}

func toSet(ids []string) correlate.InstanceSet {
	set := make(correlate.InstanceSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func accountIDsOf(accounts []*model.PlatformAccount) []string {
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	return ids
}

// unionIDs 去重并排序
func unionIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, id := range a {
		seen[id] = struct{}{}
	}
	for _, id := range b {
		seen[id] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		if id != "" {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
