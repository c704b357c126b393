// Package correlate 把对局参与时间与录像时间求交，得到“谁的录像拍到了这一局”。
// 纯计算、同步、不做 I/O；输入由调用方从仓储加载成 Snapshot。
package correlate

import (
	"sort"

	"EncounterSync/internal/identity"
	"EncounterSync/internal/model"
)

// Snapshot 一次匹配所需的全部输入
type Snapshot struct {
	Graph     *identity.Graph
	Instances []*model.ActivityInstance
	clips     map[string][]*model.Clip // video_account_id -> 按开始时间升序
}

// NewSnapshot 构建快照；录像按视频账号分组并按开始时间升序排列
func NewSnapshot(g *identity.Graph, instances []*model.ActivityInstance, clips []*model.Clip) *Snapshot {
	s := &Snapshot{
		Graph:     g,
		Instances: instances,
		clips:     make(map[string][]*model.Clip),
	}
	for _, c := range clips {
		if c == nil {
			continue
		}
		s.clips[c.VideoAccountID] = append(s.clips[c.VideoAccountID], c)
	}
	for _, list := range s.clips {
		sort.Slice(list, func(i, j int) bool {
			if !list[i].StartTime.Equal(list[j].StartTime) {
				return list[i].StartTime.Before(list[j].StartTime)
			}
			return list[i].ID < list[j].ID
		})
	}
	return s
}

// ClipsOf 某视频账号的录像（升序）
func (s *Snapshot) ClipsOf(videoAccountID string) []*model.Clip {
	return s.clips[videoAccountID]
}

// reachCache 同一次计算内缓存玩家解析结果
type reachCache struct {
	g       *identity.Graph
	players map[string]identity.Player
	reach   map[string][]identity.Reach
}

func newReachCache(g *identity.Graph) *reachCache {
	return &reachCache{
		g:       g,
		players: make(map[string]identity.Player),
		reach:   make(map[string][]identity.Reach),
	}
}

func (c *reachCache) player(accountID string) identity.Player {
	if p, ok := c.players[accountID]; ok {
		return p
	}
	p := c.g.ResolvePlayer(accountID)
	c.players[accountID] = p
	return p
}

func (c *reachCache) reachable(p identity.Player) []identity.Reach {
	if r, ok := c.reach[p.Key]; ok {
		return r
	}
	r := c.g.ReachableVideoAccounts(p)
	c.reach[p.Key] = r
	return r
}
