package correlate

import (
	"strconv"

	"EncounterSync/internal/interval"
	"EncounterSync/internal/model"
)

// InstanceSet 对局ID集合
type InstanceSet map[string]struct{}

// Intersect 交集
func (a InstanceSet) Intersect(b InstanceSet) InstanceSet {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(InstanceSet)
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Union 并集（原地并入 a）
func (a InstanceSet) Union(b InstanceSet) InstanceSet {
	for id := range b {
		a[id] = struct{}{}
	}
	return a
}

// CandidateInstances 存在性过滤：该阵营至少一名参与者在指定平台上有可达且相交的录像
// 找到第一条即停止，不生成完整匹配
func CandidateInstances(s *Snapshot, team int, provider model.ProviderType) InstanceSet {
	cache := newReachCache(s.Graph)
	out := make(InstanceSet)
	for _, inst := range s.Instances {
		if teamRecorded(s, cache, inst, team, provider) {
			out[inst.InstanceID] = struct{}{}
		}
	}
	return out
}

func teamRecorded(s *Snapshot, cache *reachCache, inst *model.ActivityInstance, team int, provider model.ProviderType) bool {
	for i := range inst.Participations {
		p := &inst.Participations[i]
		if p.Team == nil || *p.Team != team {
			continue
		}
		played := p.Played()
		for _, r := range cache.reachable(cache.player(p.AccountID)) {
			if r.VideoAccount.Provider != provider {
				continue
			}
			for _, clip := range s.ClipsOf(r.VideoAccount.ID) {
				if !clip.StartTime.Before(played.End) {
					break
				}
				if interval.Overlaps(played, clip.Recorded()) {
					return true
				}
			}
		}
	}
	return false
}

// FindCrossEncounters 两个对立阵营都被录到的对局。
// candidates 为空时先按 阵营×平台 做存在性过滤再求交，只对交集做完整匹配
func FindCrossEncounters(s *Snapshot, teamA, teamB int, candidates InstanceSet) []InstanceEncounters {
	if teamA == teamB {
		return nil
	}
	if candidates == nil {
		a, b := make(InstanceSet), make(InstanceSet)
		for _, provider := range []model.ProviderType{model.ProviderTwitch, model.ProviderYouTube, model.ProviderMixer} {
			a.Union(CandidateInstances(s, teamA, provider))
			b.Union(CandidateInstances(s, teamB, provider))
		}
		candidates = a.Intersect(b)
	}
	if len(candidates) == 0 {
		return nil
	}

	labelA, labelB := strconv.Itoa(teamA), strconv.Itoa(teamB)
	cache := newReachCache(s.Graph)
	var out []InstanceEncounters
	for _, inst := range s.Instances {
		if _, ok := candidates[inst.InstanceID]; !ok {
			continue
		}
		var kept []Encounter
		var hasA, hasB bool
		for _, e := range instanceEncounters(s, cache, inst, nil) {
			switch e.Team {
			case labelA:
				hasA = true
			case labelB:
				hasB = true
			default:
				continue
			}
			kept = append(kept, e)
		}
		if hasA && hasB {
			out = append(out, InstanceEncounters{Instance: inst, Encounters: kept})
		}
	}
	sortInstancesDesc(out)
	return out
}
