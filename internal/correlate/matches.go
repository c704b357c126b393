package correlate

import (
	"sort"

	"EncounterSync/internal/interval"
)

// ClipMatch 某条录像命中的对局与账号（写回 clips 表的反范式字段）
type ClipMatch struct {
	InstanceIDs []string
	AccountIDs  []string
}

// ClipMatches 计算指定视频账号下每条录像命中的对局与参与者
// 只统计能经未驳回关联边到达该视频账号的参与者
func ClipMatches(s *Snapshot, videoAccountID string) map[string]ClipMatch {
	clips := s.ClipsOf(videoAccountID)
	if len(clips) == 0 {
		return nil
	}
	cache := newReachCache(s.Graph)
	instances := make(map[string]map[string]struct{})
	accounts := make(map[string]map[string]struct{})

	for _, inst := range s.Instances {
		for i := range inst.Participations {
			p := &inst.Participations[i]
			played := p.Played()
			if !reaches(cache, p.AccountID, videoAccountID) {
				continue
			}
			for _, clip := range clips {
				if !clip.StartTime.Before(played.End) {
					break
				}
				if !interval.Overlaps(played, clip.Recorded()) {
					continue
				}
				addTo(instances, clip.ID, inst.InstanceID)
				addTo(accounts, clip.ID, p.AccountID)
			}
		}
	}

	out := make(map[string]ClipMatch, len(clips))
	for _, clip := range clips {
		out[clip.ID] = ClipMatch{
			InstanceIDs: sortedKeys(instances[clip.ID]),
			AccountIDs:  sortedKeys(accounts[clip.ID]),
		}
	}
	return out
}

func reaches(cache *reachCache, accountID, videoAccountID string) bool {
	for _, r := range cache.reachable(cache.player(accountID)) {
		if r.VideoAccount.ID == videoAccountID {
			return true
		}
	}
	return false
}

func addTo(m map[string]map[string]struct{}, key, value string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[value] = struct{}{}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
