package correlate

import (
	"sort"

	"EncounterSync/internal/model"
)

// dedupByPlaybackURL 同一播放地址只保留一条
// 胜出者按固定规则选取（本人优先，其次录像ID、账号ID较小者），与输入顺序无关；
// 被合并掉的候选的关联边并入胜出者，保证归属依旧可解释
func dedupByPlaybackURL(candidates []Encounter) []Encounter {
	if len(candidates) == 0 {
		return nil
	}
	byURL := make(map[string]*Encounter, len(candidates))
	for i := range candidates {
		c := candidates[i]
		key := dedupKey(&c)
		existing, ok := byURL[key]
		if !ok {
			cp := c
			cp.Links = append([]*model.AccountLink(nil), c.Links...)
			byURL[key] = &cp
			continue
		}
		links := mergeLinks(existing.Links, c.Links)
		if preferred(&c, existing) {
			cp := c
			*existing = cp
		}
		existing.Links = links
	}

	out := make([]Encounter, 0, len(byURL))
	for _, e := range byURL {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Team != out[j].Team {
			return out[i].Team < out[j].Team
		}
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		return dedupKey(&out[i]) < dedupKey(&out[j])
	})
	return out
}

func dedupKey(e *Encounter) string {
	if e.Clip.PlaybackURL != "" {
		return e.Clip.PlaybackURL
	}
	return "clip:" + e.Clip.ID
}

func preferred(a, b *Encounter) bool {
	aSelf, bSelf := a.Team == SelfTeam, b.Team == SelfTeam
	if aSelf != bSelf {
		return aSelf
	}
	if a.Clip.ID != b.Clip.ID {
		return a.Clip.ID < b.Clip.ID
	}
	return a.AccountID < b.AccountID
}

func mergeLinks(a, b []*model.AccountLink) []*model.AccountLink {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]*model.AccountLink, 0, len(a)+len(b))
	for _, list := range [][]*model.AccountLink{a, b} {
		for _, l := range list {
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
