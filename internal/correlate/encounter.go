package correlate

import (
	"sort"
	"strconv"
	"time"

	"EncounterSync/internal/identity"
	"EncounterSync/internal/interval"
	"EncounterSync/internal/model"
)

// SelfTeam 查询者本人（含跨存档账号）的阵营标记，与对手/队友的录像区分
const SelfTeam = "self"

// Encounter 一次参与 × 一条录像 的匹配结果
type Encounter struct {
	InstanceID   string
	AccountID    string // 被拍到的参与者账号
	PlayerKey    string
	Team         string // SelfTeam / 阵营值 / 空（无阵营）
	Played       interval.Interval
	Clip         *model.Clip
	VideoAccount *model.VideoAccount
	Links        []*model.AccountLink // 支撑该归属的关联边（均未驳回）
	SeekOffset   time.Duration
}

// SeekOffsetSeconds 秒（保留小数）
func (e Encounter) SeekOffsetSeconds() float64 {
	return e.SeekOffset.Seconds()
}

// InstanceEncounters 一场对局及其匹配到的录像
type InstanceEncounters struct {
	Instance   *model.ActivityInstance
	Encounters []Encounter
}

// FindEncounters 玩家参与过的每场对局里，所有参与者可达录像与其参与时间的交集
// 结果按对局开始时间倒序；同一对局内按播放地址去重
func FindEncounters(s *Snapshot, player identity.Player) []InstanceEncounters {
	if len(player.AccountIDs) == 0 {
		return nil
	}
	cache := newReachCache(s.Graph)

	var out []InstanceEncounters
	for _, inst := range s.Instances {
		if !participated(inst, player) {
			continue
		}
		encs := instanceEncounters(s, cache, inst, &player)
		if len(encs) == 0 {
			continue
		}
		out = append(out, InstanceEncounters{Instance: inst, Encounters: encs})
	}
	sortInstancesDesc(out)
	return out
}

// instanceEncounters 单场对局的候选匹配 + 去重；self 为 nil 时不做本人标记
func instanceEncounters(s *Snapshot, cache *reachCache, inst *model.ActivityInstance, self *identity.Player) []Encounter {
	var candidates []Encounter
	for i := range inst.Participations {
		p := &inst.Participations[i]
		played := p.Played()
		if played.Empty() {
			continue
		}
		pl := cache.player(p.AccountID)
		team := teamLabel(p, self)

		for _, r := range cache.reachable(pl) {
			for _, clip := range s.ClipsOf(r.VideoAccount.ID) {
				// 录像按开始时间升序，之后的都不可能与本次参与相交
				if !clip.StartTime.Before(played.End) {
					break
				}
				recorded := clip.Recorded()
				if !interval.Overlaps(played, recorded) {
					continue
				}
				candidates = append(candidates, Encounter{
					InstanceID:   inst.InstanceID,
					AccountID:    p.AccountID,
					PlayerKey:    pl.Key,
					Team:         team,
					Played:       played,
					Clip:         clip,
					VideoAccount: r.VideoAccount,
					Links:        r.Links,
					SeekOffset:   interval.SeekOffset(played, recorded),
				})
			}
		}
	}
	return dedupByPlaybackURL(candidates)
}

func participated(inst *model.ActivityInstance, player identity.Player) bool {
	for i := range inst.Participations {
		if player.Has(inst.Participations[i].AccountID) {
			return true
		}
	}
	return false
}

func teamLabel(p *model.Participation, self *identity.Player) string {
	if self != nil && self.Has(p.AccountID) {
		return SelfTeam
	}
	if p.Team == nil {
		return ""
	}
	return strconv.Itoa(*p.Team)
}

func sortInstancesDesc(list []InstanceEncounters) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Instance, list[j].Instance
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.After(b.StartTime)
		}
		return a.InstanceID > b.InstanceID
	})
}
