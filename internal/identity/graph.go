// Package identity 维护 游戏账号 / 视频账号 / 关联边 组成的身份图。
// 所有实体按 key 存放在图中，反向关系一律通过 id 查找，不保存指针回链。
// Graph 非并发安全：每次查询构建一份，用完即弃。
package identity

import (
	"sort"

	"EncounterSync/internal/model"

	"github.com/sirupsen/logrus"
)

// Player 一个真实玩家：跨存档合并后的全部游戏账号
type Player struct {
	Key        string   // 跨存档分组存在时为 "bnet:<group>"，否则为账号ID
	AccountIDs []string // 有序
}

// Has 账号是否属于该玩家
func (p Player) Has(accountID string) bool {
	i := sort.SearchStrings(p.AccountIDs, accountID)
	return i < len(p.AccountIDs) && p.AccountIDs[i] == accountID
}

// Reach 玩家可达的一个视频账号及支撑该可达性的关联边
type Reach struct {
	VideoAccount *model.VideoAccount
	Links        []*model.AccountLink
}

// Graph 身份图
type Graph struct {
	accounts      map[string]*model.PlatformAccount
	groups        map[string][]string // cross_save_group_id -> 账号ID
	videoAccounts map[string]*model.VideoAccount
	links         map[string][]*model.AccountLink // account_id -> 关联边
	logger        *logrus.Logger
}

// NewGraph 创建空图
func NewGraph(logger *logrus.Logger) *Graph {
	return &Graph{
		accounts:      make(map[string]*model.PlatformAccount),
		groups:        make(map[string][]string),
		videoAccounts: make(map[string]*model.VideoAccount),
		links:         make(map[string][]*model.AccountLink),
		logger:        logger,
	}
}

// Build 从已加载的行构建图
func Build(logger *logrus.Logger, accounts []*model.PlatformAccount, videoAccounts []*model.VideoAccount, links []*model.AccountLink) *Graph {
	g := NewGraph(logger)
	for _, a := range accounts {
		g.AddAccount(a)
	}
	for _, v := range videoAccounts {
		g.AddVideoAccount(v)
	}
	for _, l := range links {
		g.AddLink(l)
	}
	return g
}

// AddAccount 加入游戏账号（重复加入以后者为准）
func (g *Graph) AddAccount(a *model.PlatformAccount) {
	if a == nil || a.ID == "" {
		return
	}
	if old, ok := g.accounts[a.ID]; ok && groupOf(old) != "" {
		g.groups[groupOf(old)] = removeString(g.groups[groupOf(old)], a.ID)
	}
	g.accounts[a.ID] = a
	if group := groupOf(a); group != "" {
		g.groups[group] = insertSorted(g.groups[group], a.ID)
	}
}

// AddVideoAccount 加入视频账号
func (g *Graph) AddVideoAccount(v *model.VideoAccount) {
	if v == nil || v.ID == "" {
		return
	}
	g.videoAccounts[v.ID] = v
}

// AddLink 加入关联边；同 ID 的边以后者为准
func (g *Graph) AddLink(l *model.AccountLink) {
	if l == nil || l.AccountID == "" {
		return
	}
	existing := g.links[l.AccountID]
	for i, e := range existing {
		if e.ID == l.ID {
			existing[i] = l
			return
		}
	}
	g.links[l.AccountID] = append(existing, l)
}

// Account 按ID取游戏账号
func (g *Graph) Account(id string) (*model.PlatformAccount, bool) {
	a, ok := g.accounts[id]
	return a, ok
}

// VideoAccount 按ID取视频账号
func (g *Graph) VideoAccount(id string) (*model.VideoAccount, bool) {
	v, ok := g.videoAccounts[id]
	return v, ok
}

// LinksOf 某游戏账号的全部关联边（含已驳回）
func (g *Graph) LinksOf(accountID string) []*model.AccountLink {
	return g.links[accountID]
}

// ResolvePlayer 沿跨存档分组收集同一玩家的全部账号；图中没有该账号时按单账号玩家处理
func (g *Graph) ResolvePlayer(accountID string) Player {
	a, ok := g.accounts[accountID]
	if !ok {
		g.logger.WithField("account_id", accountID).Debug("身份图中无该账号，按单账号玩家处理")
		return Player{Key: accountID, AccountIDs: []string{accountID}}
	}
	group := groupOf(a)
	if group == "" {
		return Player{Key: a.ID, AccountIDs: []string{a.ID}}
	}
	ids := g.groups[group]
	if len(ids) == 0 {
		// 分组索引与账号不一致时退化为单账号
		g.logger.WithFields(logrus.Fields{"account_id": a.ID, "group": group}).Warn("跨存档分组索引缺失，降级为单账号")
		return Player{Key: a.ID, AccountIDs: []string{a.ID}}
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return Player{Key: "bnet:" + group, AccountIDs: out}
}

// ReachableVideoAccounts 玩家全部账号经未驳回关联边可达的视频账号（按视频账号ID排序）
func (g *Graph) ReachableVideoAccounts(p Player) []Reach {
	byVideo := make(map[string]*Reach)
	for _, accountID := range p.AccountIDs {
		for _, l := range g.links[accountID] {
			if l.Rejected {
				continue
			}
			v, ok := g.videoAccounts[l.VideoAccountID]
			if !ok {
				g.logger.WithFields(logrus.Fields{
					"link_id":          l.ID,
					"video_account_id": l.VideoAccountID,
				}).Warn("关联边指向不存在的视频账号，跳过")
				continue
			}
			r, ok := byVideo[v.ID]
			if !ok {
				r = &Reach{VideoAccount: v}
				byVideo[v.ID] = r
			}
			r.Links = append(r.Links, l)
		}
	}

	out := make([]Reach, 0, len(byVideo))
	for _, r := range byVideo {
		sort.Slice(r.Links, func(i, j int) bool { return r.Links[i].ID < r.Links[j].ID })
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoAccount.ID < out[j].VideoAccount.ID })
	return out
}

func groupOf(a *model.PlatformAccount) string {
	if a.CrossSaveGroupID == nil {
		return ""
	}
	return *a.CrossSaveGroupID
}

func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
