package identity

import (
	"fmt"
	"strings"

	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"

	"github.com/google/uuid"
)

// linkNamespace 关联边ID的UUIDv5命名空间，修改会导致全部关联边ID变化
var linkNamespace = uuid.MustParse("6f1b0c9e-2d4a-5c8e-9a7b-3e5f10d2c4a1")

// LinkID 由 (account_id, account_type, link_method, video_account_id) 确定性生成关联边ID
// 不同 link_method 得到不同ID，弱方式与 OAuth 方式并存而不互相覆盖
func LinkID(accountID string, accountType int, method model.LinkMethod, videoAccountID string) string {
	key := strings.Join([]string{accountID, fmt.Sprint(accountType), string(method), videoAccountID}, "|")
	return uuid.NewSHA1(linkNamespace, []byte(key)).String()
}

// NewLink 构建一条关联边
func NewLink(account *model.PlatformAccount, video *model.VideoAccount, method model.LinkMethod) *model.AccountLink {
	return &model.AccountLink{
		ID:             LinkID(account.ID, account.MembershipType, method, video.ID),
		AccountID:      account.ID,
		AccountType:    account.MembershipType,
		VideoAccountID: video.ID,
		Provider:       video.Provider,
		LinkMethod:     method,
	}
}

// MergeLink 同ID重复发现时的合并规则：保留已有行（驳回状态不会因重新发现而清除）
func MergeLink(stored, incoming *model.AccountLink) *model.AccountLink {
	if stored == nil {
		return incoming
	}
	merged := *stored
	if incoming.UpdatedAt.After(merged.UpdatedAt) {
		merged.UpdatedAt = incoming.UpdatedAt
	}
	return &merged
}

// CheckReportable 只有同名匹配的关联可以被举报
func CheckReportable(link *model.AccountLink) error {
	if link.LinkMethod != model.LinkNameMatch {
		return fmt.Errorf("关联 %s（%s）: %w", link.ID, link.LinkMethod, interfaces.ErrLinkNotReportable)
	}
	return nil
}

// OwnsLink 玩家是否拥有该关联边的游戏账号
func OwnsLink(p Player, link *model.AccountLink) bool {
	return p.Has(link.AccountID)
}

// RejectedByVotes 根据举报计算驳回状态：同名匹配关联只要有一票来自所有者即驳回
// 非同名匹配关联不受举报影响
func RejectedByVotes(link *model.AccountLink, votes []*model.Vote) bool {
	if link.LinkMethod != model.LinkNameMatch {
		return link.Rejected
	}
	for _, v := range votes {
		if v.LinkID == link.ID && v.Owner {
			return true
		}
	}
	return false
}

// RemovalKind 玩家主动删除关联时的处理方式
type RemovalKind int

const (
	RemoveSoft RemovalKind = iota // 标记 rejected
	RemoveHard                    // 物理删除
)

// RemovalFor 同名匹配软删除，OAuth 关联物理删除，官方合作关系不允许删除
func RemovalFor(link *model.AccountLink) (RemovalKind, error) {
	switch link.LinkMethod {
	case model.LinkNameMatch:
		return RemoveSoft, nil
	case model.LinkAuthentication:
		return RemoveHard, nil
	default:
		return 0, fmt.Errorf("关联 %s: %w", link.ID, interfaces.ErrLinkNotRemovable)
	}
}
