package model

import (
	"fmt"
	"time"
)

// LinkMethod 账号关联的来源方式（可信度：authentication > partnership > name_match）
type LinkMethod string

const (
	LinkPartnership    LinkMethod = "partnership"    // Bungie 官方合作关系查询
	LinkNameMatch      LinkMethod = "name_match"     // 同名启发式匹配，可被举报驳回
	LinkAuthentication LinkMethod = "authentication" // 用户 OAuth 授权，最强，不会被自动驳回
)

// Valid 是否为已知关联方式
func (m LinkMethod) Valid() bool {
	switch m {
	case LinkPartnership, LinkNameMatch, LinkAuthentication:
		return true
	}
	return false
}

// PlatformAccount 游戏平台账号（membershipType + membershipId）
type PlatformAccount struct {
	ID               string     `gorm:"column:id;primaryKey;type:varchar(64)"`                // membershipType:membershipId
	MembershipID     string     `gorm:"column:membership_id;type:varchar(32);not null;index"` // 平台侧账号ID
	MembershipType   int        `gorm:"column:membership_type;type:int;not null"`             // 平台类型（Xbox/PSN/Steam...）
	DisplayName      string     `gorm:"column:display_name;type:varchar(128)"`                // 显示名
	CrossSaveGroupID *string    `gorm:"column:cross_save_group_id;type:varchar(64);index"`    // 跨存档分组，相同则属同一玩家
	LastChecked      *time.Time `gorm:"column:last_checked;type:timestamp"`                   // 最近一次资料刷新
	CreatedAt        time.Time  `gorm:"column:created_at;type:timestamp;autoCreateTime"`      // 创建时间
	UpdatedAt        time.Time  `gorm:"column:updated_at;type:timestamp;autoUpdateTime"`      // 更新时间
}

func (PlatformAccount) TableName() string { return "platform_accounts" }

// PlatformAccountID 生成账号主键
func PlatformAccountID(membershipType int, membershipID string) string {
	return fmt.Sprintf("%d:%s", membershipType, membershipID)
}

// PlatformAccountEqual 字段级比较，决定是否需要写库
func PlatformAccountEqual(a, b *PlatformAccount) bool {
	return a.DisplayName == b.DisplayName &&
		a.MembershipType == b.MembershipType &&
		ptrEqual(a.CrossSaveGroupID, b.CrossSaveGroupID)
}

// VideoAccount 视频平台账号（频道）
type VideoAccount struct {
	ID            string       `gorm:"column:id;primaryKey;type:varchar(96)"`           // provider:externalId
	Provider      ProviderType `gorm:"column:provider;type:varchar(16);not null;index"` // 视频平台
	ExternalID    string       `gorm:"column:external_id;type:varchar(64);not null"`    // 平台原生账号ID
	DisplayName   string       `gorm:"column:display_name;type:varchar(128)"`           // 显示名
	LoginName     string       `gorm:"column:login_name;type:varchar(128);index"`       // 登录名（小写，用于同名匹配）
	ChannelToken  string       `gorm:"column:channel_token;type:varchar(128)"`          // YouTube uploads 列表 / Mixer 频道ID
	LastClipCheck *time.Time   `gorm:"column:last_clip_check;type:timestamp"`           // 最近一次录像拉取
	CreatedAt     time.Time    `gorm:"column:created_at;type:timestamp;autoCreateTime"`
	UpdatedAt     time.Time    `gorm:"column:updated_at;type:timestamp;autoUpdateTime"`
}

func (VideoAccount) TableName() string { return "video_accounts" }

// VideoAccountID 生成视频账号主键
func VideoAccountID(provider ProviderType, externalID string) string {
	return string(provider) + ":" + externalID
}

// VideoAccountEqual 字段级比较（显示名、登录名、频道 token）
func VideoAccountEqual(a, b *VideoAccount) bool {
	return a.DisplayName == b.DisplayName &&
		a.LoginName == b.LoginName &&
		a.ChannelToken == b.ChannelToken
}

// AccountLink 游戏账号 -> 视频账号 的有向边
// ID 由 (account_id, account_type, link_method, video_account_id) 确定性生成，重复发现即 upsert
type AccountLink struct {
	ID             string       `gorm:"column:id;primaryKey;type:varchar(36)"`
	AccountID      string       `gorm:"column:account_id;type:varchar(64);not null;index"`       // PlatformAccount.ID
	AccountType    int          `gorm:"column:account_type;type:int;not null"`                   // membershipType
	VideoAccountID string       `gorm:"column:video_account_id;type:varchar(96);not null;index"` // VideoAccount.ID
	Provider       ProviderType `gorm:"column:provider;type:varchar(16);not null"`
	LinkMethod     LinkMethod   `gorm:"column:link_method;type:varchar(16);not null"`
	Rejected       bool         `gorm:"column:rejected;type:boolean;default:false"` // 被举报驳回，不参与匹配
	CreatedAt      time.Time    `gorm:"column:created_at;type:timestamp;autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;type:timestamp;autoUpdateTime"`
}

func (AccountLink) TableName() string { return "account_links" }

// Vote 玩家对某条关联的“错误关联”举报
type Vote struct {
	PlayerKey string    `gorm:"column:player_key;primaryKey;type:varchar(64)"`
	LinkID    string    `gorm:"column:link_id;primaryKey;type:varchar(36);index"`
	Owner     bool      `gorm:"column:owner;type:boolean;default:false"` // 举报者是否为该关联账号的所有者
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;autoCreateTime"`
}

func (Vote) TableName() string { return "link_votes" }

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
