package interfaces

import (
	"context"

	"EncounterSync/internal/config"
	"EncounterSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ClipProvider 所有视频平台必须实现的核心接口
type ClipProvider interface {
	GetType() model.ProviderType                                                           // 平台类型
	FetchClips(ctx context.Context, account *model.VideoAccount) ([]*model.RawClip, error) // 拉取录像
	Normalize(raw *model.RawClip) *model.Clip                                              // 转换为统一录像，无法解析时返回 nil
	SearchAccountByName(ctx context.Context, name string) (*model.VideoAccount, error)     // 同名查找，未找到返回 nil, nil
}

// Factory 视频平台适配器工厂函数签名
type Factory func(cfg *config.ProviderConfig, syncCfg *config.SyncConfig, logger *logrus.Logger) ClipProvider

// LinkedAccounts 某游戏账号的跨平台关联结果
type LinkedAccounts struct {
	CrossSaveGroupID *string
	Accounts         []*model.PlatformAccount
}

// Partnership Bungie 官方合作关系（直接给出视频平台账号）
type Partnership struct {
	Provider   model.ProviderType
	ExternalID string
	Name       string
}

// ProfileFetcher 游戏侧资料与对局数据来源
type ProfileFetcher interface {
	FetchLinkedAccounts(ctx context.Context, membershipType int, membershipID string) (*LinkedAccounts, error)
	FetchCharacterIDs(ctx context.Context, account *model.PlatformAccount) ([]string, error)
	// FetchActivityHistory 返回的对局只有 InstanceID/StartTime 等概要，需要再调用 FetchActivityDetail
	FetchActivityHistory(ctx context.Context, account *model.PlatformAccount, characterID string) ([]*model.ActivityInstance, error)
	FetchActivityDetail(ctx context.Context, instanceID string) (*model.ActivityInstance, error)
	FetchPartnerships(ctx context.Context, crossSaveGroupID string) ([]Partnership, error)
}
