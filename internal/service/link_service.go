package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"EncounterSync/internal/identity"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/metrics"
	"EncounterSync/internal/model"
	"EncounterSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LinkService 玩家对关联边的操作：OAuth 记录、举报/撤销举报、驳回、删除
type LinkService struct {
	accounts repository.AccountRepository
	links    repository.LinkRepository
	logger   *logrus.Logger
}

func NewLinkService(accounts repository.AccountRepository, links repository.LinkRepository, logger *logrus.Logger) *LinkService {
	return &LinkService{accounts: accounts, links: links, logger: logger}
}

// RecordLink OAuth 回调：记录最强的 authentication 关联，不会被举报驳回
func (s *LinkService) RecordLink(ctx context.Context, accountID string, video *model.VideoAccount) (*model.AccountLink, error) {
	if video == nil || !video.Provider.Valid() || video.ExternalID == "" {
		return nil, fmt.Errorf("视频账号无效: %w", interfaces.ErrInvalidInput)
	}
	account, err := s.accounts.GetPlatformAccount(ctx, accountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("游戏账号 %s 不存在: %w", accountID, err)
	}
	if err != nil {
		return nil, err
	}
	video.ID = model.VideoAccountID(video.Provider, video.ExternalID)
	if video.LoginName == "" {
		video.LoginName = strings.ToLower(video.DisplayName)
	}
	if err := saveVideoAccounts(ctx, s.accounts, s.logger, []*model.VideoAccount{video}); err != nil {
		return nil, err
	}

	link := identity.NewLink(account, video, model.LinkAuthentication)
	if err := s.links.UpsertLink(ctx, link); err != nil {
		return nil, err
	}
	metrics.LinksDiscoveredTotal.WithLabelValues(string(model.LinkAuthentication)).Inc()
	return s.links.GetLink(ctx, link.ID)
}

// ReportLink 玩家举报关联错误；所有者的一票即驳回，重复举报为幂等操作
func (s *LinkService) ReportLink(ctx context.Context, requesterAccountID, linkID string) (*model.AccountLink, error) {
	link, err := s.links.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if err := identity.CheckReportable(link); err != nil {
		return nil, err
	}
	player, err := s.resolvePlayer(ctx, requesterAccountID)
	if err != nil {
		return nil, err
	}
	vote := &model.Vote{PlayerKey: player.Key, LinkID: link.ID, Owner: identity.OwnsLink(player, link)}
	if err := s.links.UpsertVote(ctx, vote); err != nil {
		return nil, fmt.Errorf("UpsertVote: %w", err)
	}
	return s.applyVotes(ctx, link)
}

// UnreportLink 撤销举报；没有所有者票后关联恢复可用
func (s *LinkService) UnreportLink(ctx context.Context, requesterAccountID, linkID string) (*model.AccountLink, error) {
	link, err := s.links.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if err := identity.CheckReportable(link); err != nil {
		return nil, err
	}
	player, err := s.resolvePlayer(ctx, requesterAccountID)
	if err != nil {
		return nil, err
	}
	if err := s.links.DeleteVote(ctx, player.Key, link.ID); err != nil {
		return nil, fmt.Errorf("DeleteVote: %w", err)
	}
	return s.applyVotes(ctx, link)
}

// RejectLink 所有者直接驳回同名匹配关联（记为所有者举报，可通过撤销举报恢复）
func (s *LinkService) RejectLink(ctx context.Context, requesterAccountID, linkID string) (*model.AccountLink, error) {
	link, err := s.links.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if err := identity.CheckReportable(link); err != nil {
		return nil, err
	}
	player, err := s.resolvePlayer(ctx, requesterAccountID)
	if err != nil {
		return nil, err
	}
	if !identity.OwnsLink(player, link) {
		return nil, fmt.Errorf("关联 %s: %w", link.ID, interfaces.ErrNotLinkOwner)
	}
	return s.ReportLink(ctx, requesterAccountID, linkID)
}

// RemoveLink 所有者删除关联：同名匹配软删除，OAuth 物理删除，官方合作关系不允许删除
func (s *LinkService) RemoveLink(ctx context.Context, requesterAccountID, linkID string) error {
	link, err := s.links.GetLink(ctx, linkID)
	if err != nil {
		return err
	}
	kind, err := identity.RemovalFor(link)
	if err != nil {
		return err
	}
	player, err := s.resolvePlayer(ctx, requesterAccountID)
	if err != nil {
		return err
	}
	if !identity.OwnsLink(player, link) {
		return fmt.Errorf("关联 %s: %w", link.ID, interfaces.ErrNotLinkOwner)
	}
	switch kind {
	case identity.RemoveSoft:
		// 记为所有者举报，之后任何举报重算都保持驳回
		vote := &model.Vote{PlayerKey: player.Key, LinkID: link.ID, Owner: true}
		if err := s.links.UpsertVote(ctx, vote); err != nil {
			return fmt.Errorf("UpsertVote: %w", err)
		}
		return s.links.SetRejected(ctx, link.ID, true)
	default:
		return s.links.DeleteLink(ctx, link.ID)
	}
}

func (s *LinkService) applyVotes(ctx context.Context, link *model.AccountLink) (*model.AccountLink, error) {
	votes, err := s.links.ListVotes(ctx, link.ID)
	if err != nil {
		return nil, fmt.Errorf("ListVotes: %w", err)
	}
	rejected := identity.RejectedByVotes(link, votes)
	if rejected != link.Rejected {
		if err := s.links.SetRejected(ctx, link.ID, rejected); err != nil {
			return nil, err
		}
		link.Rejected = rejected
		s.logger.WithFields(logrus.Fields{"link_id": link.ID, "rejected": rejected}).Info("关联驳回状态变化")
	}
	return link, nil
}

// resolvePlayer 举报者的跨存档闭包
func (s *LinkService) resolvePlayer(ctx context.Context, accountID string) (identity.Player, error) {
	closure, err := s.accounts.ListAccountClosure(ctx, []string{accountID})
	if err != nil {
		return identity.Player{}, fmt.Errorf("ListAccountClosure: %w", err)
	}
	return identity.Build(s.logger, closure, nil, nil).ResolvePlayer(accountID), nil
}
