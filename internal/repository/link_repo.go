package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkRepository 账号关联边与举报
type LinkRepository interface {
	// UpsertLink 重复发现只刷新 updated_at，不会清除 rejected
	UpsertLink(ctx context.Context, link *model.AccountLink) error
	// GetLink 不存在时返回 interfaces.ErrLinkNotFound
	GetLink(ctx context.Context, id string) (*model.AccountLink, error)
	ListLinksByAccounts(ctx context.Context, accountIDs []string) ([]*model.AccountLink, error)
	ListLinksByVideoAccount(ctx context.Context, videoAccountID string) ([]*model.AccountLink, error)
	SetRejected(ctx context.Context, id string, rejected bool) error
	// DeleteLink 连同举报一起删除
	DeleteLink(ctx context.Context, id string) error

	UpsertVote(ctx context.Context, vote *model.Vote) error
	DeleteVote(ctx context.Context, playerKey, linkID string) error
	ListVotes(ctx context.Context, linkID string) ([]*model.Vote, error)
}

type linkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) UpsertLink(ctx context.Context, link *model.AccountLink) error {
	if link.UpdatedAt.IsZero() {
		link.UpdatedAt = time.Now().UTC()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Create(link).Error
	if err != nil {
		return fmt.Errorf("保存关联 %s 失败: %w", link.ID, err)
	}
	return nil
}

func (r *linkRepository) GetLink(ctx context.Context, id string) (*model.AccountLink, error) {
	var link model.AccountLink
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("关联 %s: %w", id, interfaces.ErrLinkNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) ListLinksByAccounts(ctx context.Context, accountIDs []string) ([]*model.AccountLink, error) {
	if len(accountIDs) == 0 {
		return []*model.AccountLink{}, nil
	}
	var links []*model.AccountLink
	if err := r.db.WithContext(ctx).
		Where("account_id IN ?", accountIDs).
		Order("id").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *linkRepository) ListLinksByVideoAccount(ctx context.Context, videoAccountID string) ([]*model.AccountLink, error) {
	var links []*model.AccountLink
	if err := r.db.WithContext(ctx).
		Where("video_account_id = ?", videoAccountID).
		Order("id").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *linkRepository) SetRejected(ctx context.Context, id string, rejected bool) error {
	res := r.db.WithContext(ctx).Model(&model.AccountLink{}).
		Where("id = ?", id).
		Update("rejected", rejected)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("关联 %s: %w", id, interfaces.ErrLinkNotFound)
	}
	return nil
}

func (r *linkRepository) DeleteLink(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", id).Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.AccountLink{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("关联 %s: %w", id, interfaces.ErrLinkNotFound)
		}
		return nil
	})
}

// UpsertVote 同一玩家对同一关联只有一票，重复举报为幂等操作
func (r *linkRepository) UpsertVote(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_key"}, {Name: "link_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner"}),
		}).
		Create(vote).Error
}

func (r *linkRepository) DeleteVote(ctx context.Context, playerKey, linkID string) error {
	return r.db.WithContext(ctx).
		Where("player_key = ? AND link_id = ?", playerKey, linkID).
		Delete(&model.Vote{}).Error
}

func (r *linkRepository) ListVotes(ctx context.Context, linkID string) ([]*model.Vote, error) {
	var votes []*model.Vote
	if err := r.db.WithContext(ctx).Where("link_id = ?", linkID).Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}
