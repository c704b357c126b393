package repository

import (
	"context"
	"fmt"
	"time"

	"EncounterSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository 游戏账号与视频账号
type AccountRepository interface {
	// GetPlatformAccount 不存在时返回 gorm.ErrRecordNotFound
	GetPlatformAccount(ctx context.Context, id string) (*model.PlatformAccount, error)
	ListPlatformAccounts(ctx context.Context, ids []string) ([]*model.PlatformAccount, error)
	// ListAccountClosure 给定账号及与其同一跨存档分组的全部账号
	ListAccountClosure(ctx context.Context, ids []string) ([]*model.PlatformAccount, error)
	// ListStalePlatformAccounts 按 last_checked 升序（从未刷新的优先）
	ListStalePlatformAccounts(ctx context.Context, limit int) ([]*model.PlatformAccount, error)
	TouchPlatformAccount(ctx context.Context, id string, at time.Time) error
	PlatformAccountWriter() *PlatformAccountWriter

	ListVideoAccounts(ctx context.Context, ids []string) ([]*model.VideoAccount, error)
	// ListVideoAccountsForRefresh 按 last_clip_check 升序（从未拉取的优先），providers 为空表示全部
	ListVideoAccountsForRefresh(ctx context.Context, providers []model.ProviderType, limit int) ([]*model.VideoAccount, error)
	// ListVideoAccountsByLogin 同名匹配复用已知视频账号
	ListVideoAccountsByLogin(ctx context.Context, provider model.ProviderType, login string) ([]*model.VideoAccount, error)
	TouchVideoAccount(ctx context.Context, id string, at time.Time) error
	VideoAccountWriter() *VideoAccountWriter
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetPlatformAccount(ctx context.Context, id string) (*model.PlatformAccount, error) {
	var a model.PlatformAccount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) ListPlatformAccounts(ctx context.Context, ids []string) ([]*model.PlatformAccount, error) {
	if len(ids) == 0 {
		return []*model.PlatformAccount{}, nil
	}
	var accounts []*model.PlatformAccount
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) ListAccountClosure(ctx context.Context, ids []string) ([]*model.PlatformAccount, error) {
	if len(ids) == 0 {
		return []*model.PlatformAccount{}, nil
	}
	groups := r.db.Model(&model.PlatformAccount{}).
		Select("cross_save_group_id").
		Where("id IN ? AND cross_save_group_id IS NOT NULL", ids)

	var accounts []*model.PlatformAccount
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Or("cross_save_group_id IN (?)", groups).
		Order("id").
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) ListStalePlatformAccounts(ctx context.Context, limit int) ([]*model.PlatformAccount, error) {
	if limit <= 0 {
		limit = 100
	}
	var accounts []*model.PlatformAccount
	if err := r.db.WithContext(ctx).
		Order("last_checked ASC NULLS FIRST").
		Order("id").
		Limit(limit).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) TouchPlatformAccount(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.PlatformAccount{}).
		Where("id = ?", id).
		Update("last_checked", at).Error
}

func (r *accountRepository) PlatformAccountWriter() *PlatformAccountWriter {
	return &PlatformAccountWriter{db: r.db}
}

func (r *accountRepository) ListVideoAccounts(ctx context.Context, ids []string) ([]*model.VideoAccount, error) {
	if len(ids) == 0 {
		return []*model.VideoAccount{}, nil
	}
	var accounts []*model.VideoAccount
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) ListVideoAccountsForRefresh(ctx context.Context, providers []model.ProviderType, limit int) ([]*model.VideoAccount, error) {
	if limit <= 0 {
		limit = 200
	}
	db := r.db.WithContext(ctx).Model(&model.VideoAccount{})
	if len(providers) > 0 {
		db = db.Where("provider IN ?", providers)
	}
	var accounts []*model.VideoAccount
	if err := db.
		Order("last_clip_check ASC NULLS FIRST").
		Order("id").
		Limit(limit).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) ListVideoAccountsByLogin(ctx context.Context, provider model.ProviderType, login string) ([]*model.VideoAccount, error) {
	var accounts []*model.VideoAccount
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND login_name = ?", provider, login).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) TouchVideoAccount(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.VideoAccount{}).
		Where("id = ?", id).
		Update("last_clip_check", at).Error
}

func (r *accountRepository) VideoAccountWriter() *VideoAccountWriter {
	return &VideoAccountWriter{db: r.db}
}

// PlatformAccountWriter 单行写入；游戏账号只会被重新标记，不删除
type PlatformAccountWriter struct {
	db *gorm.DB
}

// Insert 并发刷新同一新账号时以先写入者为准
func (w *PlatformAccountWriter) Insert(ctx context.Context, a *model.PlatformAccount) error {
	return w.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(a).Error
}

func (w *PlatformAccountWriter) Update(ctx context.Context, a *model.PlatformAccount) error {
	return w.db.WithContext(ctx).Model(&model.PlatformAccount{ID: a.ID}).
		Select("display_name", "membership_type", "cross_save_group_id").
		Updates(a).Error
}

func (w *PlatformAccountWriter) Delete(_ context.Context, id string) error {
	return fmt.Errorf("游戏账号 %s 不允许删除", id)
}

// VideoAccountWriter 视频账号单行写入
type VideoAccountWriter struct {
	db *gorm.DB
}

// Insert 并发发现同一视频账号时以先写入者为准
func (w *VideoAccountWriter) Insert(ctx context.Context, v *model.VideoAccount) error {
	return w.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(v).Error
}

func (w *VideoAccountWriter) Update(ctx context.Context, v *model.VideoAccount) error {
	return w.db.WithContext(ctx).Model(&model.VideoAccount{ID: v.ID}).
		Select("display_name", "login_name", "channel_token").
		Updates(v).Error
}

func (w *VideoAccountWriter) Delete(ctx context.Context, id string) error {
	return w.db.WithContext(ctx).Where("id = ?", id).Delete(&model.VideoAccount{}).Error
}
