package repository

import (
	"context"
	"time"

	"EncounterSync/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ClipRepository 归一化录像
type ClipRepository interface {
	ListClipsByVideoAccount(ctx context.Context, videoAccountID string) ([]*model.Clip, error)
	// ListClipsOverlapping 指定视频账号在 [from, to) 内有重叠的录像
	ListClipsOverlapping(ctx context.Context, videoAccountIDs []string, from, to time.Time) ([]*model.Clip, error)
	// UpdateMatches 刷新反范式匹配字段，不影响 updated_at 以外的列
	UpdateMatches(ctx context.Context, clipID string, instanceIDs, accountIDs []string) error
	ClipWriter() *ClipWriter
}

type clipRepository struct {
	db *gorm.DB
}

func NewClipRepository(db *gorm.DB) ClipRepository {
	return &clipRepository{db: db}
}

func (r *clipRepository) ListClipsByVideoAccount(ctx context.Context, videoAccountID string) ([]*model.Clip, error) {
	var clips []*model.Clip
	if err := r.db.WithContext(ctx).
		Where("video_account_id = ?", videoAccountID).
		Order("start_time ASC").
		Find(&clips).Error; err != nil {
		return nil, err
	}
	return clips, nil
}

func (r *clipRepository) ListClipsOverlapping(ctx context.Context, videoAccountIDs []string, from, to time.Time) ([]*model.Clip, error) {
	if len(videoAccountIDs) == 0 || !to.After(from) {
		return []*model.Clip{}, nil
	}
	var clips []*model.Clip
	if err := r.db.WithContext(ctx).
		Where("video_account_id IN ?", videoAccountIDs).
		Where("start_time < ? AND end_time > ?", to, from).
		Order("start_time ASC").
		Find(&clips).Error; err != nil {
		return nil, err
	}
	return clips, nil
}

func (r *clipRepository) UpdateMatches(ctx context.Context, clipID string, instanceIDs, accountIDs []string) error {
	if instanceIDs == nil {
		instanceIDs = []string{}
	}
	if accountIDs == nil {
		accountIDs = []string{}
	}
	return r.db.WithContext(ctx).Model(&model.Clip{ID: clipID}).
		Select("matched_instance_ids", "matched_account_ids").
		Updates(&model.Clip{
			MatchedInstanceIDs: datatypes.JSONSlice[string](instanceIDs),
			MatchedAccountIDs:  datatypes.JSONSlice[string](accountIDs),
		}).Error
}

func (r *clipRepository) ClipWriter() *ClipWriter {
	return &ClipWriter{db: r.db}
}

// ClipWriter 录像单行写入（供 reconcile.Apply 使用）
type ClipWriter struct {
	db *gorm.DB
}

func (w *ClipWriter) Insert(ctx context.Context, c *model.Clip) error {
	return w.db.WithContext(ctx).Create(c).Error
}

func (w *ClipWriter) Update(ctx context.Context, c *model.Clip) error {
	return w.db.WithContext(ctx).Model(&model.Clip{ID: c.ID}).
		Select("video_account_id", "start_time", "end_time", "title", "thumbnail_url", "playback_url").
		Updates(c).Error
}

func (w *ClipWriter) Delete(ctx context.Context, id string) error {
	return w.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Clip{}).Error
}
