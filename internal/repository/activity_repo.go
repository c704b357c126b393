package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"EncounterSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityRepository 对局与参与记录；对局写入后不再修改
type ActivityRepository interface {
	// SaveInstances 已存在的对局与参与记录直接跳过（ON CONFLICT DO NOTHING）
	SaveInstances(ctx context.Context, instances []*model.ActivityInstance) error
	// ExistingInstanceIDs 返回 ids 中已入库的对局
	ExistingInstanceIDs(ctx context.Context, ids []string) (map[string]bool, error)
	// ListInstancesByAccounts 任一账号参与过的对局（含全部参与记录），按开始时间倒序
	ListInstancesByAccounts(ctx context.Context, accountIDs []string, limit int) ([]*model.ActivityInstance, error)
	// ListInstancesOverlapping 任一账号的参与时间与 [from, to) 相交的对局，不限条数
	ListInstancesOverlapping(ctx context.Context, accountIDs []string, from, to time.Time) ([]*model.ActivityInstance, error)
	ListInstancesByIDs(ctx context.Context, ids []string) ([]*model.ActivityInstance, error)
	// ListCandidateInstanceIDs team 阵营中至少一名参与者有可达且时间重叠的录像的对局
	// provider 为空表示任意平台
	ListCandidateInstanceIDs(ctx context.Context, team int, provider model.ProviderType) ([]string, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) SaveInstances(ctx context.Context, instances []*model.ActivityInstance) error {
	if len(instances) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, inst := range instances {
			if err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(inst).Error; err != nil {
				return fmt.Errorf("保存对局 %s 失败: %w", inst.InstanceID, err)
			}
			if len(inst.Participations) == 0 {
				continue
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&inst.Participations).Error; err != nil {
				return fmt.Errorf("保存对局 %s 参与记录失败: %w", inst.InstanceID, err)
			}
		}
		return nil
	})
}

func (r *activityRepository) ExistingInstanceIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}
	var found []string
	if err := r.db.WithContext(ctx).Model(&model.ActivityInstance{}).
		Where("instance_id IN ?", ids).
		Pluck("instance_id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

func (r *activityRepository) ListInstancesByAccounts(ctx context.Context, accountIDs []string, limit int) ([]*model.ActivityInstance, error) {
	if len(accountIDs) == 0 {
		return []*model.ActivityInstance{}, nil
	}
	if limit <= 0 {
		limit = 250
	}
	sub := r.db.Model(&model.Participation{}).
		Select("instance_id").
		Where("account_id IN ?", accountIDs)

	var instances []*model.ActivityInstance
	if err := r.db.WithContext(ctx).
		Preload("Participations").
		Where("instance_id IN (?)", sub).
		Order("start_time DESC").
		Order("instance_id DESC").
		Limit(limit).
		Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

func (r *activityRepository) ListInstancesOverlapping(ctx context.Context, accountIDs []string, from, to time.Time) ([]*model.ActivityInstance, error) {
	if len(accountIDs) == 0 || !to.After(from) {
		return []*model.ActivityInstance{}, nil
	}
	sub := r.db.Model(&model.Participation{}).
		Select("instance_id").
		Where("account_id IN ?", accountIDs).
		Where("start_time < ? AND end_time > ?", to, from)

	var instances []*model.ActivityInstance
	if err := r.db.WithContext(ctx).
		Preload("Participations").
		Where("instance_id IN (?)", sub).
		Order("start_time DESC").
		Order("instance_id DESC").
		Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

func (r *activityRepository) ListInstancesByIDs(ctx context.Context, ids []string) ([]*model.ActivityInstance, error) {
	if len(ids) == 0 {
		return []*model.ActivityInstance{}, nil
	}
	var instances []*model.ActivityInstance
	if err := r.db.WithContext(ctx).
		Preload("Participations").
		Where("instance_id IN ?", ids).
		Order("start_time DESC").
		Order("instance_id DESC").
		Find(&instances).Error; err != nil {
		return nil, err
	}
	return instances, nil
}

// ListCandidateInstanceIDs 存在性过滤：参与者本人或同跨存档分组账号的未驳回关联 -> 视频账号 -> 重叠录像
// 结果是内存匹配的超集，调用方在加载完整对局前取两阵营交集
func (r *activityRepository) ListCandidateInstanceIDs(ctx context.Context, team int, provider model.ProviderType) ([]string, error) {
	var sb strings.Builder
	args := []interface{}{false}
	sb.WriteString(`SELECT DISTINCT p.instance_id FROM participations p
JOIN account_links l ON l.rejected = ? AND (
  l.account_id = p.account_id OR l.account_id IN (
    SELECT mate.id FROM platform_accounts pa
    JOIN platform_accounts mate ON mate.cross_save_group_id = pa.cross_save_group_id
    WHERE pa.id = p.account_id AND pa.cross_save_group_id IS NOT NULL))
JOIN video_accounts va ON va.id = l.video_account_id
JOIN clips c ON c.video_account_id = va.id AND c.start_time < p.end_time AND c.end_time > p.start_time
WHERE p.team = ?`)
	args = append(args, team)
	if provider != "" {
		sb.WriteString(" AND va.provider = ?")
		args = append(args, provider)
	}
	sb.WriteString(" ORDER BY p.instance_id")

	var ids []string
	if err := r.db.WithContext(ctx).Raw(sb.String(), args...).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("查询候选对局失败: %w", err)
	}
	return ids, nil
}
