package model

import (
	"time"

	"EncounterSync/internal/interval"

	"gorm.io/datatypes"
)

// Clip 归一化后的录像（抹平各视频平台差异）
type Clip struct {
	ID                 string                      `gorm:"column:id;primaryKey;type:varchar(96)"`                   // provider:clipId
	VideoAccountID     string                      `gorm:"column:video_account_id;type:varchar(96);not null;index"` // 所属视频账号
	Provider           ProviderType                `gorm:"column:provider;type:varchar(16);not null"`
	StartTime          time.Time                   `gorm:"column:start_time;type:timestamp;not null;index"` // 录制开始（含）
	EndTime            time.Time                   `gorm:"column:end_time;type:timestamp;not null;index"`   // 录制结束（不含）
	Title              string                      `gorm:"column:title;type:varchar(256)"`
	ThumbnailURL       string                      `gorm:"column:thumbnail_url;type:varchar(512)"`
	PlaybackURL        string                      `gorm:"column:playback_url;type:varchar(512);not null"`
	MatchedInstanceIDs datatypes.JSONSlice[string] `gorm:"column:matched_instance_ids"` // 反范式：命中的对局
	MatchedAccountIDs  datatypes.JSONSlice[string] `gorm:"column:matched_account_ids"`  // 反范式：命中的游戏账号
	CreatedAt          time.Time                   `gorm:"column:created_at;type:timestamp;autoCreateTime"`
	UpdatedAt          time.Time                   `gorm:"column:updated_at;type:timestamp;autoUpdateTime"`
}

func (Clip) TableName() string { return "clips" }

// Recorded 录制时间区间
func (c *Clip) Recorded() interval.Interval {
	return interval.FromEnd(c.StartTime, c.EndTime)
}

// Fresh 结束时间是否在 window 内（仅影响刷新优先级，不影响正确性）
func (c *Clip) Fresh(now time.Time, window time.Duration) bool {
	return !c.EndTime.Before(now.Add(-window))
}

// ClipEqual 字段级比较；反范式字段由匹配任务单独维护，不参与比较
func ClipEqual(a, b *Clip) bool {
	return a.VideoAccountID == b.VideoAccountID &&
		a.StartTime.Equal(b.StartTime) &&
		a.EndTime.Equal(b.EndTime) &&
		a.Title == b.Title &&
		a.ThumbnailURL == b.ThumbnailURL &&
		a.PlaybackURL == b.PlaybackURL
}

// ClipID 生成录像主键
func ClipID(provider ProviderType, clipID string) string {
	return string(provider) + ":" + clipID
}
