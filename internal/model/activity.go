package model

import (
	"time"

	"EncounterSync/internal/interval"
)

// ActivityInstance 一场已结束的多人对局，写入后不再修改
type ActivityInstance struct {
	InstanceID     string          `gorm:"column:instance_id;primaryKey;type:varchar(32)"`
	ActivityHash   uint32          `gorm:"column:activity_hash;type:bigint;not null"`
	StartTime      time.Time       `gorm:"column:start_time;type:timestamp;not null;index"`
	EndTime        time.Time       `gorm:"column:end_time;type:timestamp;not null"`
	Participations []Participation `gorm:"foreignKey:InstanceID;references:InstanceID"`
	CreatedAt      time.Time       `gorm:"column:created_at;type:timestamp;autoCreateTime"`
}

func (ActivityInstance) TableName() string { return "activity_instances" }

// Period 对局整体时间区间
func (a *ActivityInstance) Period() interval.Interval {
	return interval.FromEnd(a.StartTime, a.EndTime)
}

// Participation 单个玩家在对局中的参与记录
type Participation struct {
	InstanceID  string    `gorm:"column:instance_id;primaryKey;type:varchar(32)"`
	AccountID   string    `gorm:"column:account_id;primaryKey;type:varchar(64);index"` // PlatformAccount.ID
	CharacterID string    `gorm:"column:character_id;type:varchar(32)"`
	Team        *int      `gorm:"column:team;type:int"` // 可空（非对抗模式无阵营）
	StartTime   time.Time `gorm:"column:start_time;type:timestamp;not null"`
	EndTime     time.Time `gorm:"column:end_time;type:timestamp;not null"`
}

func (Participation) TableName() string { return "participations" }

// Played 参与时间区间
func (p *Participation) Played() interval.Interval {
	return interval.FromEnd(p.StartTime, p.EndTime)
}
