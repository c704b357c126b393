package adapter

import (
	"time"

	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ParseTimestamp 解析平台返回的 RFC3339 时间，空串或格式错误返回 false
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// LogMalformed 记录无法归一化的原始录像（整条跳过，不影响同批其它录像）
func LogMalformed(logger *logrus.Logger, raw *model.RawClip, reason string) {
	logger.WithError(interfaces.ErrMalformedResponse).WithFields(logrus.Fields{
		"provider": raw.Provider,
		"clip_id":  raw.ID,
		"reason":   reason,
	}).Warn("原始录像无法解析，跳过")
}

// NormalizeAll 批量归一化，nil 结果被丢弃
func NormalizeAll(p interfaces.ClipProvider, raws []*model.RawClip) []*model.Clip {
	clips := make([]*model.Clip, 0, len(raws))
	for _, raw := range raws {
		if c := p.Normalize(raw); c != nil {
			clips = append(clips, c)
		}
	}
	return clips
}
