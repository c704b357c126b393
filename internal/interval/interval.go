package interval

import (
	"fmt"
	"strings"
	"time"
)

// Interval 左闭右开时间区间 [Start, End)
// 首尾相接的两个区间不算重叠，避免相邻录像被误匹配
type Interval struct {
	Start time.Time
	End   time.Time
}

// FromEnd 绝对结束时间形式（如 YouTube actualEndTime）
func FromEnd(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// FromDuration 开始时间 + 时长形式（如 Twitch duration 字符串解析后的结果）
func FromDuration(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, End: start.Add(d)}
}

// FromSeconds 开始时间 + 秒数形式（如 Mixer duration，可带小数）
func FromSeconds(start time.Time, seconds float64) Interval {
	return FromDuration(start, time.Duration(seconds*float64(time.Second)))
}

// Empty 区间长度 <= 0
func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Duration 区间长度，空区间为 0
func (i Interval) Duration() time.Duration {
	if i.Empty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Contains t 是否落在区间内（End 不含）
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Overlaps 半开区间相交判定；空区间与任何区间都不相交
func Overlaps(a, b Interval) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	if !a.End.After(b.Start) || !b.End.After(a.Start) {
		return false
	}
	return true
}

// SeekOffset 观看者应从录像的哪个位置开始看：max(0, participation.Start - clip.Start)
// 录像晚于参与开始时返回 0，即从录像开头播放
func SeekOffset(participation, clip Interval) time.Duration {
	d := participation.Start.Sub(clip.Start)
	if d < 0 {
		return 0
	}
	return d
}

const layout = time.RFC3339Nano

// String 文本形式：[start,end)
func (i Interval) String() string {
	return "[" + i.Start.UTC().Format(layout) + "," + i.End.UTC().Format(layout) + ")"
}

// MarshalText 实现 encoding.TextMarshaler
func (i Interval) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (i *Interval) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Parse 解析 [start,end) 文本形式
func Parse(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, ")") {
		return Interval{}, fmt.Errorf("区间格式错误（需为[start,end)）: %q", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("区间格式错误（端点数量）: %q", s)
	}
	start, err := time.Parse(layout, strings.TrimSpace(parts[0]))
	if err != nil {
		return Interval{}, fmt.Errorf("解析区间起点失败: %w", err)
	}
	end, err := time.Parse(layout, strings.TrimSpace(parts[1]))
	if err != nil {
		return Interval{}, fmt.Errorf("解析区间终点失败: %w", err)
	}
	if end.Before(start) {
		return Interval{}, fmt.Errorf("区间终点早于起点: %q", s)
	}
	return Interval{Start: start, End: end}, nil
}
