package interval

import (
	"encoding/json"
	"testing"
	"time"
)

func at(h, m, s int) time.Time {
	return time.Date(2020, 3, 14, h, m, s, 0, time.UTC)
}

func TestOverlapsSymmetricAndReflexive(t *testing.T) {
	cases := []struct {
		a, b Interval
		want bool
	}{
		{FromEnd(at(10, 0, 0), at(10, 30, 0)), FromEnd(at(10, 20, 0), at(10, 25, 0)), true},
		{FromEnd(at(10, 0, 0), at(10, 10, 0)), FromEnd(at(9, 0, 0), at(9, 5, 0)), false},
		// 首尾相接不算重叠
		{FromEnd(at(10, 0, 0), at(10, 10, 0)), FromEnd(at(10, 10, 0), at(10, 20, 0)), false},
		{FromEnd(at(10, 0, 0), at(10, 10, 0)), FromEnd(at(10, 9, 59), at(10, 20, 0)), true},
		{FromEnd(at(10, 0, 0), at(10, 0, 0)), FromEnd(at(9, 0, 0), at(11, 0, 0)), false},
	}
	for i, c := range cases {
		if got := Overlaps(c.a, c.b); got != c.want {
			t.Fatalf("case %d: Overlaps(a,b)=%v want %v", i, got, c.want)
		}
		if Overlaps(c.a, c.b) != Overlaps(c.b, c.a) {
			t.Fatalf("case %d: overlap not symmetric", i)
		}
		if !c.a.Empty() && !Overlaps(c.a, c.a) {
			t.Fatalf("case %d: non-empty interval must overlap itself", i)
		}
	}
}

func TestSeekOffsetContainedClip(t *testing.T) {
	p := FromEnd(at(10, 0, 0), at(10, 30, 0))
	c := FromEnd(at(10, 20, 0), at(10, 25, 0))
	if !Overlaps(p, c) {
		t.Fatalf("expected overlap")
	}
	// 录像晚于参与开始：从录像开头播放
	if got := SeekOffset(p, c); got != 0 {
		t.Fatalf("expected 0 offset for clip starting after participation, got %v", got)
	}
	// 反过来：参与在录像开始 20 分钟后开始
	if got := SeekOffset(c, p); got != 1200*time.Second {
		t.Fatalf("expected 1200s, got %v", got)
	}
}

func TestSeekOffsetNeverNegative(t *testing.T) {
	base := at(12, 0, 0)
	for _, d := range []time.Duration{-time.Hour, -time.Millisecond, 0, 1500 * time.Millisecond, time.Hour} {
		p := FromDuration(base.Add(d), time.Minute)
		c := FromDuration(base, 2*time.Hour)
		got := SeekOffset(p, c)
		if got < 0 {
			t.Fatalf("negative offset %v for shift %v", got, d)
		}
		if !c.Start.Before(p.Start) && got != 0 {
			t.Fatalf("clip starts at/after participation, expected 0 got %v", got)
		}
	}
	p := FromDuration(base.Add(1500*time.Millisecond), time.Minute)
	if got := SeekOffset(p, FromDuration(base, time.Hour)); got != 1500*time.Millisecond {
		t.Fatalf("expected sub-second offset 1.5s, got %v", got)
	}
}

func TestFromSeconds(t *testing.T) {
	i := FromSeconds(at(8, 0, 0), 90.25)
	if i.Duration() != 90*time.Second+250*time.Millisecond {
		t.Fatalf("unexpected duration %v", i.Duration())
	}
}

func TestTextRoundTrip(t *testing.T) {
	i := FromEnd(at(10, 0, 0), at(10, 30, 0))
	if i.String() != "[2020-03-14T10:00:00Z,2020-03-14T10:30:00Z)" {
		t.Fatalf("unexpected text form %s", i.String())
	}
	b, err := json.Marshal(i)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Interval
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Start.Equal(i.Start) || !back.End.Equal(i.End) {
		t.Fatalf("round trip mismatch: %v vs %v", back, i)
	}
	for _, bad := range []string{"", "(a,b)", "[2020-03-14T10:00:00Z)", "[2020-03-14T10:30:00Z,2020-03-14T10:00:00Z)"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
