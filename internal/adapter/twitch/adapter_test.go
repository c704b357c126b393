package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"EncounterSync/internal/config"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"

	"github.com/sirupsen/logrus"
)

const videosSample = `{
  "data": [
    {
      "id": "335921245",
      "user_id": "141981764",
      "user_login": "twitchdev",
      "user_name": "TwitchDev",
      "title": "Trials flawless run",
      "created_at": "2020-03-14T17:05:21Z",
      "url": "https://www.twitch.tv/videos/335921245",
      "thumbnail_url": "https://static-cdn.jtvnw.net/cf_vods/d2nvs31859zcd8/twitchdev/335921245/ce0f3a7f-57a3-4152-bc06-0c6610189fb3/thumb/index-0000000000-%{width}x%{height}.jpg",
      "viewable": "public",
      "type": "archive",
      "duration": "3h8m33s"
    },
    {
      "id": "",
      "created_at": "2020-03-14T17:05:21Z",
      "duration": "1h"
    }
  ],
  "pagination": {"cursor": "eyJiIjpudWxsLCJhIjp7Ik9mZnNldCI6NX19"}
}`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func syncCfg() *config.SyncConfig {
	return &config.SyncConfig{ThumbnailWidth: 320, ThumbnailHeight: 180}
}

func sampleVideo(t *testing.T) model.TwitchVideo {
	t.Helper()
	var resp model.TwitchVideosResponse
	if err := json.Unmarshal([]byte(videosSample), &resp); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	return resp.Data[0]
}

func TestNormalizeVOD(t *testing.T) {
	a := New(&config.ProviderConfig{}, syncCfg(), quietLogger())
	clip := a.Normalize(&model.RawClip{
		Provider:       model.ProviderTwitch,
		ID:             "335921245",
		VideoAccountID: "twitch:141981764",
		Data:           sampleVideo(t),
	})
	if clip == nil {
		t.Fatalf("expected clip")
	}
	wantStart := time.Date(2020, 3, 14, 17, 5, 21, 0, time.UTC)
	if !clip.StartTime.Equal(wantStart) {
		t.Fatalf("start = %v", clip.StartTime)
	}
	if got := clip.EndTime.Sub(clip.StartTime); got != 3*time.Hour+8*time.Minute+33*time.Second {
		t.Fatalf("duration = %v", got)
	}
	if clip.ID != "twitch:335921245" || clip.VideoAccountID != "twitch:141981764" {
		t.Fatalf("unexpected ids %+v", clip)
	}
	want := "https://static-cdn.jtvnw.net/cf_vods/d2nvs31859zcd8/twitchdev/335921245/ce0f3a7f-57a3-4152-bc06-0c6610189fb3/thumb/index-0000000000-320x180.jpg"
	if clip.ThumbnailURL != want {
		t.Fatalf("thumbnail = %s", clip.ThumbnailURL)
	}
	if clip.PlaybackURL != "https://www.twitch.tv/videos/335921245" {
		t.Fatalf("playback = %s", clip.PlaybackURL)
	}
}

func TestNormalizeDegrades(t *testing.T) {
	a := New(&config.ProviderConfig{}, syncCfg(), quietLogger())

	if c := a.Normalize(&model.RawClip{Provider: model.ProviderTwitch, Data: model.TwitchVideo{CreatedAt: "2020-03-14T17:05:21Z"}}); c != nil {
		t.Fatalf("clip without id must be skipped")
	}
	if c := a.Normalize(&model.RawClip{Provider: model.ProviderTwitch, Data: model.TwitchVideo{ID: "1"}}); c != nil {
		t.Fatalf("clip without start must be skipped")
	}
	if c := a.Normalize(&model.RawClip{Provider: model.ProviderTwitch, Data: "garbage"}); c != nil {
		t.Fatalf("wrong payload must be skipped")
	}

	c := a.Normalize(&model.RawClip{Provider: model.ProviderTwitch, Data: model.TwitchVideo{ID: "2", CreatedAt: "2020-03-14T17:05:21Z", Duration: "forever"}})
	if c == nil || !c.Recorded().Empty() || c.ThumbnailURL != "" || c.PlaybackURL != playbackPrefix+"2" {
		t.Fatalf("bad duration should degrade to an empty interval, got %+v", c)
	}
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"3h2m10s": 3*time.Hour + 2*time.Minute + 10*time.Second,
		"45m3s":   45*time.Minute + 3*time.Second,
		"59s":     59 * time.Second,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil || got != want {
			t.Fatalf("ParseDuration(%q) = %v, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "3 hours", "-5m"} {
		if _, err := ParseDuration(bad); !errors.Is(err, interfaces.ErrMalformedResponse) {
			t.Fatalf("ParseDuration(%q) should fail as malformed, got %v", bad, err)
		}
	}
}

func TestFetchClipsUsesAppTokenAndPaginates(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"app-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/helix/videos", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer app-token" || r.Header.Get("Client-Id") != "cid" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("user_id") != "141981764" || r.URL.Query().Get("type") != "archive" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("after") != "" {
			_, _ = w.Write([]byte(`{"data":[],"pagination":{}}`))
			return
		}
		_, _ = w.Write([]byte(videosSample))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := New(&config.ProviderConfig{
		BaseURL:      srv.URL + "/helix",
		TokenURL:     srv.URL + "/oauth2/token",
		ClientID:     "cid",
		ClientSecret: "secret",
		Timeout:      5,
		MaxPages:     3,
	}, syncCfg(), quietLogger())

	account := &model.VideoAccount{ID: "twitch:141981764", Provider: model.ProviderTwitch, ExternalID: "141981764"}
	raws, err := a.FetchClips(context.Background(), account)
	if err != nil {
		t.Fatalf("FetchClips: %v", err)
	}
	if len(raws) != 2 || raws[0].VideoAccountID != account.ID {
		t.Fatalf("unexpected raws %+v", raws)
	}
	if _, err := a.FetchClips(context.Background(), account); err != nil {
		t.Fatalf("second FetchClips: %v", err)
	}
	if n := atomic.LoadInt32(&tokenCalls); n != 1 {
		t.Fatalf("app token should be cached, fetched %d times", n)
	}
}

func TestSearchAccountByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("login") == "twitchdev" {
			_, _ = w.Write([]byte(`{"data":[{"id":"141981764","login":"twitchdev","display_name":"TwitchDev"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	a := New(&config.ProviderConfig{BaseURL: srv.URL, Timeout: 5}, syncCfg(), quietLogger())
	va, err := a.SearchAccountByName(context.Background(), "TwitchDev")
	if err != nil || va == nil {
		t.Fatalf("SearchAccountByName: %v %v", va, err)
	}
	if va.ID != "twitch:141981764" || va.LoginName != "twitchdev" {
		t.Fatalf("unexpected account %+v", va)
	}
	none, err := a.SearchAccountByName(context.Background(), "nobody")
	if err != nil || none != nil {
		t.Fatalf("unknown name should return nil, nil; got %v %v", none, err)
	}
}
