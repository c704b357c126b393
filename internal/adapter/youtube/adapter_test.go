package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"EncounterSync/internal/config"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"

	"github.com/sirupsen/logrus"
)

const videosSample = `{
  "items": [
    {
      "id": "Ks-_Mh1QhMc",
      "snippet": {
        "publishedAt": "2020-03-14T20:00:00Z",
        "channelId": "UCxyz",
        "title": "Iron Banner night",
        "channelTitle": "Guardian",
        "thumbnails": {
          "default": {"url": "https://i.ytimg.com/vi/Ks-_Mh1QhMc/default.jpg", "width": 120, "height": 90},
          "medium": {"url": "https://i.ytimg.com/vi/Ks-_Mh1QhMc/mqdefault.jpg", "width": 320, "height": 180},
          "high": {"url": "https://i.ytimg.com/vi/Ks-_Mh1QhMc/hqdefault.jpg", "width": 480, "height": 360}
        }
      },
      "contentDetails": {"duration": "PT2H10M5S"},
      "liveStreamingDetails": {
        "actualStartTime": "2020-03-14T17:00:00Z",
        "actualEndTime": "2020-03-14T19:10:05Z"
      }
    },
    {
      "id": "upload01",
      "snippet": {
        "publishedAt": "2020-03-15T08:30:00Z",
        "title": "Montage",
        "thumbnails": {"maxres": {"url": "https://i.ytimg.com/vi/upload01/maxresdefault.jpg"}}
      },
      "contentDetails": {"duration": "PT4M13S"}
    }
  ]
}`

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func samples(t *testing.T) []model.YouTubeVideo {
	t.Helper()
	var resp model.YouTubeVideosResponse
	if err := json.Unmarshal([]byte(videosSample), &resp); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	return resp.Items
}

func TestNormalizeLiveArchiveUsesAbsoluteTimes(t *testing.T) {
	a := New(&config.ProviderConfig{}, nil, quietLogger())
	clip := a.Normalize(&model.RawClip{Provider: model.ProviderYouTube, VideoAccountID: "youtube:UCxyz", Data: samples(t)[0]})
	if clip == nil {
		t.Fatalf("expected clip")
	}
	if !clip.StartTime.Equal(time.Date(2020, 3, 14, 17, 0, 0, 0, time.UTC)) ||
		!clip.EndTime.Equal(time.Date(2020, 3, 14, 19, 10, 5, 0, time.UTC)) {
		t.Fatalf("unexpected interval %v", clip.Recorded())
	}
	if clip.ThumbnailURL != "https://i.ytimg.com/vi/Ks-_Mh1QhMc/hqdefault.jpg" {
		t.Fatalf("high should win without maxres, got %s", clip.ThumbnailURL)
	}
	if clip.PlaybackURL != "https://www.youtube.com/watch?v=Ks-_Mh1QhMc" || clip.ID != "youtube:Ks-_Mh1QhMc" {
		t.Fatalf("unexpected clip %+v", clip)
	}
}

func TestNormalizeUploadUsesPublishedPlusDuration(t *testing.T) {
	a := New(&config.ProviderConfig{}, nil, quietLogger())
	clip := a.Normalize(&model.RawClip{Provider: model.ProviderYouTube, Data: samples(t)[1]})
	if clip == nil {
		t.Fatalf("expected clip")
	}
	if got := clip.EndTime.Sub(clip.StartTime); got != 4*time.Minute+13*time.Second {
		t.Fatalf("duration = %v", got)
	}
	if clip.ThumbnailURL != "https://i.ytimg.com/vi/upload01/maxresdefault.jpg" {
		t.Fatalf("thumbnail = %s", clip.ThumbnailURL)
	}
}

func TestNormalizeDegrades(t *testing.T) {
	a := New(&config.ProviderConfig{}, nil, quietLogger())
	if c := a.Normalize(&model.RawClip{Provider: model.ProviderYouTube, Data: model.YouTubeVideo{ID: "x"}}); c != nil {
		t.Fatalf("video without any start time must be skipped")
	}
	v := model.YouTubeVideo{ID: "live"}
	v.Snippet.PublishedAt = "2020-03-14T17:00:00Z"
	v.ContentDetails.Duration = "PT0S"
	v.LiveStreamingDetails = &model.YouTubeLiveStreamingDetails{ActualStartTime: "2020-03-14T16:00:00Z"}
	c := a.Normalize(&model.RawClip{Provider: model.ProviderYouTube, Data: v})
	if c == nil || !c.StartTime.Equal(time.Date(2020, 3, 14, 16, 0, 0, 0, time.UTC)) || !c.Recorded().Empty() {
		t.Fatalf("live start without end should fall back to content duration, got %+v", c)
	}
	if c.ThumbnailURL != "" {
		t.Fatalf("missing thumbnails should degrade to empty")
	}
}

func TestParseDuration(t *testing.T) {
	got, err := ParseDuration("PT1H2M3S")
	if err != nil || got != time.Hour+2*time.Minute+3*time.Second {
		t.Fatalf("ParseDuration = %v, %v", got, err)
	}
	for _, bad := range []string{"", "1h2m", "bogus"} {
		if _, err := ParseDuration(bad); !errors.Is(err, interfaces.ErrMalformedResponse) {
			t.Fatalf("ParseDuration(%q) should be malformed, got %v", bad, err)
		}
	}
}

func TestFetchClipsResolvesUploadsPlaylist(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"UCxyz","snippet":{"title":"Guardian"},"contentDetails":{"relatedPlaylists":{"uploads":"UUxyz"}}}]}`))
	})
	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("playlistId") != "UUxyz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"contentDetails":{"videoId":"Ks-_Mh1QhMc"}},{"contentDetails":{"videoId":"upload01"}}]}`))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "Ks-_Mh1QhMc,upload01" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(videosSample))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := New(&config.ProviderConfig{BaseURL: srv.URL, APIKey: "k", Timeout: 5, MaxPages: 2}, nil, quietLogger())
	raws, err := a.FetchClips(context.Background(), &model.VideoAccount{ID: "youtube:UCxyz", ExternalID: "UCxyz"})
	if err != nil {
		t.Fatalf("FetchClips: %v", err)
	}
	if len(raws) != 2 || raws[1].ID != "upload01" {
		t.Fatalf("unexpected raws %+v", raws)
	}

	va, err := a.SearchAccountByName(context.Background(), "guardian")
	if err != nil || va == nil || va.ChannelToken != "UUxyz" || va.ID != "youtube:UCxyz" {
		t.Fatalf("SearchAccountByName: %+v %v", va, err)
	}
}
