package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"EncounterSync/internal/correlate"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/interval"
	"EncounterSync/internal/model"
	"EncounterSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// EncounterHandler 遭遇查询接口
type EncounterHandler struct {
	encounters *service.EncounterService
	logger     *logrus.Logger
}

func NewEncounterHandler(encounters *service.EncounterService, logger *logrus.Logger) *EncounterHandler {
	return &EncounterHandler{encounters: encounters, logger: logger}
}

type clipView struct {
	ID           string             `json:"id"`
	Provider     model.ProviderType `json:"provider"`
	Title        string             `json:"title"`
	ThumbnailURL string             `json:"thumbnail_url"`
	PlaybackURL  string             `json:"playback_url"`
	StartTime    time.Time          `json:"start_time"`
	EndTime      time.Time          `json:"end_time"`
}

type encounterView struct {
	AccountID         string            `json:"account_id"`
	PlayerKey         string            `json:"player_key"`
	Team              string            `json:"team"`
	Played            interval.Interval `json:"played"`
	VideoAccountID    string            `json:"video_account_id"`
	VideoAccountName  string            `json:"video_account_name"`
	LinkIDs           []string          `json:"link_ids"`
	LinkMethods       []string          `json:"link_methods"`
	Clip              clipView          `json:"clip"`
	SeekOffsetSeconds float64           `json:"seek_offset_seconds"`
}

type instanceView struct {
	InstanceID   string          `json:"instance_id"`
	ActivityHash uint32          `json:"activity_hash"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	Encounters   []encounterView `json:"encounters"`
}

type playerEncountersView struct {
	PlayerKey  string         `json:"player_key"`
	AccountIDs []string       `json:"account_ids"`
	Instances  []instanceView `json:"instances"`
}

func toInstanceViews(list []correlate.InstanceEncounters) []instanceView {
	out := make([]instanceView, 0, len(list))
	for _, ie := range list {
		v := instanceView{
			InstanceID:   ie.Instance.InstanceID,
			ActivityHash: ie.Instance.ActivityHash,
			StartTime:    ie.Instance.StartTime,
			EndTime:      ie.Instance.EndTime,
			Encounters:   make([]encounterView, 0, len(ie.Encounters)),
		}
		for _, e := range ie.Encounters {
			ev := encounterView{
				AccountID:         e.AccountID,
				PlayerKey:         e.PlayerKey,
				Team:              e.Team,
				Played:            e.Played,
				SeekOffsetSeconds: e.SeekOffsetSeconds(),
				Clip: clipView{
					ID:           e.Clip.ID,
					Provider:     e.Clip.Provider,
					Title:        e.Clip.Title,
					ThumbnailURL: e.Clip.ThumbnailURL,
					PlaybackURL:  e.Clip.PlaybackURL,
					StartTime:    e.Clip.StartTime,
					EndTime:      e.Clip.EndTime,
				},
			}
			if e.VideoAccount != nil {
				ev.VideoAccountID = e.VideoAccount.ID
				ev.VideoAccountName = e.VideoAccount.DisplayName
			}
			for _, l := range e.Links {
				ev.LinkIDs = append(ev.LinkIDs, l.ID)
				ev.LinkMethods = append(ev.LinkMethods, string(l.LinkMethod))
			}
			v.Encounters = append(v.Encounters, ev)
		}
		out = append(out, v)
	}
	return out
}

// PlayerEncounters 玩家遭遇列表
// GET /api/players/:membership_type/:membership_id/encounters?limit=250
func (h *EncounterHandler) PlayerEncounters(c *gin.Context) {
	membershipType, err := strconv.Atoi(c.Param("membership_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "membership_type must be an integer"})
		return
	}
	membershipID := c.Param("membership_id")
	if membershipID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "membership_id is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	res, err := h.encounters.FindEncounters(c.Request.Context(), model.PlatformAccountID(membershipType, membershipID), limit)
	if err != nil {
		respondError(c, h.logger, "查询玩家遭遇失败", err)
		return
	}
	c.JSON(http.StatusOK, playerEncountersView{
		PlayerKey:  res.Player.Key,
		AccountIDs: res.Player.AccountIDs,
		Instances:  toInstanceViews(res.Instances),
	})
}

// CrossEncounters 两个阵营都被录到的对局
// GET /api/encounters/cross?team_a=16&team_b=17&provider=twitch&window=[start,end)&limit=50
func (h *EncounterHandler) CrossEncounters(c *gin.Context) {
	q, err := parseCrossQuery(c)
	if err != nil {
		respondError(c, h.logger, "跨阵营查询参数错误", err)
		return
	}
	res, err := h.encounters.FindCrossEncounters(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, "跨阵营查询失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instances": toInstanceViews(res)})
}

func parseCrossQuery(c *gin.Context) (service.CrossQuery, error) {
	var q service.CrossQuery
	teamA, err := strconv.Atoi(c.Query("team_a"))
	if err != nil {
		return q, fmt.Errorf("team_a must be an integer: %w", interfaces.ErrInvalidInput)
	}
	teamB, err := strconv.Atoi(c.Query("team_b"))
	if err != nil {
		return q, fmt.Errorf("team_b must be an integer: %w", interfaces.ErrInvalidInput)
	}
	q.TeamA, q.TeamB = teamA, teamB

	if p := model.ProviderType(c.Query("provider")); p != "" {
		if !p.Valid() {
			return q, fmt.Errorf("unknown provider %q: %w", p, interfaces.ErrInvalidInput)
		}
		q.Provider = p
	}
	if w := c.Query("window"); w != "" {
		window, err := interval.Parse(w)
		if err != nil {
			return q, fmt.Errorf("%v: %w", err, interfaces.ErrInvalidInput)
		}
		q.Window = &window
	}
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	return q, nil
}
