package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"EncounterSync/internal/adapter"
	"EncounterSync/internal/config"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"
	"EncounterSync/internal/repository"

	"github.com/sirupsen/logrus"
)

var base = time.Date(2020, 3, 14, 10, 0, 0, 0, time.UTC)

func at(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type testEnv struct {
	accounts   repository.AccountRepository
	links      repository.LinkRepository
	activities repository.ActivityRepository
	clips      repository.ClipRepository
	cfg        *config.SyncConfig
	logger     *logrus.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "service.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &testEnv{
		accounts:   repository.NewAccountRepository(db),
		links:      repository.NewLinkRepository(db),
		activities: repository.NewActivityRepository(db),
		clips:      repository.NewClipRepository(db),
		cfg: &config.SyncConfig{
			Workers:       1,
			CallTimeout:   5 * time.Second,
			ClipRecency:   72 * time.Hour,
			ClipBatchSize: 50,
		},
		logger: testLogger(),
	}
}

func (e *testEnv) addAccount(t *testing.T, membershipType int, membershipID, name string, group *string) *model.PlatformAccount {
	t.Helper()
	a := &model.PlatformAccount{
		ID:               model.PlatformAccountID(membershipType, membershipID),
		MembershipID:     membershipID,
		MembershipType:   membershipType,
		DisplayName:      name,
		CrossSaveGroupID: group,
	}
	if err := e.accounts.PlatformAccountWriter().Insert(context.Background(), a); err != nil {
		t.Fatalf("insert account: %v", err)
	}
	return a
}

func (e *testEnv) addVideoAccount(t *testing.T, provider model.ProviderType, externalID string) *model.VideoAccount {
	t.Helper()
	v := &model.VideoAccount{
		ID:          model.VideoAccountID(provider, externalID),
		Provider:    provider,
		ExternalID:  externalID,
		DisplayName: externalID,
		LoginName:   strings.ToLower(externalID),
	}
	if err := e.accounts.VideoAccountWriter().Insert(context.Background(), v); err != nil {
		t.Fatalf("insert video account: %v", err)
	}
	return v
}

func (e *testEnv) addLink(t *testing.T, link *model.AccountLink) *model.AccountLink {
	t.Helper()
	if err := e.links.UpsertLink(context.Background(), link); err != nil {
		t.Fatalf("upsert link: %v", err)
	}
	return link
}

func (e *testEnv) addClip(t *testing.T, va *model.VideoAccount, id string, from, to int) *model.Clip {
	t.Helper()
	c := testClip(va, id, from, to)
	if err := e.clips.ClipWriter().Insert(context.Background(), c); err != nil {
		t.Fatalf("insert clip: %v", err)
	}
	return c
}

func (e *testEnv) addInstance(t *testing.T, id string, from, to int, parts ...model.Participation) {
	t.Helper()
	for i := range parts {
		parts[i].InstanceID = id
	}
	inst := &model.ActivityInstance{InstanceID: id, ActivityHash: 1, StartTime: at(from), EndTime: at(to), Participations: parts}
	if err := e.activities.SaveInstances(context.Background(), []*model.ActivityInstance{inst}); err != nil {
		t.Fatalf("save instance: %v", err)
	}
}

func played(accountID string, team, from, to int) model.Participation {
	return model.Participation{AccountID: accountID, Team: intPtr(team), StartTime: at(from), EndTime: at(to)}
}

func testClip(va *model.VideoAccount, id string, from, to int) *model.Clip {
	return &model.Clip{
		ID:             model.ClipID(va.Provider, id),
		VideoAccountID: va.ID,
		Provider:       va.Provider,
		StartTime:      at(from),
		EndTime:        at(to),
		Title:          id,
		PlaybackURL:    "https://video.example/" + id,
	}
}

// fakeFetcher 内存版游戏侧数据源
type fakeFetcher struct {
	mu           sync.Mutex
	linked       *interfaces.LinkedAccounts
	characters   map[string][]string                  // account id -> character ids
	history      map[string][]*model.ActivityInstance // account id -> summaries
	details      map[string]*model.ActivityInstance   // instance id -> detail
	partnerships map[string][]interfaces.Partnership  // group -> partners
	detailCalls  int
}

var _ interfaces.ProfileFetcher = (*fakeFetcher)(nil)

func (f *fakeFetcher) FetchLinkedAccounts(context.Context, int, string) (*interfaces.LinkedAccounts, error) {
	return f.linked, nil
}

func (f *fakeFetcher) FetchCharacterIDs(_ context.Context, a *model.PlatformAccount) ([]string, error) {
	return f.characters[a.ID], nil
}

func (f *fakeFetcher) FetchActivityHistory(_ context.Context, a *model.PlatformAccount, _ string) ([]*model.ActivityInstance, error) {
	return f.history[a.ID], nil
}

func (f *fakeFetcher) FetchActivityDetail(_ context.Context, id string) (*model.ActivityInstance, error) {
	f.mu.Lock()
	f.detailCalls++
	f.mu.Unlock()
	d, ok := f.details[id]
	if !ok {
		return nil, interfaces.ErrUpstreamUnavailable
	}
	return d, nil
}

func (f *fakeFetcher) FetchPartnerships(_ context.Context, group string) ([]interfaces.Partnership, error) {
	return f.partnerships[group], nil
}

// fakeProvider 内存版视频平台；原始数据直接携带归一化后的录像
type fakeProvider struct {
	mu       sync.Mutex
	provider model.ProviderType
	clips    map[string][]*model.Clip // video account id -> clips
	byName   map[string]*model.VideoAccount
	searches int
}

var _ interfaces.ClipProvider = (*fakeProvider)(nil)

func (p *fakeProvider) GetType() model.ProviderType { return p.provider }

func (p *fakeProvider) FetchClips(_ context.Context, va *model.VideoAccount) ([]*model.RawClip, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var raws []*model.RawClip
	for _, c := range p.clips[va.ID] {
		cp := *c
		raws = append(raws, &model.RawClip{Provider: p.provider, ID: c.ID, VideoAccountID: va.ID, Data: &cp})
	}
	return raws, nil
}

func (p *fakeProvider) Normalize(raw *model.RawClip) *model.Clip {
	c, _ := raw.Data.(*model.Clip)
	return c
}

func (p *fakeProvider) SearchAccountByName(_ context.Context, name string) (*model.VideoAccount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches++
	v, ok := p.byName[strings.ToLower(name)]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (p *fakeProvider) setClips(vaID string, clips ...*model.Clip) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clips == nil {
		p.clips = make(map[string][]*model.Clip)
	}
	p.clips[vaID] = clips
}

func registryOf(logger *logrus.Logger, providers ...interfaces.ClipProvider) *adapter.ProviderRegistry {
	return adapter.NewStaticRegistry(logger, providers...)
}
