package service

import (
	"context"
	"errors"
	"testing"

	"EncounterSync/internal/identity"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"
)

type linkFixture struct {
	env         *testEnv
	svc         *LinkService
	owner       *model.PlatformAccount
	mate        *model.PlatformAccount
	stranger    *model.PlatformAccount
	nameMatch   *model.AccountLink
	partnership *model.AccountLink
}

func newLinkFixture(t *testing.T) *linkFixture {
	t.Helper()
	env := newTestEnv(t)
	group := strPtr("4611686018400000009")
	owner := env.addAccount(t, 3, "owner", "Owner", group)
	mate := env.addAccount(t, 2, "mate", "Owner", group)
	stranger := env.addAccount(t, 1, "stranger", "Stranger", nil)
	va := env.addVideoAccount(t, model.ProviderTwitch, "owner")
	vp := env.addVideoAccount(t, model.ProviderTwitch, "partner")
	return &linkFixture{
		env:         env,
		svc:         NewLinkService(env.accounts, env.links, env.logger),
		owner:       owner,
		mate:        mate,
		stranger:    stranger,
		nameMatch:   env.addLink(t, identity.NewLink(owner, va, model.LinkNameMatch)),
		partnership: env.addLink(t, identity.NewLink(owner, vp, model.LinkPartnership)),
	}
}

func (f *linkFixture) rejected(t *testing.T, id string) bool {
	t.Helper()
	link, err := f.env.links.GetLink(context.Background(), id)
	if err != nil {
		t.Fatalf("GetLink: %v", err)
	}
	return link.Rejected
}

func TestReportLinkByStrangerDoesNotReject(t *testing.T) {
	f := newLinkFixture(t)
	link, err := f.svc.ReportLink(context.Background(), f.stranger.ID, f.nameMatch.ID)
	if err != nil {
		t.Fatalf("ReportLink: %v", err)
	}
	if link.Rejected || f.rejected(t, f.nameMatch.ID) {
		t.Fatal("non-owner vote must not reject")
	}
	votes, _ := f.env.links.ListVotes(context.Background(), f.nameMatch.ID)
	if len(votes) != 1 || votes[0].Owner {
		t.Fatalf("unexpected votes: %+v", votes)
	}
}

func TestReportLinkByOwnerRejectsAndUnreportRestores(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	// 同一跨存档分组的另一账号也算所有者
	if _, err := f.svc.ReportLink(ctx, f.mate.ID, f.nameMatch.ID); err != nil {
		t.Fatalf("ReportLink: %v", err)
	}
	if !f.rejected(t, f.nameMatch.ID) {
		t.Fatal("owner vote must reject")
	}
	// 重复举报幂等
	if _, err := f.svc.ReportLink(ctx, f.owner.ID, f.nameMatch.ID); err != nil {
		t.Fatalf("ReportLink again: %v", err)
	}
	votes, _ := f.env.links.ListVotes(ctx, f.nameMatch.ID)
	if len(votes) != 1 || votes[0].PlayerKey != "bnet:4611686018400000009" {
		t.Fatalf("expected one vote per player, got %+v", votes)
	}

	link, err := f.svc.UnreportLink(ctx, f.owner.ID, f.nameMatch.ID)
	if err != nil {
		t.Fatalf("UnreportLink: %v", err)
	}
	if link.Rejected || f.rejected(t, f.nameMatch.ID) {
		t.Fatal("unreport must restore the link")
	}
}

func TestReportLinkOnlyForNameMatches(t *testing.T) {
	f := newLinkFixture(t)
	_, err := f.svc.ReportLink(context.Background(), f.owner.ID, f.partnership.ID)
	if !errors.Is(err, interfaces.ErrLinkNotReportable) {
		t.Fatalf("expected ErrLinkNotReportable, got %v", err)
	}
	_, err = f.svc.ReportLink(context.Background(), f.owner.ID, "missing")
	if !errors.Is(err, interfaces.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestRejectLinkRequiresOwner(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	if _, err := f.svc.RejectLink(ctx, f.stranger.ID, f.nameMatch.ID); !errors.Is(err, interfaces.ErrNotLinkOwner) {
		t.Fatalf("expected ErrNotLinkOwner, got %v", err)
	}
	link, err := f.svc.RejectLink(ctx, f.owner.ID, f.nameMatch.ID)
	if err != nil {
		t.Fatalf("RejectLink: %v", err)
	}
	if !link.Rejected {
		t.Fatal("owner reject must reject")
	}
}

func TestRemoveLinkRules(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	if err := f.svc.RemoveLink(ctx, f.owner.ID, f.partnership.ID); !errors.Is(err, interfaces.ErrLinkNotRemovable) {
		t.Fatalf("expected ErrLinkNotRemovable, got %v", err)
	}
	if err := f.svc.RemoveLink(ctx, f.stranger.ID, f.nameMatch.ID); !errors.Is(err, interfaces.ErrNotLinkOwner) {
		t.Fatalf("expected ErrNotLinkOwner, got %v", err)
	}
	// 同名匹配软删除：保留行，标记驳回，重新发现时不会复活
	if err := f.svc.RemoveLink(ctx, f.owner.ID, f.nameMatch.ID); err != nil {
		t.Fatalf("RemoveLink: %v", err)
	}
	if !f.rejected(t, f.nameMatch.ID) {
		t.Fatal("name match removal must be soft")
	}
}

func TestRecordLinkCreatesAuthenticationLink(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	video := &model.VideoAccount{Provider: model.ProviderYouTube, ExternalID: "UC123", DisplayName: "Owner Plays", ChannelToken: "UU123"}
	link, err := f.svc.RecordLink(ctx, f.owner.ID, video)
	if err != nil {
		t.Fatalf("RecordLink: %v", err)
	}
	if link.LinkMethod != model.LinkAuthentication || link.VideoAccountID != "youtube:UC123" || link.Rejected {
		t.Fatalf("unexpected link: %+v", link)
	}
	vas, _ := f.env.accounts.ListVideoAccounts(ctx, []string{"youtube:UC123"})
	if len(vas) != 1 || vas[0].ChannelToken != "UU123" || vas[0].LoginName != "owner plays" {
		t.Fatalf("video account not stored: %+v", vas)
	}

	// OAuth 关联不能被举报
	if _, err := f.svc.ReportLink(ctx, f.owner.ID, link.ID); !errors.Is(err, interfaces.ErrLinkNotReportable) {
		t.Fatalf("expected ErrLinkNotReportable, got %v", err)
	}
	// OAuth 关联物理删除
	if err := f.svc.RemoveLink(ctx, f.owner.ID, link.ID); err != nil {
		t.Fatalf("RemoveLink: %v", err)
	}
	if _, err := f.env.links.GetLink(ctx, link.ID); !errors.Is(err, interfaces.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound after hard delete, got %v", err)
	}
}

func TestRecordLinkValidatesInput(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	if _, err := f.svc.RecordLink(ctx, f.owner.ID, &model.VideoAccount{Provider: "vimeo", ExternalID: "1"}); !errors.Is(err, interfaces.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.svc.RecordLink(ctx, "9:nobody", &model.VideoAccount{Provider: model.ProviderTwitch, ExternalID: "1"}); err == nil {
		t.Fatal("unknown account must fail")
	}
}

func TestRemovedLinkStaysRejectedAfterOtherReports(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	if err := f.svc.RemoveLink(ctx, f.owner.ID, f.nameMatch.ID); err != nil {
		t.Fatalf("RemoveLink: %v", err)
	}
	if _, err := f.svc.ReportLink(ctx, f.stranger.ID, f.nameMatch.ID); err != nil {
		t.Fatalf("ReportLink: %v", err)
	}
	if !f.rejected(t, f.nameMatch.ID) {
		t.Fatal("stranger report revived a link removed by its owner")
	}
	if _, err := f.svc.UnreportLink(ctx, f.stranger.ID, f.nameMatch.ID); err != nil {
		t.Fatalf("UnreportLink: %v", err)
	}
	if !f.rejected(t, f.nameMatch.ID) {
		t.Fatal("stranger unreport revived a link removed by its owner")
	}
}
