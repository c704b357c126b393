package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"
)

func clipKey(c *model.Clip) string { return c.ID }

func sampleClips() []*model.Clip {
	base := time.Date(2020, 3, 14, 10, 0, 0, 0, time.UTC)
	return []*model.Clip{
		{ID: "twitch:1", VideoAccountID: "twitch:a", StartTime: base, EndTime: base.Add(time.Hour), Title: "one", PlaybackURL: "u1"},
		{ID: "twitch:2", VideoAccountID: "twitch:a", StartTime: base.Add(2 * time.Hour), EndTime: base.Add(3 * time.Hour), Title: "two", PlaybackURL: "u2"},
		{ID: "twitch:3", VideoAccountID: "twitch:a", StartTime: base.Add(4 * time.Hour), EndTime: base.Add(5 * time.Hour), Title: "three", PlaybackURL: "u3"},
	}
}

func copyClips(in []*model.Clip) []*model.Clip {
	out := make([]*model.Clip, len(in))
	for i, c := range in {
		cp := *c
		out[i] = &cp
	}
	return out
}

func TestDiffIdenticalRefetchIsEmpty(t *testing.T) {
	stored := sampleClips()
	plan := Diff(stored, copyClips(stored), clipKey, model.ClipEqual, true)
	if !plan.Empty() || plan.Unchanged != 3 {
		t.Fatalf("identical refetch must produce an empty plan, got %+v", plan)
	}
}

func TestDiffInsertUpdateDelete(t *testing.T) {
	stored := sampleClips()
	fresh := copyClips(stored[:2])
	fresh[1].Title = "two (edited)"
	extra := *stored[0]
	extra.ID = "twitch:4"
	fresh = append(fresh, &extra, &extra)

	plan := Diff(stored, fresh, clipKey, model.ClipEqual, true)
	if len(plan.Insert) != 1 || plan.Insert[0].ID != "twitch:4" {
		t.Fatalf("expected one insert (duplicates collapsed), got %+v", plan.Insert)
	}
	if len(plan.Update) != 1 || plan.Update[0].ID != "twitch:2" {
		t.Fatalf("expected title change to update, got %+v", plan.Update)
	}
	if len(plan.Delete) != 1 || plan.Delete[0] != "twitch:3" {
		t.Fatalf("expected vanished clip to be deleted, got %v", plan.Delete)
	}
	if plan.Unchanged != 1 {
		t.Fatalf("expected one unchanged, got %d", plan.Unchanged)
	}

	noDelete := Diff(stored, fresh, clipKey, model.ClipEqual, false)
	if len(noDelete.Delete) != 0 {
		t.Fatalf("delete set must only be computed on request")
	}
}

type fakeWriter struct {
	failInsert map[string]error
	inserted   []string
	updated    []string
	deleted    []string
}

func (w *fakeWriter) Insert(_ context.Context, c *model.Clip) error {
	if err := w.failInsert[c.ID]; err != nil {
		return err
	}
	w.inserted = append(w.inserted, c.ID)
	return nil
}

func (w *fakeWriter) Update(_ context.Context, c *model.Clip) error {
	w.updated = append(w.updated, c.ID)
	return nil
}

func (w *fakeWriter) Delete(_ context.Context, key string) error {
	w.deleted = append(w.deleted, key)
	return nil
}

func TestApplyPartialFailureDoesNotBlock(t *testing.T) {
	clips := sampleClips()
	plan := Plan[*model.Clip]{Insert: clips[:2], Update: clips[2:], Delete: []string{"twitch:9"}}
	w := &fakeWriter{failInsert: map[string]error{
		"twitch:1": errors.New(`ERROR: duplicate key value violates unique constraint "clips_pkey" (SQLSTATE 23505)`),
	}}

	res := Apply(context.Background(), plan, clipKey, w)
	if res.Inserted != 1 || res.Updated != 1 || res.Deleted != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(res.Failures) != 1 || res.Failures[0].Key != "twitch:1" || res.Failures[0].Op != OpInsert {
		t.Fatalf("unexpected failures %+v", res.Failures)
	}
	if !errors.Is(res.Err(), interfaces.ErrConstraintViolation) {
		t.Fatalf("duplicate key should classify as constraint violation: %v", res.Err())
	}
}

func TestApplyStopsWritingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &fakeWriter{}
	res := Apply(ctx, Plan[*model.Clip]{Insert: sampleClips()}, clipKey, w)
	if len(w.inserted) != 0 || len(res.Failures) != 3 {
		t.Fatalf("cancelled pass must not write, got %+v", res)
	}
}
