package api_test

import (
	"context"
	"testing"

	"transcriber/internal/api"
	"transcriber/internal/store"
	"transcriber/internal/testsupport"
)

func TestProjectServiceDescribe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	p, err := st.NewSegmentedProject(ctx, "Lecture", "lecture.wav", "/tmp/lecture.wav",
		testsupport.Segments([2]float64{0, 1}, [2]float64{2, 3}))
	if err != nil {
		t.Fatalf("NewSegmentedProject: %v", err)
	}
	svc := api.NewProjectService(st, func(p *store.Project) string { return "/logs/" + p.Name })

	resp, err := svc.Describe(ctx, p.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if resp == nil {
		t.Fatal("expected project")
	}
	if resp.Project.Status != "segmented" || resp.Project.LogPath != "/logs/Lecture" {
		t.Fatalf("unexpected project %+v", resp.Project)
	}
	if len(resp.Segments) != 2 || resp.Project.SegmentCounts.Pending != 2 {
		t.Fatalf("unexpected segments %+v", resp.Segments)
	}

	missing, err := svc.Describe(ctx, p.ID+100)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing project, got %+v %v", missing, err)
	}
}

func TestProjectServiceListAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewProject(t, st, "first", "/tmp/first.wav")
	second := testsupport.NewProject(t, st, "second", "/tmp/second.wav")
	if _, err := st.Transition(ctx, second.ID, store.StatusCanceled, store.UserCancelReason); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	svc := api.NewProjectService(st, nil)
	pending, err := svc.List(ctx, store.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "first" {
		t.Fatalf("unexpected pending list %+v", pending)
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["pending"] != 1 || stats["canceled"] != 1 || stats["completed"] != 0 {
		t.Fatalf("unexpected stats %v", stats)
	}
}
