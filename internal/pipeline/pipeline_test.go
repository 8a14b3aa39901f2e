package pipeline

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/TobiSchelling/LiturgyCast/internal/captions"
	"github.com/TobiSchelling/LiturgyCast/internal/database"
	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Pipeline{DB: db, Machine: production.DefaultMachine}
}

func TestSelectForWorkCreatesDefault(t *testing.T) {
	p := newTestPipeline(t)

	st, err := p.SelectForWork("2026-09-01", "Evangelho")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Key != "2026-09-01-Evangelho" {
		t.Errorf("unexpected key %q", st.Key)
	}
	if !st.Active {
		t.Error("selected production must be active")
	}
	if st.Flags != production.DefaultFlags() {
		t.Error("new production must start with default flags")
	}
}

func TestSelectForWorkIsIdempotent(t *testing.T) {
	p := newTestPipeline(t)
	p.SelectForWork("2026-09-01", "Evangelho")

	if _, err := p.CompleteStage("2026-09-01-Evangelho", production.StageScript, &production.ScriptArtifact{Commentary: "C"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Deactivate("2026-09-01-Evangelho"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err := p.SelectForWork("2026-09-01", "Evangelho")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Active {
		t.Error("re-selection must reactivate")
	}
	if !st.Flags.Script {
		t.Error("re-selection must not reset progress")
	}
	if st.Artifacts.Script == nil {
		t.Error("re-selection must keep artifacts")
	}
}

func TestStatusNotFound(t *testing.T) {
	p := newTestPipeline(t)
	if _, err := p.Status("2026-09-01-Evangelho"); err != production.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteStageUnknownProduction(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.CompleteStage("2026-09-01-Evangelho", production.StageScript, &production.ScriptArtifact{})
	if err != production.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteStageRejectsOutOfOrder(t *testing.T) {
	p := newTestPipeline(t)
	p.SelectForWork("2026-09-01", "Evangelho")
	key := "2026-09-01-Evangelho"

	_, err := p.CompleteStage(key, production.StageVideo, &production.VideoArtifact{Path: "v.mp4"})
	if err == nil {
		t.Fatal("expected a precondition error")
	}
	var precond *production.StagePreconditionError
	if !errors.As(err, &precond) {
		t.Fatalf("expected StagePreconditionError, got %T: %v", err, err)
	}
	if precond.Stage != production.StageVideo {
		t.Errorf("error names stage %q", precond.Stage)
	}

	// The stored record must be untouched by the failed completion.
	st, err := p.Status(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Flags != production.DefaultFlags() {
		t.Error("failed completion changed the flags")
	}
	if st.Artifacts.Video != nil {
		t.Error("failed completion stored an artifact")
	}
}

func TestFullProductionLifecycle(t *testing.T) {
	p := newTestPipeline(t)
	p.SelectForWork("2026-09-01", "Evangelho")
	key := "2026-09-01-Evangelho"

	steps := []struct {
		stage    production.Stage
		artifact any
	}{
		{production.StageScript, &production.ScriptArtifact{Title: "T", Commentary: "C"}},
		{production.StageImages, &production.ImagesArtifact{Paths: []string{"a.jpg", "b.jpg"}}},
		{production.StageAudio, &production.AudioArtifact{Path: "n.wav", DurationSec: 62.5}},
		{production.StageOverlay, &production.OverlayStyle{Lines: []string{"Evangelho"}}},
		{production.StageCaptions, &production.CaptionsArtifact{
			Enabled:  true,
			Segments: []captions.Segment{{Start: 0, End: 62.5, Text: "C"}},
		}},
		{production.StageVideo, &production.VideoArtifact{Path: "v.mp4"}},
		{production.StagePublish, &production.PublishArtifact{VideoID: "abc123"}},
	}

	for i, step := range steps {
		st, err := p.CompleteStage(key, step.stage, step.artifact)
		if err != nil {
			t.Fatalf("stage %s: unexpected error: %v", step.stage, err)
		}
		if st.Flags.CompletedCount() != i+1 {
			t.Errorf("stage %s: expected %d completed, got %d", step.stage, i+1, st.Flags.CompletedCount())
		}
	}

	if err := p.Deactivate(key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err := p.Status(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := production.Classify(st.Flags, st.Active); got != production.ClassPublished {
		t.Errorf("expected published classification, got %q", got)
	}
	if st.Artifacts.Publish == nil || st.Artifacts.Publish.VideoID != "abc123" {
		t.Error("publish artifact not stored")
	}

	// A closed published production leaves the worklist.
	list, err := p.DB.ListActiveOrInProgress()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range list {
		if item.Key == key && production.Classify(item.Flags, item.Active) == production.ClassInProgress {
			t.Error("closed production still classified in progress")
		}
	}
}

func TestCompleteStageCaptionsOptional(t *testing.T) {
	p := newTestPipeline(t)
	p.Machine = production.Machine{CaptionsRequired: false}
	p.SelectForWork("2026-09-01", "Evangelho")
	key := "2026-09-01-Evangelho"

	p.CompleteStage(key, production.StageScript, &production.ScriptArtifact{Commentary: "C"})
	p.CompleteStage(key, production.StageImages, &production.ImagesArtifact{Paths: []string{"a.jpg"}})
	p.CompleteStage(key, production.StageAudio, &production.AudioArtifact{Path: "n.wav", DurationSec: 30})
	p.CompleteStage(key, production.StageOverlay, &production.OverlayStyle{})

	if _, err := p.CompleteStage(key, production.StageVideo, &production.VideoArtifact{Path: "v.mp4"}); err != nil {
		t.Errorf("video without captions must pass when not required: %v", err)
	}
}

func TestCompleteStageRejectsWrongArtifact(t *testing.T) {
	p := newTestPipeline(t)
	p.SelectForWork("2026-09-01", "Evangelho")

	_, err := p.CompleteStage("2026-09-01-Evangelho", production.StageScript, &production.VideoArtifact{})
	if err == nil {
		t.Fatal("expected error for mismatched artifact type")
	}

	st, _ := p.Status("2026-09-01-Evangelho")
	if st.Flags.Script {
		t.Error("failed apply must not mark the stage done")
	}
}

func TestUpdateFlags(t *testing.T) {
	p := newTestPipeline(t)
	p.SelectForWork("2026-09-01", "Evangelho")
	key := "2026-09-01-Evangelho"
	p.CompleteStage(key, production.StageScript, &production.ScriptArtifact{Commentary: "C"})

	st, err := p.UpdateFlags(key, map[string]bool{"images": true, "thumbnail": true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Flags.Script {
		t.Error("update cleared an unmentioned flag")
	}
	if !st.Flags.Images {
		t.Error("update did not apply")
	}
}

func TestReset(t *testing.T) {
	p := newTestPipeline(t)
	p.SelectForWork("2026-09-01", "Evangelho")
	key := "2026-09-01-Evangelho"
	p.CompleteStage(key, production.StageScript, &production.ScriptArtifact{Commentary: "C"})

	if err := p.Reset(key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Status(key); err != production.ErrNotFound {
		t.Errorf("expected ErrNotFound after reset, got %v", err)
	}
}

func TestDeactivateUnknown(t *testing.T) {
	p := newTestPipeline(t)
	if err := p.Deactivate("2026-09-01-Evangelho"); err != production.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
