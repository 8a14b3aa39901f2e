package production

import (
	"errors"
	"strings"
	"testing"
)

func TestCanEnterFromDefault(t *testing.T) {
	m := DefaultMachine
	f := DefaultFlags()

	if !m.CanEnter(StageScript, f) {
		t.Error("script must be open on a fresh production")
	}
	for _, s := range []Stage{StageImages, StageAudio, StageOverlay, StageCaptions, StageVideo, StagePublish} {
		if m.CanEnter(s, f) {
			t.Errorf("stage %s must be locked on a fresh production", s)
		}
	}
}

func TestCanEnterProgression(t *testing.T) {
	m := DefaultMachine
	f := DefaultFlags().MarkDone(StageScript)

	if !m.CanEnter(StageImages, f) || !m.CanEnter(StageAudio, f) {
		t.Error("images and audio must unlock after script")
	}
	if m.CanEnter(StageOverlay, f) || m.CanEnter(StageCaptions, f) {
		t.Error("overlay and captions need both media stages")
	}

	f = f.MarkDone(StageImages)
	if m.CanEnter(StageOverlay, f) {
		t.Error("overlay must stay locked with audio missing")
	}

	f = f.MarkDone(StageAudio)
	if !m.CanEnter(StageOverlay, f) || !m.CanEnter(StageCaptions, f) {
		t.Error("overlay and captions must unlock after images and audio")
	}
	if m.CanEnter(StageVideo, f) {
		t.Error("video must stay locked without overlay and captions")
	}

	f = f.MarkDone(StageOverlay).MarkDone(StageCaptions)
	if !m.CanEnter(StageVideo, f) {
		t.Error("video must unlock after overlay and captions")
	}
	if m.CanEnter(StagePublish, f) {
		t.Error("publish must stay locked without a video")
	}

	f = f.MarkDone(StageVideo)
	if !m.CanEnter(StagePublish, f) {
		t.Error("publish must unlock after video")
	}
}

func TestCanEnterCaptionsOptional(t *testing.T) {
	m := Machine{CaptionsRequired: false}
	f := DefaultFlags().
		MarkDone(StageScript).
		MarkDone(StageImages).
		MarkDone(StageAudio).
		MarkDone(StageOverlay)

	if !m.CanEnter(StageVideo, f) {
		t.Error("video must unlock without captions when they are not required")
	}
	if DefaultMachine.CanEnter(StageVideo, f) {
		t.Error("default machine must still require captions")
	}
}

func TestCanEnterRedoCompletedStage(t *testing.T) {
	m := DefaultMachine
	f := DefaultFlags().MarkDone(StageScript).MarkDone(StageImages)
	if !m.CanEnter(StageImages, f) {
		t.Error("a completed stage with satisfied prerequisites stays enterable")
	}
}

func TestMissingFor(t *testing.T) {
	m := DefaultMachine
	f := DefaultFlags().MarkDone(StageScript).MarkDone(StageImages)

	missing := m.MissingFor(StageVideo, f)
	want := map[Stage]bool{StageOverlay: true, StageCaptions: true}
	if len(missing) != len(want) {
		t.Fatalf("expected %d missing stages, got %v", len(want), missing)
	}
	for _, s := range missing {
		if !want[s] {
			t.Errorf("unexpected missing stage %s", s)
		}
	}

	if got := m.MissingFor(StageScript, DefaultFlags()); len(got) != 0 {
		t.Errorf("script has no prerequisites, got %v", got)
	}
}

func TestStagePreconditionError(t *testing.T) {
	err := &StagePreconditionError{Stage: StageVideo, Missing: []Stage{StageOverlay, StageCaptions}}

	msg := err.Error()
	if !strings.Contains(msg, "video") || !strings.Contains(msg, "overlay") || !strings.Contains(msg, "captions") {
		t.Errorf("error message missing detail: %q", msg)
	}

	var target *StagePreconditionError
	if !errors.As(error(err), &target) {
		t.Error("errors.As must match StagePreconditionError")
	}
}
