package production

import (
	"fmt"
	"strings"
)

// Machine is the stage-unlock graph. Script is the entry stage; images and
// audio need a script; overlay and captions need both media inputs; video
// needs the overlay plus, depending on configuration, the captions; publish
// needs a rendered video.
//
// CaptionsRequired decides whether a video can be rendered without timed
// captions. It defaults to requiring them.
type Machine struct {
	CaptionsRequired bool
}

// DefaultMachine requires captions before rendering.
var DefaultMachine = Machine{CaptionsRequired: true}

// CanEnter reports whether the given stage may be worked on with the given
// completed flags. It is a pure function; callers use it both to enable UI
// affordances and to reject out-of-order completions.
func (m Machine) CanEnter(stage Stage, f StageFlags) bool {
	switch stage {
	case StageScript:
		return true
	case StageImages, StageAudio:
		return f.Script
	case StageOverlay, StageCaptions:
		return f.Images && f.Audio
	case StageVideo:
		if m.CaptionsRequired {
			return f.Overlay && f.Captions
		}
		return f.Overlay
	case StagePublish:
		return f.Video
	}
	return false
}

// MissingFor returns the incomplete prerequisites blocking a stage.
func (m Machine) MissingFor(stage Stage, f StageFlags) []Stage {
	var prereqs []Stage
	switch stage {
	case StageImages, StageAudio:
		prereqs = []Stage{StageScript}
	case StageOverlay, StageCaptions:
		prereqs = []Stage{StageImages, StageAudio}
	case StageVideo:
		prereqs = []Stage{StageOverlay}
		if m.CaptionsRequired {
			prereqs = append(prereqs, StageCaptions)
		}
	case StagePublish:
		prereqs = []Stage{StageVideo}
	}

	var missing []Stage
	for _, p := range prereqs {
		if !f.Done(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// StagePreconditionError reports a stage completion attempted before its
// prerequisites were done. The stored record is left untouched.
type StagePreconditionError struct {
	Stage   Stage
	Missing []Stage
}

func (e *StagePreconditionError) Error() string {
	names := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		names[i] = string(s)
	}
	return fmt.Sprintf("stage %q requires finishing %s first", e.Stage, strings.Join(names, ", "))
}
