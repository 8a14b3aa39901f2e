package production

// Stage is one of the seven production steps a reading goes through on its
// way to a published video.
type Stage string

const (
	StageScript   Stage = "script"
	StageImages   Stage = "images"
	StageAudio    Stage = "audio"
	StageOverlay  Stage = "overlay"
	StageCaptions Stage = "captions"
	StageVideo    Stage = "video"
	StagePublish  Stage = "publish"
)

// Stages lists all stages in pipeline order.
var Stages = []Stage{
	StageScript,
	StageImages,
	StageAudio,
	StageOverlay,
	StageCaptions,
	StageVideo,
	StagePublish,
}

// IsValidStage reports whether name is a known stage.
func IsValidStage(name Stage) bool {
	for _, s := range Stages {
		if s == name {
			return true
		}
	}
	return false
}

// StageFlags records which stages have been completed for one production.
type StageFlags struct {
	Script   bool `json:"script"`
	Images   bool `json:"images"`
	Audio    bool `json:"audio"`
	Overlay  bool `json:"overlay"`
	Captions bool `json:"captions"`
	Video    bool `json:"video"`
	Publish  bool `json:"publish"`
}

// DefaultFlags returns the all-false starting state of a new production.
func DefaultFlags() StageFlags {
	return StageFlags{}
}

// Done reports whether the given stage has been completed.
func (f StageFlags) Done(stage Stage) bool {
	switch stage {
	case StageScript:
		return f.Script
	case StageImages:
		return f.Images
	case StageAudio:
		return f.Audio
	case StageOverlay:
		return f.Overlay
	case StageCaptions:
		return f.Captions
	case StageVideo:
		return f.Video
	case StagePublish:
		return f.Publish
	}
	return false
}

// MarkDone returns a copy of the flags with the given stage set.
func (f StageFlags) MarkDone(stage Stage) StageFlags {
	switch stage {
	case StageScript:
		f.Script = true
	case StageImages:
		f.Images = true
	case StageAudio:
		f.Audio = true
	case StageOverlay:
		f.Overlay = true
	case StageCaptions:
		f.Captions = true
	case StageVideo:
		f.Video = true
	case StagePublish:
		f.Publish = true
	}
	return f
}

// Merge overlays a partial flag update onto existing flags. Keys absent from
// the partial keep their existing value, so a completed stage is never
// cleared by an update that doesn't mention it. Unknown keys are ignored,
// which lets older records survive schema drift.
func Merge(existing StageFlags, partial map[string]bool) StageFlags {
	for name, v := range partial {
		stage := Stage(name)
		if !IsValidStage(stage) {
			continue
		}
		switch stage {
		case StageScript:
			existing.Script = v
		case StageImages:
			existing.Images = v
		case StageAudio:
			existing.Audio = v
		case StageOverlay:
			existing.Overlay = v
		case StageCaptions:
			existing.Captions = v
		case StageVideo:
			existing.Video = v
		case StagePublish:
			existing.Publish = v
		}
	}
	return existing
}

// CompletedCount returns how many stages are done.
func (f StageFlags) CompletedCount() int {
	n := 0
	for _, s := range Stages {
		if f.Done(s) {
			n++
		}
	}
	return n
}

// CompletionRatio returns the fraction of completed stages in [0, 1].
func CompletionRatio(f StageFlags) float64 {
	return float64(f.CompletedCount()) / float64(len(Stages))
}

// Class is the dashboard classification of a production.
type Class string

const (
	ClassPublished  Class = "published"
	ClassInProgress Class = "in_progress"
	ClassDraft      Class = "draft"
	ClassInactive   Class = "inactive"
)

// Classify maps a (flags, active) pair to exactly one dashboard class.
// Every reachable combination falls into one of the four classes:
// anything active is in progress, published-and-closed is published,
// touched-but-closed is a draft, untouched-and-closed is inactive.
func Classify(f StageFlags, active bool) Class {
	if active {
		return ClassInProgress
	}
	if f.Publish {
		return ClassPublished
	}
	if f != DefaultFlags() {
		return ClassDraft
	}
	return ClassInactive
}
