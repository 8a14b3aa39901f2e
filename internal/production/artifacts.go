package production

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/LiturgyCast/internal/captions"
)

// Artifacts holds the per-stage outputs of a production. Each stage writes
// only its own slot; slots for unfinished stages stay nil. Unknown fields in
// stored records are dropped on load, matching the flag merge semantics.
type Artifacts struct {
	Script   *ScriptArtifact   `json:"script,omitempty"`
	Images   *ImagesArtifact   `json:"images,omitempty"`
	Audio    *AudioArtifact    `json:"audio,omitempty"`
	Overlay  *OverlayStyle     `json:"overlay,omitempty"`
	Captions *CaptionsArtifact `json:"captions,omitempty"`
	Video    *VideoArtifact    `json:"video,omitempty"`
	Publish  *PublishArtifact  `json:"publish,omitempty"`
}

// ScriptArtifact is the generated narration script, in blocks.
type ScriptArtifact struct {
	Title         string `json:"title"`
	Hook          string `json:"hook"`
	Commentary    string `json:"commentary"`
	Reflection    string `json:"reflection"`
	ClosingPrayer string `json:"closing_prayer"`
}

// Narration returns the full text to be spoken, blocks joined in order.
func (s *ScriptArtifact) Narration() string {
	blocks := []string{s.Hook, s.Commentary, s.Reflection, s.ClosingPrayer}
	var parts []string
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			parts = append(parts, strings.TrimSpace(b))
		}
	}
	return strings.Join(parts, "\n\n")
}

// ImagesArtifact records the generated scene images, in display order.
type ImagesArtifact struct {
	Paths   []string `json:"paths"`
	Prompts []string `json:"prompts,omitempty"`
}

// AudioArtifact records the synthesized narration audio.
type AudioArtifact struct {
	Path        string  `json:"path"`
	DurationSec float64 `json:"duration_sec"`
	Engine      string  `json:"engine,omitempty"`
	Model       string  `json:"model,omitempty"`
	GeneratedAt string  `json:"generated_at,omitempty"`
}

// OverlayStyle is the static text overlay configuration: up to four lines
// (reading kind, date, reference, liturgical color) drawn over the video.
type OverlayStyle struct {
	Lines      []string `json:"lines"`
	Font       string   `json:"font"`
	FontSize   int      `json:"font_size"`
	PositionY  int      `json:"position_y"`
	Color      string   `json:"color"`
	Visualizer bool     `json:"visualizer"`
}

// CaptionsArtifact records the timed caption track and its display style.
type CaptionsArtifact struct {
	Enabled  bool               `json:"enabled"`
	Font     string             `json:"font,omitempty"`
	FontSize int                `json:"font_size,omitempty"`
	Color    string             `json:"color,omitempty"`
	Segments []captions.Segment `json:"segments"`
}

// VideoArtifact records the rendered video file.
type VideoArtifact struct {
	Path       string `json:"path"`
	RenderedAt string `json:"rendered_at,omitempty"`
}

// PublishArtifact records the upload result and generated metadata.
type PublishArtifact struct {
	VideoID     string `json:"video_id,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Suggestions string `json:"suggestions,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Apply writes an artifact into the slot owned by the given stage. The
// artifact's concrete type must match the stage.
func (a *Artifacts) Apply(stage Stage, artifact any) error {
	switch stage {
	case StageScript:
		v, ok := artifact.(*ScriptArtifact)
		if !ok {
			return artifactTypeError(stage, artifact)
		}
		a.Script = v
	case StageImages:
		v, ok := artifact.(*ImagesArtifact)
		if !ok {
			return artifactTypeError(stage, artifact)
		}
		a.Images = v
	case StageAudio:
		v, ok := artifact.(*AudioArtifact)
		if !ok {
			return artifactTypeError(stage, artifact)
		}
		a.Audio = v
	case StageOverlay:
		v, ok := artifact.(*OverlayStyle)
		if !ok {
			return artifactTypeError(stage, artifact)
		}
		a.Overlay = v
	case StageCaptions:
		v, ok := artifact.(*CaptionsArtifact)
		if !ok {
			return artifactTypeError(stage, artifact)
		}
		a.Captions = v
	case StageVideo:
		v, ok := artifact.(*VideoArtifact)
		if !ok {
			return artifactTypeError(stage, artifact)
		}
		a.Video = v
	case StagePublish:
		v, ok := artifact.(*PublishArtifact)
		if !ok {
			return artifactTypeError(stage, artifact)
		}
		a.Publish = v
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
	return nil
}

func artifactTypeError(stage Stage, artifact any) error {
	return fmt.Errorf("artifact type %T does not belong to stage %q", artifact, stage)
}
