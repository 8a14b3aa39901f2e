// Package pipeline orchestrates the production flow: readings in, published
// video out. Each stage runner produces the stage's artifact and records the
// completion through the same gate the dashboard uses, so progress can never
// get ahead of its prerequisites no matter where the request came from.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/TobiSchelling/LiturgyCast/internal/captions"
	"github.com/TobiSchelling/LiturgyCast/internal/config"
	"github.com/TobiSchelling/LiturgyCast/internal/database"
	"github.com/TobiSchelling/LiturgyCast/internal/images"
	"github.com/TobiSchelling/LiturgyCast/internal/liturgy"
	"github.com/TobiSchelling/LiturgyCast/internal/llm"
	"github.com/TobiSchelling/LiturgyCast/internal/production"
	"github.com/TobiSchelling/LiturgyCast/internal/publish"
	"github.com/TobiSchelling/LiturgyCast/internal/render"
	"github.com/TobiSchelling/LiturgyCast/internal/script"
	"github.com/TobiSchelling/LiturgyCast/internal/tts"
)

// Pipeline wires the stage runners to storage and the external tools.
type Pipeline struct {
	DB       *database.DB
	Config   *config.Config
	Machine  production.Machine
	Provider llm.Provider

	// Progress, when set, receives render progress lines.
	Progress func(line string)
}

// New builds a pipeline from config. The LLM provider may come back
// unconfigured; stage runners that need it report that when invoked.
func New(db *database.DB, cfg *config.Config) *Pipeline {
	provider := llm.CreateProvider(
		cfg.Script.Provider,
		cfg.Script.Model,
		cfg.Script.OllamaURL,
		cfg.Script.CompatModel,
		cfg.Script.CompatBaseURL,
		cfg.Script.APIKeyEnv,
	)
	return &Pipeline{
		DB:       db,
		Config:   cfg,
		Machine:  production.Machine{CaptionsRequired: cfg.Captions.Required},
		Provider: provider,
	}
}

// workDir returns the per-production scratch and output directory.
func (p *Pipeline) workDir(key string) string {
	return filepath.Join(p.Config.GetDataDir(), "productions", key)
}

// FetchReadings returns the readings for a date, from cache when possible.
// Fresh fetches go through the JSON API first and fall back to the RSS feed
// when one is configured. Successful fetches are cached.
func (p *Pipeline) FetchReadings(ctx context.Context, date time.Time) (*production.ReadingSet, error) {
	dateStr := date.Format("2006-01-02")

	cached, err := p.DB.GetReadingSet(dateStr)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	timeout := time.Duration(p.Config.Liturgy.TimeoutSec) * time.Second
	client := liturgy.NewClient(p.Config.Liturgy.APIBaseURL, timeout)

	rs, err := client.FetchReadingSet(date)
	if err != nil && p.Config.Liturgy.FeedURL != "" {
		log.Printf("Liturgy API failed for %s, trying feed: %v", dateStr, err)
		feed := liturgy.NewFeedSource(p.Config.Liturgy.FeedURL, timeout)
		rs, err = feed.FetchReadingSet(date)
	}
	if err != nil {
		return nil, err
	}

	if err := p.DB.PutReadingSet(rs); err != nil {
		return nil, fmt.Errorf("caching readings: %w", err)
	}
	return rs, nil
}

// SelectForWork opens a production for a date and reading kind, creating the
// record with default progress on first selection. Selecting an existing
// production just reactivates it; progress is never reset here.
func (p *Pipeline) SelectForWork(date, kind string) (*production.ProductionStatus, error) {
	key := production.MakeKey(date, kind)

	st, err := p.DB.GetStatus(key)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &production.ProductionStatus{
			Key:   key,
			Date:  date,
			Kind:  kind,
			Flags: production.DefaultFlags(),
		}
	}
	st.Active = true
	if err := p.DB.PutStatus(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Status returns the stored status for a key, or production.ErrNotFound.
func (p *Pipeline) Status(key string) (*production.ProductionStatus, error) {
	st, err := p.DB.GetStatus(key)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, production.ErrNotFound
	}
	return st, nil
}

// CompleteStage records a finished stage with its artifact. The stage must be
// reachable from the current flags; otherwise the stored record is left
// untouched and a *production.StagePreconditionError is returned.
func (p *Pipeline) CompleteStage(key string, stage production.Stage, artifact any) (*production.ProductionStatus, error) {
	if !production.IsValidStage(stage) {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}

	st, err := p.Status(key)
	if err != nil {
		return nil, err
	}

	if !p.Machine.CanEnter(stage, st.Flags) {
		return nil, &production.StagePreconditionError{
			Stage:   stage,
			Missing: p.Machine.MissingFor(stage, st.Flags),
		}
	}

	if err := st.Artifacts.Apply(stage, artifact); err != nil {
		return nil, err
	}
	st.Flags = st.Flags.MarkDone(stage)
	st.Active = true

	if err := p.DB.PutStatus(st); err != nil {
		return nil, err
	}
	return st, nil
}

// UpdateFlags merges a partial flag update into the stored record. Stages
// absent from the update keep their value; unknown names are ignored.
func (p *Pipeline) UpdateFlags(key string, partial map[string]bool) (*production.ProductionStatus, error) {
	st, err := p.Status(key)
	if err != nil {
		return nil, err
	}
	st.Flags = production.Merge(st.Flags, partial)
	if err := p.DB.PutStatus(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Deactivate closes a production without touching its progress.
func (p *Pipeline) Deactivate(key string) error {
	st, err := p.Status(key)
	if err != nil {
		return err
	}
	st.Active = false
	return p.DB.PutStatus(st)
}

// Reset discards a production record entirely. The reading cache is kept.
func (p *Pipeline) Reset(key string) error {
	return p.DB.DeleteStatus(key)
}

// RunScript generates the narration script for a production.
func (p *Pipeline) RunScript(ctx context.Context, key string) (*production.ProductionStatus, error) {
	st, err := p.Status(key)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", st.Date)
	if err != nil {
		return nil, fmt.Errorf("production %s has invalid date %q", key, st.Date)
	}
	rs, err := p.FetchReadings(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetching readings for %s: %w", st.Date, err)
	}

	gen := script.NewGenerator(p.Provider, p.Config.Script.MaxTokens)
	artifact, err := gen.Generate(ctx, rs, st.Kind)
	if err != nil {
		return nil, err
	}
	return p.CompleteStage(key, production.StageScript, artifact)
}

// RunImages generates the scene images from the script.
func (p *Pipeline) RunImages(ctx context.Context, key string) (*production.ProductionStatus, error) {
	st, err := p.Status(key)
	if err != nil {
		return nil, err
	}
	if st.Artifacts.Script == nil {
		return nil, &production.StagePreconditionError{
			Stage:   production.StageImages,
			Missing: []production.Stage{production.StageScript},
		}
	}

	prompts := script.ImagePrompts(st.Artifacts.Script, p.Config.Images.Count)
	client := images.NewClient(p.Config.Images.BaseURL, p.Config.Images.Model)
	paths, err := client.GenerateToDir(ctx, prompts, p.Config.Images.AspectRatio, filepath.Join(p.workDir(key), "images"))
	if err != nil {
		return nil, err
	}

	return p.CompleteStage(key, production.StageImages, &production.ImagesArtifact{
		Paths:   paths,
		Prompts: prompts,
	})
}

// RunAudio synthesizes the narration audio from the script.
func (p *Pipeline) RunAudio(ctx context.Context, key string) (*production.ProductionStatus, error) {
	st, err := p.Status(key)
	if err != nil {
		return nil, err
	}
	if st.Artifacts.Script == nil {
		return nil, &production.StagePreconditionError{
			Stage:   production.StageAudio,
			Missing: []production.Stage{production.StageScript},
		}
	}

	engine := tts.NewEngine(p.Config.TTS.Binary, p.Config.TTS.ModelPath)
	if err := engine.Verify(); err != nil {
		return nil, err
	}

	outPath := filepath.Join(p.workDir(key), "narration.wav")
	duration, err := engine.Synthesize(ctx, st.Artifacts.Script.Narration(), outPath)
	if err != nil {
		return nil, err
	}

	return p.CompleteStage(key, production.StageAudio, &production.AudioArtifact{
		Path:        outPath,
		DurationSec: duration,
		Engine:      "piper",
		Model:       filepath.Base(p.Config.TTS.ModelPath),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// ConfigureOverlay records the overlay style for a production. A nil style
// gets the configured defaults with lines derived from the reading.
func (p *Pipeline) ConfigureOverlay(ctx context.Context, key string, style *production.OverlayStyle) (*production.ProductionStatus, error) {
	if style == nil {
		st, err := p.Status(key)
		if err != nil {
			return nil, err
		}
		style = p.defaultOverlay(ctx, st)
	}
	return p.CompleteStage(key, production.StageOverlay, style)
}

func (p *Pipeline) defaultOverlay(ctx context.Context, st *production.ProductionStatus) *production.OverlayStyle {
	lines := []string{st.Kind, database.FormatDateDisplay(st.Date)}
	if date, err := time.Parse("2006-01-02", st.Date); err == nil {
		if rs, err := p.FetchReadings(ctx, date); err == nil {
			if r := rs.FindReading(st.Kind); r != nil && r.Reference != "" {
				lines = append(lines, r.Reference)
			}
			if rs.Color != "" {
				lines = append(lines, rs.Color)
			}
		}
	}

	o := p.Config.Overlay
	return &production.OverlayStyle{
		Lines:      lines,
		Font:       o.Font,
		FontSize:   o.FontSize,
		PositionY:  o.PositionY,
		Color:      o.Color,
		Visualizer: o.Visualizer,
	}
}

// RunCaptions times the narration text against the audio duration.
func (p *Pipeline) RunCaptions(ctx context.Context, key string) (*production.ProductionStatus, error) {
	st, err := p.Status(key)
	if err != nil {
		return nil, err
	}
	missing := missingArtifacts(st, production.StageCaptions)
	if len(missing) > 0 {
		return nil, &production.StagePreconditionError{Stage: production.StageCaptions, Missing: missing}
	}

	segments, err := captions.Synchronize(
		st.Artifacts.Script.Narration(),
		st.Artifacts.Audio.DurationSec,
		p.Config.Captions.MaxWordsPerSegment,
	)
	if err != nil {
		return nil, err
	}

	c := p.Config.Captions
	return p.CompleteStage(key, production.StageCaptions, &production.CaptionsArtifact{
		Enabled:  true,
		Font:     c.Font,
		FontSize: c.FontSize,
		Color:    c.Color,
		Segments: segments,
	})
}

// RunVideo renders the final video from the accumulated artifacts.
func (p *Pipeline) RunVideo(ctx context.Context, key string) (*production.ProductionStatus, error) {
	st, err := p.Status(key)
	if err != nil {
		return nil, err
	}
	missing := missingArtifacts(st, production.StageVideo)
	if len(missing) > 0 {
		return nil, &production.StagePreconditionError{Stage: production.StageVideo, Missing: missing}
	}

	r := render.NewRenderer(render.Options{
		FPS:          p.Config.Render.FPS,
		Width:        p.Config.Render.Width,
		Height:       p.Config.Render.Height,
		AudioBitrate: p.Config.Render.AudioBitrate,
	})
	r.Progress = p.Progress

	outPath := filepath.Join(p.workDir(key), "video.mp4")
	err = r.Render(ctx, render.Input{
		ImagePaths:  st.Artifacts.Images.Paths,
		AudioPath:   st.Artifacts.Audio.Path,
		DurationSec: st.Artifacts.Audio.DurationSec,
		Overlay:     st.Artifacts.Overlay,
		Captions:    st.Artifacts.Captions,
		WorkDir:     filepath.Join(p.workDir(key), "render"),
		OutPath:     outPath,
	})
	if err != nil {
		return nil, err
	}

	return p.CompleteStage(key, production.StageVideo, &production.VideoArtifact{
		Path:       outPath,
		RenderedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// RunPublish generates upload metadata and pushes the video to YouTube.
func (p *Pipeline) RunPublish(ctx context.Context, key string) (*production.ProductionStatus, error) {
	st, err := p.Status(key)
	if err != nil {
		return nil, err
	}
	missing := missingArtifacts(st, production.StagePublish)
	if len(missing) > 0 {
		return nil, &production.StagePreconditionError{Stage: production.StagePublish, Missing: missing}
	}

	md, err := publish.SuggestMetadata(ctx, p.Provider, st.Artifacts.Script, p.Config.Script.MaxTokens)
	if err != nil {
		return nil, err
	}

	uploader := &publish.Uploader{
		Creds:             publish.CredentialsFromEnv(),
		Privacy:           p.Config.Upload.Privacy,
		CategoryID:        p.Config.Upload.CategoryID,
		Language:          p.Config.Upload.Language,
		MadeForKids:       p.Config.Upload.MadeForKids,
		NotifySubscribers: p.Config.Upload.NotifySubscribers,
	}
	artifact, err := uploader.Upload(ctx, st.Artifacts.Video.Path, md)
	if err != nil {
		return nil, err
	}

	st, err = p.CompleteStage(key, production.StagePublish, artifact)
	if err != nil {
		return nil, err
	}

	// A published production leaves the active queue.
	if err := p.Deactivate(key); err != nil {
		return nil, err
	}
	return p.Status(key)
}

// missingArtifacts checks the stage gate against the artifacts actually on
// hand, not only the flags. A flag set without its artifact (a reset record
// edited by hand) still blocks the stage.
func missingArtifacts(st *production.ProductionStatus, stage production.Stage) []production.Stage {
	need := map[production.Stage]bool{}
	switch stage {
	case production.StageCaptions, production.StageOverlay:
		need[production.StageScript] = true
		need[production.StageImages] = true
		need[production.StageAudio] = true
	case production.StageVideo:
		need[production.StageScript] = true
		need[production.StageImages] = true
		need[production.StageAudio] = true
		need[production.StageOverlay] = true
	case production.StagePublish:
		need[production.StageVideo] = true
	}

	var missing []production.Stage
	for _, s := range production.Stages {
		if !need[s] {
			continue
		}
		present := false
		switch s {
		case production.StageScript:
			present = st.Artifacts.Script != nil
		case production.StageImages:
			present = st.Artifacts.Images != nil && len(st.Artifacts.Images.Paths) > 0
		case production.StageAudio:
			present = st.Artifacts.Audio != nil
		case production.StageOverlay:
			present = st.Artifacts.Overlay != nil
		case production.StageVideo:
			present = st.Artifacts.Video != nil
		}
		if !present || !st.Flags.Done(s) {
			missing = append(missing, s)
		}
	}
	return missing
}

// StepResult is one step's outcome in a full run.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Run executes every remaining stage for a production in order, stopping at
// the first failure. Already-completed stages are skipped.
func (p *Pipeline) Run(ctx context.Context, key string) []StepResult {
	type step struct {
		stage production.Stage
		run   func(context.Context, string) (*production.ProductionStatus, error)
	}
	steps := []step{
		{production.StageScript, p.RunScript},
		{production.StageImages, p.RunImages},
		{production.StageAudio, p.RunAudio},
		{production.StageOverlay, func(ctx context.Context, key string) (*production.ProductionStatus, error) {
			return p.ConfigureOverlay(ctx, key, nil)
		}},
		{production.StageCaptions, p.RunCaptions},
		{production.StageVideo, p.RunVideo},
		{production.StagePublish, p.RunPublish},
	}

	var results []StepResult
	for _, s := range steps {
		st, err := p.Status(key)
		if err != nil {
			results = append(results, StepResult{Name: string(s.stage), Err: err})
			return results
		}
		if st.Flags.Done(s.stage) {
			results = append(results, StepResult{Name: string(s.stage), Summary: "already done"})
			continue
		}
		if s.stage == production.StageCaptions && !p.Machine.CaptionsRequired {
			results = append(results, StepResult{Name: string(s.stage), Summary: "skipped (not required)"})
			continue
		}

		log.Printf("Running stage %s for %s", s.stage, key)
		updated, err := s.run(ctx, key)
		if err != nil {
			results = append(results, StepResult{Name: string(s.stage), Err: err})
			return results
		}
		results = append(results, StepResult{
			Name:    string(s.stage),
			Summary: fmt.Sprintf("%d/%d stages done", updated.Flags.CompletedCount(), len(production.Stages)),
		})
	}
	return results
}

// IsPreconditionError reports whether err is a stage gating failure, which
// the server maps to a client error rather than a server error.
func IsPreconditionError(err error) bool {
	var precond *production.StagePreconditionError
	return errors.As(err, &precond)
}
