// Package publish generates upload metadata for a finished video and pushes
// it to YouTube.
package publish

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/TobiSchelling/LiturgyCast/internal/llm"
	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

const metadataPrompt = `You optimize YouTube Shorts metadata for a channel that narrates the daily Catholic liturgy. Given the video script below, propose metadata in the language of the script.

SCRIPT TITLE: %s
SCRIPT:
%s

Respond with ONLY this JSON:
{
    "title": "video title under 90 characters, ending with #shorts",
    "description": "2-3 sentence description followed by 5-8 hashtags",
    "suggestions": "one short tip to improve this video's reach"
}`

// Metadata is the generated upload metadata.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Suggestions string `json:"suggestions"`
}

// SuggestMetadata asks the LLM for a title and description fitted to the
// script. Falls back to the script's own title when no provider is
// configured.
func SuggestMetadata(ctx context.Context, provider llm.Provider, script *production.ScriptArtifact, maxTokens int) (*Metadata, error) {
	if provider == nil || !provider.IsConfigured() {
		return fallbackMetadata(script), nil
	}

	prompt := fmt.Sprintf(metadataPrompt, script.Title, script.Narration())
	response, err := provider.Generate(ctx, prompt, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating upload metadata: %w", err)
	}

	var md Metadata
	if err := llm.DecodeJSONResponse(response, &md); err != nil {
		return nil, err
	}
	if strings.TrimSpace(md.Title) == "" {
		return fallbackMetadata(script), nil
	}
	return &md, nil
}

func fallbackMetadata(script *production.ScriptArtifact) *Metadata {
	title := strings.TrimSpace(script.Title)
	if title == "" {
		title = "Liturgia Diária"
	}
	if !strings.Contains(strings.ToLower(title), "#shorts") {
		title += " #shorts"
	}
	return &Metadata{
		Title:       title,
		Description: strings.TrimSpace(script.Hook) + "\n\n#liturgia #evangelho #shorts",
	}
}

// Credentials carries the OAuth app and refresh token for the channel.
// These normally come from environment variables so they stay out of the
// config file.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// CredentialsFromEnv reads YT_CLIENT_ID, YT_CLIENT_SECRET and
// YT_REFRESH_TOKEN.
func CredentialsFromEnv() Credentials {
	return Credentials{
		ClientID:     os.Getenv("YT_CLIENT_ID"),
		ClientSecret: os.Getenv("YT_CLIENT_SECRET"),
		RefreshToken: os.Getenv("YT_REFRESH_TOKEN"),
	}
}

func (c Credentials) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Uploader pushes videos to YouTube.
type Uploader struct {
	Creds             Credentials
	Privacy           string
	CategoryID        string
	Language          string
	MadeForKids       bool
	NotifySubscribers bool
}

// Upload sends the video file and returns the resulting artifact. The
// metadata's suggestions ride along in the artifact for the dashboard.
func (u *Uploader) Upload(ctx context.Context, videoPath string, md *Metadata) (*production.PublishArtifact, error) {
	if !u.Creds.complete() {
		return nil, fmt.Errorf("YouTube credentials not configured (set YT_CLIENT_ID, YT_CLIENT_SECRET, YT_REFRESH_TOKEN)")
	}

	file, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("opening video: %w", err)
	}
	defer file.Close()

	oauthConfig := &oauth2.Config{
		ClientID:     u.Creds.ClientID,
		ClientSecret: u.Creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		Scopes: []string{youtube.YoutubeUploadScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: u.Creds.RefreshToken})

	service, err := youtube.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("creating YouTube client: %w", err)
	}

	privacy := u.Privacy
	if privacy == "" {
		privacy = "private"
	}
	categoryID := u.CategoryID
	if categoryID == "" {
		categoryID = "22"
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                md.Title,
			Description:          md.Description,
			CategoryId:           categoryID,
			DefaultLanguage:      u.Language,
			DefaultAudioLanguage: u.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: u.MadeForKids,
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video).
		NotifySubscribers(u.NotifySubscribers).
		Media(file)

	uploaded, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("uploading video: %w", err)
	}

	return &production.PublishArtifact{
		VideoID:     uploaded.Id,
		VideoURL:    "https://youtube.com/shorts/" + uploaded.Id,
		Title:       md.Title,
		Description: md.Description,
		Suggestions: md.Suggestions,
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
