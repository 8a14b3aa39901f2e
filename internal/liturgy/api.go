// Package liturgy fetches a day's liturgical readings and normalizes them
// into a ReadingSet. The primary source is a JSON API queried by day, month
// and year; an RSS daily-readings feed can serve as a fallback.
package liturgy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

// Client fetches readings from the liturgy JSON API.
type Client struct {
	BaseURL string
	client  *http.Client
}

// NewClient creates an API client with the given timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// apiResponse mirrors the API's reading lists. Each section is an array;
// multiple entries mean alternative options for the same reading.
type apiResponse struct {
	Color    string `json:"cor"`
	DayName  string `json:"liturgia"`
	Day      string `json:"dia"`
	Readings struct {
		First  []apiReading `json:"primeiraLeitura"`
		Psalm  []apiReading `json:"salmo"`
		Second []apiReading `json:"segundaLeitura"`
		Gospel []apiReading `json:"evangelho"`
		Extras []apiReading `json:"extras"`
	} `json:"leituras"`
}

type apiReading struct {
	Kind      string `json:"tipo"`
	Title     string `json:"titulo"`
	Reference string `json:"referencia"`
	Text      string `json:"texto"`
	Refrain   string `json:"refrao"`
}

// FetchReadingSet fetches and normalizes the readings for a date.
// Returns production.ErrNotFound when the API has no liturgy for the date.
func (c *Client) FetchReadingSet(date time.Time) (*production.ReadingSet, error) {
	params := url.Values{}
	params.Set("dia", strconv.Itoa(date.Day()))
	params.Set("mes", strconv.Itoa(int(date.Month())))
	params.Set("ano", strconv.Itoa(date.Year()))

	resp, err := c.client.Get(c.BaseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("liturgy API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, production.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("liturgy API returned %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding liturgy response: %w", err)
	}

	rs := normalize(date.Format("2006-01-02"), &payload)
	if len(rs.Readings) == 0 {
		return nil, production.ErrNotFound
	}
	return rs, nil
}

// normalize flattens the API sections into liturgical order, filtering empty
// texts and labeling alternative options.
func normalize(date string, payload *apiResponse) *production.ReadingSet {
	dayName := payload.DayName
	if dayName == "" {
		dayName = payload.Day
	}
	color := payload.Color
	if color == "" {
		color = "Branco"
	}

	rs := &production.ReadingSet{Date: date, DayName: dayName, Color: color}

	appendSection(rs, payload.Readings.First, "Primeira Leitura", false)
	appendSection(rs, payload.Readings.Psalm, "Salmo Responsorial", true)
	appendSection(rs, payload.Readings.Second, "Segunda Leitura", false)
	appendSection(rs, payload.Readings.Gospel, "Evangelho", false)

	// Extras (vigil readings, blessings) carry their own kind labels.
	for _, item := range payload.Readings.Extras {
		if item.Text == "" {
			continue
		}
		kind := item.Kind
		if kind == "" {
			kind = item.Title
		}
		if kind == "" {
			kind = "Leitura Extra"
		}
		rs.Readings = append(rs.Readings, production.Reading{
			Kind:      kind,
			Title:     item.Title,
			Reference: item.Reference,
			Text:      item.Text,
		})
	}

	return rs
}

func appendSection(rs *production.ReadingSet, items []apiReading, defaultKind string, isPsalm bool) {
	for i, item := range items {
		if item.Text == "" {
			continue
		}

		kind := item.Kind
		if kind == "" || isPsalm {
			kind = defaultKind
		}
		if len(items) > 1 {
			kind += optionSuffix(item, i)
		}

		text := item.Text
		if isPsalm && item.Refrain != "" {
			text = "Refrão: " + item.Refrain + "\n\n" + text
		}

		title := item.Title
		if title == "" {
			title = kind
		}

		rs.Readings = append(rs.Readings, production.Reading{
			Kind:      kind,
			Title:     title,
			Reference: item.Reference,
			Text:      text,
		})
	}
}

// optionSuffix distinguishes alternative readings for the same slot, e.g.
// the short and long gospel forms.
func optionSuffix(item apiReading, index int) string {
	if strings.Contains(item.Reference, "Breve") || strings.Contains(item.Title, "Breve") {
		return " (Forma Breve)"
	}
	if strings.Contains(item.Reference, "Longa") || strings.Contains(item.Title, "Longa") {
		return " (Forma Longa)"
	}
	return fmt.Sprintf(" (Opção %d)", index+1)
}
