package storefront

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/agentstation/gamesync/internal/utils/ptr"
	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
)

// AppData is the part of an appdetails payload the jobs read.
type AppData struct {
	Name                string          `json:"name"`
	IsFree              bool            `json:"is_free"`
	ShortDescription    string          `json:"short_description"`
	DetailedDescription string          `json:"detailed_description"`
	HeaderImage         string          `json:"header_image"`
	Website             string          `json:"website"`
	Developers          []string        `json:"developers"`
	Publishers          []string        `json:"publishers"`
	Genres              []Description   `json:"genres"`
	Categories          []Description   `json:"categories"`
	PriceOverview       PriceOverview   `json:"price_overview"`
	Metacritic          Metacritic      `json:"metacritic"`
	Recommendations     Recommendations `json:"recommendations"`
	Achievements        Achievements    `json:"achievements"`
	ReleaseDate         ReleaseDate     `json:"release_date"`

	// PCRequirements is an object for most apps and an empty list for some.
	PCRequirements json.RawMessage `json:"pc_requirements"`
}

// Description is a genre or category entry.
type Description struct {
	ID          json.RawMessage `json:"id"`
	Description string          `json:"description"`
}

// PriceOverview holds prices in cents.
type PriceOverview struct {
	Initial         int64 `json:"initial"`
	Final           int64 `json:"final"`
	DiscountPercent int   `json:"discount_percent"`
}

// Metacritic holds the critic score.
type Metacritic struct {
	Score int `json:"score"`
}

// Recommendations holds the review count.
type Recommendations struct {
	Total int64 `json:"total"`
}

// Achievements holds the achievement count and the highlighted ones.
type Achievements struct {
	Total       int `json:"total"`
	Highlighted []struct {
		Name string `json:"name"`
	} `json:"highlighted"`
}

// ReleaseDate is the localized release date.
type ReleaseDate struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"`
}

// MinimumRequirements returns the cleaned minimum PC requirements, or "" when
// the payload has none.
func (d *AppData) MinimumRequirements() string {
	var req struct {
		Minimum string `json:"minimum"`
	}
	if len(d.PCRequirements) == 0 || d.PCRequirements[0] != '{' {
		return ""
	}
	if err := json.Unmarshal(d.PCRequirements, &req); err != nil {
		return ""
	}
	return CleanHTML(req.Minimum)
}

type appDetailsEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// AppDetails fetches the details payload for id. It returns an error
// matching errors.ErrUnavailable when the storefront reports no data.
func (c *Client) AppDetails(ctx context.Context, id int64) (*AppData, error) {
	params := map[string]string{
		"appids": strconv.FormatInt(id, 10),
		"cc":     c.opts.CountryCode,
		"l":      c.opts.Language,
	}

	var body map[string]appDetailsEnvelope
	if err := c.getJSON(ctx, id, "/api/appdetails/", params, &body); err != nil {
		return nil, err
	}

	env, ok := body[strconv.FormatInt(id, 10)]
	if !ok || !env.Success || len(env.Data) == 0 {
		return nil, &errors.UpstreamError{
			Service: service,
			ID:      id,
			Message: "no details available",
			Err:     errors.ErrUnavailable,
		}
	}

	var data AppData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &errors.UpstreamError{
			Service:    service,
			ID:         id,
			StatusCode: 200,
			Message:    "invalid details payload: " + err.Error(),
			Err:        err,
		}
	}
	return &data, nil
}

// GameDocument is one line of the games store.
type GameDocument struct {
	SteamID              int64    `json:"steam_id"`
	Name                 string   `json:"name"`
	ScrapedAt            string   `json:"scraped_at"`
	PriceEUR             float64  `json:"price_eur"`
	PriceInitialEUR      float64  `json:"price_initial_eur"`
	DiscountPct          int      `json:"discount_pct"`
	MetacriticScore      int      `json:"metacritic_score"`
	RecommendationsTotal int64    `json:"recommendations_total"`
	AchievementsCount    int      `json:"achievements_count"`
	IsFree               bool     `json:"is_free"`
	Genres               []string `json:"genres"`
	Categories           []string `json:"categories"`
	Developers           []string `json:"developers"`
	Publishers           []string `json:"publishers"`
	AchievementsList     []string `json:"achievements_list"`
	ShortDescription     string   `json:"short_description"`
	DetailedDescription  string   `json:"detailed_description"`
	PCRequirementsMin    string   `json:"pc_requirements_min"`
	ReleaseDateText      string   `json:"release_date_text"`
	ReleaseDate          *string  `json:"release_date"`
	HeaderImage          *string  `json:"header_image"`
	Website              *string  `json:"website"`
}

// NewGameDocument flattens a details payload. Free games report zero prices
// whatever the payload says.
func NewGameDocument(id int64, d *AppData, scrapedAt time.Time) *GameDocument {
	doc := &GameDocument{
		SteamID:              id,
		Name:                 d.Name,
		ScrapedAt:            scrapedAt.UTC().Format(constants.TimeFormatScraped),
		MetacriticScore:      d.Metacritic.Score,
		RecommendationsTotal: d.Recommendations.Total,
		AchievementsCount:    d.Achievements.Total,
		IsFree:               d.IsFree,
		Genres:               descriptions(d.Genres),
		Categories:           descriptions(d.Categories),
		Developers:           nonNil(d.Developers),
		Publishers:           nonNil(d.Publishers),
		AchievementsList:     make([]string, 0, len(d.Achievements.Highlighted)),
		ShortDescription:     CleanHTML(d.ShortDescription),
		DetailedDescription:  CleanHTML(d.DetailedDescription),
		PCRequirementsMin:    d.MinimumRequirements(),
		ReleaseDateText:      d.ReleaseDate.Date,
		HeaderImage:          ptr.NonEmpty(d.HeaderImage),
		Website:              ptr.NonEmpty(d.Website),
	}
	if !d.IsFree {
		doc.PriceEUR = float64(d.PriceOverview.Final) / 100
		doc.PriceInitialEUR = float64(d.PriceOverview.Initial) / 100
		doc.DiscountPct = d.PriceOverview.DiscountPercent
	}
	for _, a := range d.Achievements.Highlighted {
		doc.AchievementsList = append(doc.AchievementsList, a.Name)
	}
	if iso, ok := NormalizeDate(d.ReleaseDate.Date); ok {
		doc.ReleaseDate = ptr.To(iso)
	}
	return doc
}

// DescriptionDocument is one line of the raw description store.
type DescriptionDocument struct {
	SteamID             int64  `json:"steam_id"`
	Name                string `json:"name"`
	DetailedDescription string `json:"detailed_description"`
}

// NewDescriptionDocument returns the cleaned description of a payload, or
// false when the description is empty once markup is removed.
func NewDescriptionDocument(id int64, d *AppData) (*DescriptionDocument, bool) {
	desc := CleanHTML(d.DetailedDescription)
	if desc == "" {
		return nil, false
	}
	return &DescriptionDocument{SteamID: id, Name: d.Name, DetailedDescription: desc}, true
}

// Record converts the document to a store record.
func (d *GameDocument) Record() (*catalog.Record, error) { return catalog.FromValue(d) }

// Record converts the document to a store record.
func (d *DescriptionDocument) Record() (*catalog.Record, error) { return catalog.FromValue(d) }

func descriptions(in []Description) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		out = append(out, d.Description)
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
