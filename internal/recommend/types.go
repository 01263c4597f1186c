// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import "time"

// MediaType classifies a title.
type MediaType string

const (
	MediaMovie   MediaType = "movie"
	MediaTV      MediaType = "tv"
	MediaAnime   MediaType = "anime"
	MediaCartoon MediaType = "cartoon"
)

// CatalogType maps a media type onto the catalog's two namespaces.
// Anime and cartoons are catalogued as tv.
func (m MediaType) CatalogType() MediaType {
	if m == MediaMovie {
		return MediaMovie
	}
	return MediaTV
}

// Valid reports whether m is a known media type.
func (m MediaType) Valid() bool {
	switch m {
	case MediaMovie, MediaTV, MediaAnime, MediaCartoon:
		return true
	}
	return false
}

// Status is the user's watch status for a title.
type Status string

const (
	StatusPlanned  Status = "planned"
	StatusWatching Status = "watching"
	StatusWatched  Status = "watched"
	StatusDropped  Status = "dropped"
)

// Source records where an interaction came from; it scales trust.
type Source string

const (
	SourceManual         Source = "manual"
	SourceOnboarding     Source = "onboarding"
	SourceImport         Source = "import"
	SourceRecommendation Source = "recommendation"
)

// Verdict is the user's reaction to a recommended item.
type Verdict string

const (
	VerdictLike    Verdict = "like"
	VerdictDislike Verdict = "dislike"
	VerdictWatched Verdict = "watched"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	return v == VerdictLike || v == VerdictDislike || v == VerdictWatched
}

// ExternalMetadata holds optional catalog-derived fields. Any field may be
// empty; absence is never an error.
type ExternalMetadata struct {
	Keywords   []string `json:"keywords,omitempty"`
	Collection string   `json:"collection,omitempty"`
	AgeRating  string   `json:"ageRating,omitempty"`
	Cast       []string `json:"cast,omitempty"`
	Directors  []string `json:"directors,omitempty"`
	Writers    []string `json:"writers,omitempty"`
}

// Title is a locally stored catalog entry and the unit that gets scored.
type Title struct {
	ID               string            `json:"id"`
	ExternalID       int64             `json:"externalId"`
	MediaType        MediaType         `json:"mediaType"`
	OriginalTitle    string            `json:"originalTitle"`
	DisplayTitle     string            `json:"displayTitle,omitempty"`
	Overview         string            `json:"overview,omitempty"`
	Year             int               `json:"year,omitempty"`    // 0 = unknown
	Runtime          int               `json:"runtime,omitempty"` // minutes, 0 = unknown
	Rating           *float64          `json:"rating,omitempty"`
	Popularity       *float64          `json:"popularity,omitempty"`
	Genres           []string          `json:"genres,omitempty"`
	Countries        []string          `json:"countries,omitempty"`
	OriginalLanguage string            `json:"originalLanguage,omitempty"`
	Adult            bool              `json:"adult,omitempty"`
	Metadata         *ExternalMetadata `json:"metadata,omitempty"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Label is the human facing name: the display title when known.
func (t *Title) Label() string {
	if t.DisplayTitle != "" {
		return t.DisplayTitle
	}
	return t.OriginalTitle
}

// Interaction is one user/title state record joined with its title.
type Interaction struct {
	UserID          string    `json:"userId"`
	TitleID         string    `json:"titleId"`
	Status          Status    `json:"status"`
	Liked           bool      `json:"liked"`
	Disliked        bool      `json:"disliked"`
	Source          Source    `json:"source"`
	LastInteraction time.Time `json:"lastInteraction"`
	Title           Title     `json:"title"`
}

// UserTitleState is the mutable per-user state for one title.
type UserTitleState struct {
	UserID          string    `json:"userId"`
	TitleID         string    `json:"titleId"`
	Status          Status    `json:"status"`
	Liked           bool      `json:"liked"`
	Disliked        bool      `json:"disliked"`
	Source          Source    `json:"source"`
	LastInteraction time.Time `json:"lastInteraction"`
}

// Overrides multiply individual signal weights when positive.
type Overrides struct {
	Genre   float64 `json:"genre,omitempty"`
	Mood    float64 `json:"mood,omitempty"`
	Novelty float64 `json:"novelty,omitempty"`
	Decade  float64 `json:"decade,omitempty"`
	Country float64 `json:"country,omitempty"`
	People  float64 `json:"people,omitempty"`
}

// Context is the momentary request state, distinct from the durable profile.
// Empty strings mean "not specified".
type Context struct {
	Mood           string    `json:"mood,omitempty"`    // light, neutral, heavy
	Mindset        string    `json:"mindset,omitempty"` // focus, relax, ...
	Company        string    `json:"company,omitempty"` // solo, duo, friends, family
	TimeAvailable  int       `json:"timeAvailable,omitempty"`
	NoveltyBias    string    `json:"noveltyBias,omitempty"` // safe, mix, surprise
	Pace           string    `json:"pace,omitempty"`        // calm, balanced, dynamic
	Freshness      string    `json:"freshness,omitempty"`   // classic, fresh, any
	DiversityLevel string    `json:"diversityLevel,omitempty"`
	TimeOfDay      string    `json:"timeOfDay,omitempty"` // late_night, morning, day, evening
	DayOfWeek      string    `json:"dayOfWeek,omitempty"` // weekday, weekend
	Overrides      Overrides `json:"overrides,omitempty"`
}

// HasGroupCompany reports whether a group profile applies.
func (c Context) HasGroupCompany() bool {
	return c.Company != "" && c.Company != "solo"
}

// Signals is the named breakdown of a candidate's score.
type Signals map[string]float64

// ScoredTitle is one candidate after scoring.
type ScoredTitle struct {
	Title   Title    `json:"title"`
	Score   float64  `json:"score"`
	Signals Signals  `json:"signals"`
	Reasons []string `json:"reasons,omitempty"`
}

// Recommendation is a ranked, explained item.
type Recommendation struct {
	Title       Title    `json:"title"`
	Score       float64  `json:"score"`
	Signals     Signals  `json:"signals"`
	Explanation []string `json:"explanation"`
}

// Session is one served recommendation request.
type Session struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Context    Context     `json:"context"`
	Variant    string      `json:"variant"`
	Experiment *Assignment `json:"experiment,omitempty"`
	Mode       string      `json:"mode,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// SignalPayload is the persisted, client-visible form of a signal map.
type SignalPayload struct {
	Values    Signals        `json:"values"`
	TopKeys   []string       `json:"topKeys"`
	TopGroups map[string]int `json:"topGroups"`
}

// SessionItem is one title served within a session. Items are never deleted;
// superseded items are flagged Replaced.
type SessionItem struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId"`
	TitleID   string        `json:"titleId"`
	Rank      int           `json:"rank"`
	Score     float64       `json:"score"`
	Signals   SignalPayload `json:"signals"`
	Role      string        `json:"role,omitempty"`
	Replaced  bool          `json:"replaced"`
	CreatedAt time.Time     `json:"createdAt"`
}

// FeedbackEvent is an append-only record of a user's reaction.
type FeedbackEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TitleID   string    `json:"titleId"`
	Value     int       `json:"value"` // +1 like/watched, -1 dislike
	Verdict   Verdict   `json:"verdict"`
	Context   string    `json:"context"`
	SessionID string    `json:"sessionId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedbackContextCard marks feedback given on a recommendation card.
const FeedbackContextCard = "recommendation_card"

// ExperimentVariant carries the context defaults applied by a variant.
type ExperimentVariant struct {
	DiversityLevel string `json:"diversityLevel,omitempty"`
	NoveltyBias    string `json:"noveltyBias,omitempty"`
}

// Experiment is an experiment definition.
type Experiment struct {
	Key      string                       `json:"key"`
	Active   bool                         `json:"active"`
	Variants map[string]ExperimentVariant `json:"variants"`
	// Invalid is set by stores when the stored config could not be parsed.
	Invalid bool `json:"-"`
}

// Assignment is a user's resolved experiment variant.
type Assignment struct {
	ExperimentKey string            `json:"experimentKey"`
	VariantKey    string            `json:"variantKey"`
	Config        ExperimentVariant `json:"config"`
}

// SnapshotKind distinguishes snapshot lists.
type SnapshotKind string

const (
	SnapshotTrending SnapshotKind = "trending"
	SnapshotPopular  SnapshotKind = "popular"
)

// SnapshotEntry is one row of a periodic catalog snapshot.
type SnapshotEntry struct {
	ExternalID int64     `json:"externalId"`
	MediaType  MediaType `json:"mediaType"`
	Score      float64   `json:"score"`
}

// CatalogItem is a lightweight catalog search/list result.
type CatalogItem struct {
	ExternalID  int64     `json:"externalId"`
	MediaType   MediaType `json:"mediaType"`
	Title       string    `json:"title"`
	Popularity  float64   `json:"popularity"`
	VoteAverage float64   `json:"voteAverage"`
}

// Seed is an external reference awaiting resolution to a local Title.
type Seed struct {
	ExternalID int64
	MediaType  MediaType
	Source     string
}
