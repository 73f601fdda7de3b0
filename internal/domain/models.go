package domain

import (
	"sort"
	"strings"
	"time"
)

// Identity is what the identity provider vouches for after sign-in.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Provider    string
	AuthTime    time.Time
}

// Question models a multiple choice practice question. Title doubles as its identifier.
type Question struct {
	Title         string   `json:"title"`
	Language      string   `json:"language,omitempty"`
	Topic         string   `json:"topic,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Description   string   `json:"description,omitempty"`
	Code          string   `json:"code,omitempty"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Playlist is a fixed, named grouping of questions.
type Playlist struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Count    int    `json:"count"`
	Language string `json:"language,omitempty"`
	Topic    string `json:"topic,omitempty"`
}

// Matches reports whether the question belongs to the playlist.
func (p Playlist) Matches(q Question) bool {
	if p.Language != "" && !strings.EqualFold(p.Language, q.Language) {
		return false
	}
	if p.Topic != "" && !strings.EqualFold(p.Topic, q.Topic) {
		return false
	}
	return true
}

type Settings struct {
	ShowAvatar bool `json:"showAvatar"`
}

type Socials struct {
	GitHub   string `json:"github"`
	LinkedIn string `json:"linkedin"`
	Twitter  string `json:"twitter"`
}

// Stats holds the rolling counters used for ranking and progress.
type Stats struct {
	TotalCompleted int            `json:"totalCompleted"`
	CorrectCount   int            `json:"correctCount"`
	IncorrectCount int            `json:"incorrectCount"`
	Languages      map[string]int `json:"languages"`
	Topics         map[string]int `json:"topics"`
}

// UserAggregate is the per-user document. Only the owning user's requests write it.
type UserAggregate struct {
	UID                string    `json:"uid"`
	DisplayName        string    `json:"displayName"`
	Email              string    `json:"email"`
	PhotoURL           string    `json:"photoURL"`
	Stats              Stats     `json:"stats"`
	CompletedQuestions []string  `json:"completedQuestions"`
	Settings           Settings  `json:"settings"`
	Socials            Socials   `json:"socials"`
	CreatedAt          time.Time `json:"createdAt"`
	LastLogin          time.Time `json:"lastLogin"`
}

// NewUserAggregate returns the zero-valued aggregate written at provisioning time.
func NewUserAggregate(id Identity, now time.Time) UserAggregate {
	return UserAggregate{
		UID:         id.UID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		PhotoURL:    id.PhotoURL,
		Stats: Stats{
			Languages: map[string]int{},
			Topics:    map[string]int{},
		},
		CompletedQuestions: []string{},
		Settings:           Settings{ShowAvatar: true},
		CreatedAt:          now,
		LastLogin:          now,
	}
}

// HasCompleted reports whether title was already answered correctly.
func (a UserAggregate) HasCompleted(title string) bool {
	for _, t := range a.CompletedQuestions {
		if t == title {
			return true
		}
	}
	return false
}

// Clone deep-copies the maps and slices so callers can't alias store state.
func (a UserAggregate) Clone() UserAggregate {
	out := a
	out.Stats.Languages = cloneCounts(a.Stats.Languages)
	out.Stats.Topics = cloneCounts(a.Stats.Topics)
	out.CompletedQuestions = append([]string(nil), a.CompletedQuestions...)
	if out.CompletedQuestions == nil {
		out.CompletedQuestions = []string{}
	}
	sort.Strings(out.CompletedQuestions)
	return out
}

func cloneCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ProfileUpdate carries the user-editable fields; nil means unchanged.
type ProfileUpdate struct {
	DisplayName *string
	Settings    *Settings
	Socials     *Socials
}

type SubmissionStatus string

const (
	StatusCorrect   SubmissionStatus = "correct"
	StatusIncorrect SubmissionStatus = "incorrect"
)

// SubmissionEvent is the immutable log record of one submit action.
type SubmissionEvent struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	QuestionTitle string           `json:"questionTitle"`
	Status        SubmissionStatus `json:"status"`
	Difficulty    string           `json:"difficulty,omitempty"`
	Topic         string           `json:"topic,omitempty"`
	Language      string           `json:"language,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Submission is the answer a user sends for a question.
type Submission struct {
	QuestionTitle  string
	SelectedOption string
}

// Outcome is the aggregate delta a store applies atomically for one submission.
type Outcome struct {
	QuestionTitle string
	Language      string
	Topic         string
	Correct       bool
}

// ApplyResult is what a store reports after applying an Outcome.
type ApplyResult struct {
	FirstTimeCorrect bool
	Aggregate        UserAggregate
}

// SubmissionResult is returned to the submitting client once persistence confirmed.
type SubmissionResult struct {
	EventID          string        `json:"eventId"`
	QuestionTitle    string        `json:"questionTitle"`
	Correct          bool          `json:"correct"`
	FirstTimeCorrect bool          `json:"firstTimeCorrect"`
	Stats            Stats         `json:"stats"`
	Aggregate        UserAggregate `json:"-"`
}

// LeaderboardRow is a derived, never persisted ranking line.
type LeaderboardRow struct {
	Rank        int     `json:"rank"`
	UID         string  `json:"uid"`
	Username    string  `json:"username"`
	Avatar      string  `json:"avatar,omitempty"`
	Correct     int     `json:"correct"`
	Incorrect   int     `json:"incorrect"`
	SuccessRate float64 `json:"successRate"`
	Score       int     `json:"score"`
}

// Leaderboard captures the ordered top rows plus the podium presentation order.
type Leaderboard struct {
	Rows        []LeaderboardRow `json:"rows"`
	Podium      []LeaderboardRow `json:"podium"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// Share is one slice of a progress breakdown.
type Share struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Total   int     `json:"total,omitempty"`
	Percent float64 `json:"percent"`
}

// Progress is the read model behind the progress view.
type Progress struct {
	UID         string            `json:"uid"`
	Completed   int               `json:"completed"`
	Correct     int               `json:"correct"`
	Incorrect   int               `json:"incorrect"`
	SuccessRate float64           `json:"successRate"`
	Languages   []Share           `json:"languages"`
	Topics      []Share           `json:"topics"`
	Recent      []SubmissionEvent `json:"recent"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}
