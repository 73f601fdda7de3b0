package app

import (
	"context"
	"errors"
	"sort"
	"strings"

	"getlowlevel-service/internal/domain"
)

// Playlists known to the questions view, in display order.
var Playlists = []domain.Playlist{
	{Key: "os25", Title: "Operating System Problems", Count: 25, Topic: "Operating Systems"},
	{Key: "cpp50", Title: "C++ Problems", Count: 50, Language: "Cpp"},
	{Key: "rust50", Title: "Rust Problems", Count: 50, Language: "Rust"},
	{Key: "python50", Title: "Python Problems", Count: 50, Language: "Python"},
}

// LookupPlaylist resolves a playlist selector; unknown or empty keys are not found.
func LookupPlaylist(key string) (domain.Playlist, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, p := range Playlists {
		if p.Key == key {
			return p, true
		}
	}
	return domain.Playlist{}, false
}

type QuestionSort string

const (
	SortTitle      QuestionSort = "title"
	SortTitleDesc  QuestionSort = "title_desc"
	SortDifficulty QuestionSort = "difficulty"
)

// QuestionQuery narrows a playlist page.
type QuestionQuery struct {
	IgnoreCompleted bool
	Sort            QuestionSort
}

// QuestionSummary is a question as listed, without options or answer.
type QuestionSummary struct {
	Title      string `json:"title"`
	Language   string `json:"language,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Completed  bool   `json:"completed"`
}

// PlaylistPage is nil-playlist with no questions for unknown selectors.
type PlaylistPage struct {
	Playlist  *domain.Playlist  `json:"playlist"`
	Questions []QuestionSummary `json:"questions"`
}

// CatalogService serves playlists and questions.
type CatalogService struct {
	questions QuestionRepository
	store     AggregateStore
	guard     guard
}

func NewCatalogService(questions QuestionRepository, store AggregateStore, opts Options) *CatalogService {
	return &CatalogService{questions: questions, store: store, guard: newGuard(opts.withDefaults())}
}

func (s *CatalogService) Playlists() []domain.Playlist {
	out := make([]domain.Playlist, len(Playlists))
	copy(out, Playlists)
	return out
}

// Page lists the playlist's questions for uid, capped at the playlist count.
func (s *CatalogService) Page(ctx context.Context, key, uid string, query QuestionQuery) (PlaylistPage, error) {
	playlist, ok := LookupPlaylist(key)
	if !ok {
		return PlaylistPage{Questions: []QuestionSummary{}}, nil
	}

	var bank []domain.Question
	if err := s.guard.read(ctx, "questions", func(ctx context.Context) error {
		var err error
		bank, err = s.questions.ListQuestions(ctx)
		return err
	}); err != nil {
		return PlaylistPage{}, err
	}

	completed := map[string]bool{}
	if uid != "" {
		var agg domain.UserAggregate
		err := s.guard.read(ctx, "user aggregate", func(ctx context.Context) error {
			var err error
			agg, err = s.store.Get(ctx, uid)
			return err
		})
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return PlaylistPage{}, err
		}
		for _, title := range agg.CompletedQuestions {
			completed[title] = true
		}
	}

	items := make([]QuestionSummary, 0, playlist.Count)
	for _, q := range bank {
		if !playlist.Matches(q) {
			continue
		}
		if query.IgnoreCompleted && completed[q.Title] {
			continue
		}
		items = append(items, QuestionSummary{
			Title:      q.Title,
			Language:   q.Language,
			Topic:      q.Topic,
			Difficulty: q.Difficulty,
			Completed:  completed[q.Title],
		})
	}
	sortSummaries(items, query.Sort)
	if len(items) > playlist.Count {
		items = items[:playlist.Count]
	}
	return PlaylistPage{Playlist: &playlist, Questions: items}, nil
}

// Question returns a single question; transports must strip the answer before sending it.
func (s *CatalogService) Question(ctx context.Context, title string) (domain.Question, error) {
	var q domain.Question
	err := s.guard.read(ctx, "question", func(ctx context.Context) error {
		var err error
		q, err = s.questions.GetQuestion(ctx, title)
		return err
	})
	return q, err
}

var difficultyOrder = map[string]int{"easy": 0, "medium": 1, "hard": 2}

func sortSummaries(items []QuestionSummary, by QuestionSort) {
	sort.SliceStable(items, func(i, j int) bool {
		switch by {
		case SortTitleDesc:
			return items[i].Title > items[j].Title
		case SortDifficulty:
			di, dj := difficultyRank(items[i].Difficulty), difficultyRank(items[j].Difficulty)
			if di != dj {
				return di < dj
			}
			return items[i].Title < items[j].Title
		default:
			return items[i].Title < items[j].Title
		}
	})
}

func difficultyRank(d string) int {
	if r, ok := difficultyOrder[strings.ToLower(d)]; ok {
		return r
	}
	return len(difficultyOrder)
}
