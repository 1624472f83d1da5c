package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	"github.com/zelkovascum/Photudio/internal/pkg/pagecursor"
	"github.com/zelkovascum/Photudio/internal/pkg/sanitize"
	"github.com/zelkovascum/Photudio/internal/pkg/validate"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
	geosvc "github.com/zelkovascum/Photudio/internal/services/geo"
)

const (
	defaultPageSize      = 20
	maxPageSize          = 50
	defaultScanLimit     = 1000
	maxPlaceLength       = 255
	defaultContentLength = 1000
)

var (
	ErrValidation    = errors.New("validation error")
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrInvalidMode   = errors.New("invalid feed mode")
	ErrOriginMissing = errors.New("origin is required for proximity mode")
)

// PostStore is the narrow view of post storage the feed needs.
type PostStore interface {
	ListRecent(ctx context.Context, q pgrepo.PostQuery) ([]model.Post, error)
	Create(ctx context.Context, post model.Post) (model.Post, error)
}

type CityResolver interface {
	City(id string) (geosvc.City, error)
	ResolveNearestCity(lat, lng float64) (geosvc.City, error)
}

type Config struct {
	DefaultLimit     int
	MaxLimit         int
	ScanLimit        int
	MaxContentLength int
}

type Service struct {
	posts  PostStore
	cities CityResolver
	text   *sanitize.Text
	cfg    Config
	now    func() time.Time
}

type Query struct {
	Origin *model.Location
	CityID string
	Mode   Mode
	After  *time.Time
	Cursor string
	Limit  int
}

type Item struct {
	Post       model.Post
	DistanceKM *float64
}

// Result is one feed page. Truncated reports that proximity ranking saw only the most
// recent ScanLimit posts, so older posts nearby may be missing.
type Result struct {
	Items      []Item
	NextCursor string
	Truncated  bool
}

type NewPost struct {
	Lat        float64
	Lng        float64
	Place      string
	OccurredAt time.Time
	Content    string
}

// pageCursor is a keyset position in chronological mode and an offset into a pinned
// scan (posts with id <= MaxID) in proximity mode.
type pageCursor struct {
	OccurredAt *time.Time `json:"t,omitempty"`
	ID         int64      `json:"id,omitempty"`
	Offset     int        `json:"o,omitempty"`
	MaxID      int64      `json:"m,omitempty"`
}

func NewService(posts PostStore, cities CityResolver, cfg Config) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultPageSize
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = maxPageSize
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = defaultScanLimit
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = defaultContentLength
	}

	return &Service{
		posts:  posts,
		cities: cities,
		text:   sanitize.NewText(),
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *Service) Get(ctx context.Context, q Query) (Result, error) {
	if s.posts == nil {
		return Result{}, fmt.Errorf("post store is nil")
	}
	if q.Mode == "" {
		q.Mode = ModeChronological
	}
	if q.Mode != ModeChronological && q.Mode != ModeProximity {
		return Result{}, ErrInvalidMode
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	cursor, err := decodeCursor(q.Cursor, q.Mode)
	if err != nil {
		return Result{}, err
	}

	origin, err := s.resolveOrigin(q)
	if err != nil {
		return Result{}, err
	}
	if q.Mode == ModeProximity {
		if origin == nil {
			return Result{}, ErrOriginMissing
		}
		return s.nearby(ctx, q, *origin, cursor, limit)
	}
	return s.latest(ctx, q, origin, cursor, limit)
}

// latest pages chronologically with a keyset cursor, so every post stays reachable and
// inserts between pages cause neither skips nor repeats.
func (s *Service) latest(ctx context.Context, q Query, origin *model.Location, cursor *pageCursor, limit int) (Result, error) {
	query := pgrepo.PostQuery{After: q.After, Limit: limit + 1}
	if cursor != nil {
		query.Before = &pgrepo.PostKey{OccurredAt: *cursor.OccurredAt, ID: cursor.ID}
	}

	posts, err := s.posts.ListRecent(ctx, query)
	if err != nil {
		return Result{}, err
	}
	seq, err := Rank(posts, model.Location{}, Options{Mode: ModeChronological, After: q.After})
	if err != nil {
		return Result{}, err
	}

	items := make([]Item, 0, limit)
	hasMore := false
	for post := range seq {
		if len(items) == limit {
			hasMore = true
			break
		}
		items = append(items, Item{Post: post, DistanceKM: distanceFrom(origin, post)})
	}

	result := Result{Items: items}
	if hasMore {
		last := items[len(items)-1].Post
		at := last.OccurredAt.UTC()
		next, err := encodeCursor(pageCursor{OccurredAt: &at, ID: last.ID})
		if err != nil {
			return Result{}, err
		}
		result.NextCursor = next
	}
	return result, nil
}

// nearby ranks the ScanLimit most recent posts by distance. The first page pins the scan
// to the posts that existed then, so later pages rank the same set.
func (s *Service) nearby(ctx context.Context, q Query, origin model.Location, cursor *pageCursor, limit int) (Result, error) {
	position := pageCursor{}
	if cursor != nil {
		position = *cursor
	}

	posts, err := s.posts.ListRecent(ctx, pgrepo.PostQuery{After: q.After, MaxID: position.MaxID, Limit: s.cfg.ScanLimit})
	if err != nil {
		return Result{}, err
	}
	if position.MaxID == 0 {
		for _, post := range posts {
			position.MaxID = max(position.MaxID, post.ID)
		}
	}

	seq, err := Rank(posts, origin, Options{Mode: ModeProximity, After: q.After})
	if err != nil {
		return Result{}, err
	}

	items := make([]Item, 0, limit)
	index := 0
	hasMore := false
	for post := range seq {
		if index < position.Offset {
			index++
			continue
		}
		if len(items) == limit {
			hasMore = true
			break
		}
		items = append(items, Item{Post: post, DistanceKM: distanceFrom(&origin, post)})
		index++
	}

	result := Result{Items: items, Truncated: len(posts) >= s.cfg.ScanLimit}
	if hasMore {
		next, err := encodeCursor(pageCursor{Offset: position.Offset + len(items), MaxID: position.MaxID})
		if err != nil {
			return Result{}, err
		}
		result.NextCursor = next
	}
	return result, nil
}

func (s *Service) CreatePost(ctx context.Context, authorID int64, in NewPost) (model.Post, error) {
	if authorID <= 0 {
		return model.Post{}, ErrValidation
	}
	if s.posts == nil {
		return model.Post{}, fmt.Errorf("post store is nil")
	}
	if err := geosvc.ValidateCoordinates(in.Lat, in.Lng); err != nil {
		return model.Post{}, err
	}

	place := s.text.Clean(in.Place)
	if !validate.Required(place) || !validate.MaxRunes(place, maxPlaceLength) {
		return model.Post{}, fmt.Errorf("place is blank or too long: %w", ErrValidation)
	}
	content := s.text.Clean(in.Content)
	if !validate.Required(content) || !validate.MaxRunes(content, s.cfg.MaxContentLength) {
		return model.Post{}, fmt.Errorf("content is blank or too long: %w", ErrValidation)
	}
	if in.OccurredAt.IsZero() {
		return model.Post{}, fmt.Errorf("occurred_at is required: %w", ErrValidation)
	}

	post := model.Post{
		AuthorID:   authorID,
		Lat:        in.Lat,
		Lng:        in.Lng,
		Place:      place,
		OccurredAt: in.OccurredAt.UTC(),
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	if s.cities != nil {
		if city, err := s.cities.ResolveNearestCity(in.Lat, in.Lng); err == nil {
			post.CityID = city.ID
		}
	}

	return s.posts.Create(ctx, post)
}

func (s *Service) resolveOrigin(q Query) (*model.Location, error) {
	if q.Origin != nil {
		if err := geosvc.ValidateCoordinates(q.Origin.Lat, q.Origin.Lng); err != nil {
			return nil, err
		}
		origin := *q.Origin
		return &origin, nil
	}

	cityID := strings.TrimSpace(q.CityID)
	if cityID == "" {
		return nil, nil
	}
	if s.cities == nil {
		return nil, fmt.Errorf("unknown city %q: %w", cityID, ErrValidation)
	}
	city, err := s.cities.City(cityID)
	if err != nil {
		return nil, fmt.Errorf("unknown city %q: %w", cityID, ErrValidation)
	}
	origin := city.Location()
	return &origin, nil
}

func distanceFrom(origin *model.Location, post model.Post) *float64 {
	if origin == nil {
		return nil
	}
	d, err := geosvc.DistanceBetween(*origin, post.Location())
	if err != nil {
		return nil
	}
	return &d
}

// decodeCursor returns nil for a blank cursor. A cursor minted for the other mode is
// rejected.
func decodeCursor(raw string, mode Mode) (*pageCursor, error) {
	var cursor pageCursor
	ok, err := pagecursor.Decode(raw, &cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	if !ok {
		return nil, nil
	}

	switch mode {
	case ModeChronological:
		if cursor.OccurredAt == nil || cursor.ID <= 0 || cursor.Offset != 0 {
			return nil, ErrInvalidCursor
		}
	default:
		if cursor.Offset <= 0 || cursor.MaxID <= 0 || cursor.OccurredAt != nil {
			return nil, ErrInvalidCursor
		}
	}
	return &cursor, nil
}

func encodeCursor(cursor pageCursor) (string, error) {
	raw, err := pagecursor.Encode(cursor)
	if err != nil {
		return "", fmt.Errorf("feed cursor: %w", err)
	}
	return raw, nil
}
