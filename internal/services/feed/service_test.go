package feed

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/zelkovascum/Photudio/internal/config"
	"github.com/zelkovascum/Photudio/internal/domain/model"
	pgrepo "github.com/zelkovascum/Photudio/internal/repo/postgres"
	geosvc "github.com/zelkovascum/Photudio/internal/services/geo"
)

// postStoreStub filters and orders like PostRepo.ListRecent.
type postStoreStub struct {
	posts   []model.Post
	listErr error
	queries []pgrepo.PostQuery
	created []model.Post
}

func (s *postStoreStub) ListRecent(_ context.Context, q pgrepo.PostQuery) ([]model.Post, error) {
	s.queries = append(s.queries, q)
	if s.listErr != nil {
		return nil, s.listErr
	}

	out := make([]model.Post, 0, len(s.posts))
	for _, post := range s.posts {
		if q.After != nil && !post.OccurredAt.After(*q.After) {
			continue
		}
		if q.MaxID > 0 && post.ID > q.MaxID {
			continue
		}
		if q.Before != nil && !laterInFeed(post, *q.Before) {
			continue
		}
		out = append(out, post)
	}
	slices.SortFunc(out, func(a, b model.Post) int {
		if c := b.OccurredAt.Compare(a.OccurredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func laterInFeed(post model.Post, key pgrepo.PostKey) bool {
	if post.OccurredAt.Equal(key.OccurredAt) {
		return post.ID > key.ID
	}
	return post.OccurredAt.Before(key.OccurredAt)
}

func (s *postStoreStub) lastQuery() pgrepo.PostQuery {
	return s.queries[len(s.queries)-1]
}

func (s *postStoreStub) Create(_ context.Context, post model.Post) (model.Post, error) {
	post.ID = int64(len(s.created) + 1)
	s.created = append(s.created, post)
	return post, nil
}

func newTestService(store *postStoreStub) *Service {
	return NewService(store, geosvc.NewService(config.Default().Cities), Config{DefaultLimit: 2, MaxLimit: 3})
}

func TestGetPagesWithCursor(t *testing.T) {
	store := &postStoreStub{posts: samplePosts()}
	svc := newTestService(store)

	first, err := svc.Get(context.Background(), Query{Mode: ModeChronological})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 2 || first.Items[0].Post.ID != 3 || first.Items[1].Post.ID != 2 {
		t.Fatalf("unexpected first page: %+v", first.Items)
	}
	if first.NextCursor == "" {
		t.Fatalf("expected next cursor")
	}
	if first.Items[0].DistanceKM != nil {
		t.Fatalf("distance must be empty without an origin")
	}

	second, err := svc.Get(context.Background(), Query{Mode: ModeChronological, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 2 || second.Items[0].Post.ID != 1 || second.Items[1].Post.ID != 4 {
		t.Fatalf("unexpected second page: %+v", second.Items)
	}
	if second.NextCursor != "" {
		t.Fatalf("expected last page, got cursor %q", second.NextCursor)
	}
	if q := store.lastQuery(); q.Limit != 3 || q.Before == nil || q.Before.ID != 2 {
		t.Fatalf("expected a keyset query after post 2 for limit+1 rows, got %+v", q)
	}
}

func TestGetChronologicalIgnoresInsertsBetweenPages(t *testing.T) {
	store := &postStoreStub{posts: samplePosts()}
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Get(ctx, Query{})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	store.posts = append(store.posts, model.Post{ID: 6, Lat: 35, Lng: 139, OccurredAt: baseTime.Add(10 * time.Hour)})

	second, err := svc.Get(ctx, Query{Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 2 || second.Items[0].Post.ID != 1 || second.Items[1].Post.ID != 4 {
		t.Fatalf("page shifted after insert: %+v", second.Items)
	}
}

func TestGetChronologicalReachesPastScanLimit(t *testing.T) {
	store := &postStoreStub{posts: samplePosts()}
	svc := NewService(store, nil, Config{DefaultLimit: 1, MaxLimit: 1, ScanLimit: 2})
	ctx := context.Background()

	var ids []int64
	cursor := ""
	for range 10 {
		page, err := svc.Get(ctx, Query{Cursor: cursor})
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		for _, item := range page.Items {
			ids = append(ids, item.Post.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if !slices.Equal(ids, []int64{3, 2, 1, 4}) {
		t.Fatalf("expected every post in order, got %v", ids)
	}
}

func TestGetProximityPinsScanAcrossPages(t *testing.T) {
	store := &postStoreStub{posts: samplePosts()}
	svc := newTestService(store)
	ctx := context.Background()
	tokyo := &model.Location{Lat: 35.6812, Lng: 139.7671}

	first, err := svc.Get(ctx, Query{Mode: ModeProximity, Origin: tokyo})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 2 || first.Items[0].Post.ID != 2 || first.Items[1].Post.ID != 3 {
		t.Fatalf("unexpected first page: %+v", first.Items)
	}

	// A newer post right at the origin would rank first and shift the offsets.
	store.posts = append(store.posts, model.Post{ID: 5, Lat: tokyo.Lat, Lng: tokyo.Lng, OccurredAt: baseTime.Add(5 * time.Hour)})

	second, err := svc.Get(ctx, Query{Mode: ModeProximity, Origin: tokyo, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 2 || second.Items[0].Post.ID != 1 || second.Items[1].Post.ID != 4 {
		t.Fatalf("unexpected second page: %+v", second.Items)
	}
	if q := store.lastQuery(); q.MaxID != 4 {
		t.Fatalf("expected scan pinned to id 4, got %+v", q)
	}
}

func TestGetProximityReportsTruncatedScan(t *testing.T) {
	store := &postStoreStub{posts: samplePosts()}
	tokyo := &model.Location{Lat: 35.6812, Lng: 139.7671}

	capped := NewService(store, nil, Config{ScanLimit: 3})
	res, err := capped.Get(context.Background(), Query{Mode: ModeProximity, Origin: tokyo})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !res.Truncated || len(res.Items) != 3 {
		t.Fatalf("expected a truncated scan of 3 posts, got truncated=%v items=%d", res.Truncated, len(res.Items))
	}

	full, err := NewService(store, nil, Config{}).Get(context.Background(), Query{Mode: ModeProximity, Origin: tokyo})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if full.Truncated {
		t.Fatalf("scan below the limit must not be reported as truncated")
	}
}

func TestGetRejectsCursorFromOtherMode(t *testing.T) {
	svc := newTestService(&postStoreStub{posts: samplePosts()})
	ctx := context.Background()

	chrono, err := svc.Get(ctx, Query{})
	if err != nil {
		t.Fatalf("chronological page: %v", err)
	}
	_, err = svc.Get(ctx, Query{Mode: ModeProximity, CityID: "tokyo", Cursor: chrono.NextCursor})
	if !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestGetProximityByCityFillsDistance(t *testing.T) {
	svc := newTestService(&postStoreStub{posts: samplePosts()})

	res, err := svc.Get(context.Background(), Query{Mode: ModeProximity, CityID: "tokyo", Limit: 10})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("limit must be capped at 3, got %d", len(res.Items))
	}
	if res.Items[0].Post.ID != 2 {
		t.Fatalf("expected shibuya first, got %d", res.Items[0].Post.ID)
	}
	if res.Items[0].DistanceKM == nil || *res.Items[0].DistanceKM > 10 {
		t.Fatalf("unexpected distance: %v", res.Items[0].DistanceKM)
	}
}

func TestGetValidation(t *testing.T) {
	svc := newTestService(&postStoreStub{posts: samplePosts()})
	ctx := context.Background()

	if _, err := svc.Get(ctx, Query{Mode: ModeProximity}); !errors.Is(err, ErrOriginMissing) {
		t.Fatalf("expected ErrOriginMissing, got %v", err)
	}
	if _, err := svc.Get(ctx, Query{Mode: ModeProximity, CityID: "atlantis"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown city, got %v", err)
	}
	if _, err := svc.Get(ctx, Query{Origin: &model.Location{Lat: 0, Lng: 200}}); !errors.Is(err, geosvc.ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}
	if _, err := svc.Get(ctx, Query{Cursor: "not-base64!"}); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestGetPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("boom")
	svc := newTestService(&postStoreStub{listErr: storeErr})

	if _, err := svc.Get(context.Background(), Query{}); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestCreatePostResolvesCity(t *testing.T) {
	store := &postStoreStub{}
	svc := newTestService(store)
	svc.now = func() time.Time { return baseTime }

	post, err := svc.CreatePost(context.Background(), 42, NewPost{
		Lat:        35.658,
		Lng:        139.7016,
		Place:      "  Shibuya crossing ",
		OccurredAt: baseTime.Add(-time.Hour),
		Content:    "saw <b>you</b> at the crossing",
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.ID != 1 || post.AuthorID != 42 || post.CityID != "tokyo" || post.Place != "Shibuya crossing" || post.Content != "saw you at the crossing" {
		t.Fatalf("unexpected post: %+v", post)
	}
	if !post.CreatedAt.Equal(baseTime) {
		t.Fatalf("unexpected created_at: %v", post.CreatedAt)
	}
}

func TestCreatePostValidation(t *testing.T) {
	valid := NewPost{Lat: 35, Lng: 139, Place: "park", OccurredAt: baseTime, Content: "hello"}

	tests := []struct {
		name   string
		author int64
		mutate func(*NewPost)
		want   error
	}{
		{name: "missing author", author: 0, mutate: func(*NewPost) {}, want: ErrValidation},
		{name: "blank place", author: 1, mutate: func(p *NewPost) { p.Place = "  " }, want: ErrValidation},
		{name: "blank content", author: 1, mutate: func(p *NewPost) { p.Content = "" }, want: ErrValidation},
		{name: "markup only content", author: 1, mutate: func(p *NewPost) { p.Content = "<script>x()</script>" }, want: ErrValidation},
		{name: "zero time", author: 1, mutate: func(p *NewPost) { p.OccurredAt = time.Time{} }, want: ErrValidation},
		{name: "bad latitude", author: 1, mutate: func(p *NewPost) { p.Lat = 100 }, want: geosvc.ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &postStoreStub{}
			svc := newTestService(store)
			in := valid
			tt.mutate(&in)

			if _, err := svc.CreatePost(context.Background(), tt.author, in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(store.created) != 0 {
				t.Fatalf("invalid post must not be stored")
			}
		})
	}
}
