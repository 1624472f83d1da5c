package feed

import (
	"cmp"
	"iter"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zelkovascum/Photudio/internal/domain/model"
	geosvc "github.com/zelkovascum/Photudio/internal/services/geo"
)

type Mode string

const (
	ModeChronological Mode = "chronological"
	ModeProximity     Mode = "proximity"
)

// ParseMode accepts the public mode names plus the legacy "near"/"circumference" aliases.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ModeChronological), "latest":
		return ModeChronological, nil
	case string(ModeProximity), "near", "circumference":
		return ModeProximity, nil
	default:
		return "", ErrInvalidMode
	}
}

type Options struct {
	Mode  Mode
	After *time.Time
}

type rankedPost struct {
	post       model.Post
	distanceKM float64
}

// Rank returns the filtered posts in feed order. Filtering and sorting run once, on
// the first iteration; later iterations replay the same order. posts is not modified.
func Rank(posts []model.Post, origin model.Location, opts Options) (iter.Seq[model.Post], error) {
	switch opts.Mode {
	case ModeChronological:
	case ModeProximity:
		if err := geosvc.ValidateCoordinates(origin.Lat, origin.Lng); err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidMode
	}

	snapshot := slices.Clone(posts)
	var after *time.Time
	if opts.After != nil {
		v := *opts.After
		after = &v
	}

	ranked := sync.OnceValue(func() []rankedPost {
		return rank(snapshot, origin, opts.Mode, after)
	})

	return func(yield func(model.Post) bool) {
		for _, item := range ranked() {
			if !yield(item.post) {
				return
			}
		}
	}, nil
}

func rank(posts []model.Post, origin model.Location, mode Mode, after *time.Time) []rankedPost {
	out := make([]rankedPost, 0, len(posts))
	for _, post := range posts {
		if after != nil && !post.OccurredAt.After(*after) {
			continue
		}
		item := rankedPost{post: post}
		if mode == ModeProximity {
			d, err := geosvc.DistanceBetween(origin, post.Location())
			if err != nil {
				d = math.Inf(1)
			}
			item.distanceKM = d
		}
		out = append(out, item)
	}

	switch mode {
	case ModeProximity:
		slices.SortStableFunc(out, compareProximity)
	default:
		slices.SortStableFunc(out, compareChronological)
	}
	return out
}

func compareProximity(a, b rankedPost) int {
	if c := cmp.Compare(a.distanceKM, b.distanceKM); c != 0 {
		return c
	}
	return compareChronological(a, b)
}

func compareChronological(a, b rankedPost) int {
	if c := b.post.OccurredAt.Compare(a.post.OccurredAt); c != 0 {
		return c
	}
	return cmp.Compare(a.post.ID, b.post.ID)
}
