// Package trending ranks posts for discovery by a recency-weighted,
// comment-weighted engagement score.
//
// score = (likes*LikeWeight + comments*CommentWeight) / (ageHours + 1)
//
// The +1 keeps the score finite for posts created at query time and makes it
// strictly decreasing in age for fixed engagement.
package trending

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	LikeWeight    = 1.0
	CommentWeight = 2.0

	// DefaultCandidateLimit bounds how many of the newest posts are scored.
	DefaultCandidateLimit = 100
)

// Window selects how far back candidate posts may have been created.
type Window string

const (
	Today Window = "today"
	Week  Window = "week"
	Month Window = "month"
	All   Window = "all"
)

// ParseWindow maps a query value to a Window; anything unknown is Week.
func ParseWindow(s string) Window {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case Today, Week, Month, All:
		return w
	default:
		return Week
	}
}

// Since returns the earliest creation time admitted by w at now.
func (w Window) Since(now time.Time) time.Time {
	switch w {
	case Today:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case Month:
		return now.AddDate(0, -1, 0)
	case All:
		return time.Unix(0, 0).UTC()
	default:
		return now.Add(-7 * 24 * time.Hour)
	}
}

// Signals are the engagement inputs for one post.
type Signals struct {
	ID        string
	CreatedAt time.Time
	Likes     float64
	Comments  float64
}

// Ranked pairs an item with its trending score.
type Ranked[T any] struct {
	Item  T       `json:"item"`
	Score float64 `json:"trending_score"`
}

// Score computes the trending score. Negative or non-finite counts count as
// zero and a creation time after now counts as age zero.
func Score(likes, comments float64, createdAt, now time.Time) float64 {
	ageHours := now.Sub(createdAt).Hours()
	if ageHours < 0 || math.IsNaN(ageHours) {
		ageHours = 0
	}
	return (sanitize(likes)*LikeWeight + sanitize(comments)*CommentWeight) / (ageHours + 1)
}

func sanitize(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return n
}

// Rank filters items to window, keeps the newest limit candidates
// (DefaultCandidateLimit when limit <= 0), scores them and returns them
// sorted by score descending. Ties are broken by newer first, then id, so a
// fixed input always yields the same order. items is not modified.
func Rank[T any](items []T, signals func(T) Signals, window Window, now time.Time, limit int) []Ranked[T] {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	since := window.Since(now)

	type scored struct {
		sig Signals
		out Ranked[T]
	}
	candidates := make([]scored, 0, len(items))
	for _, it := range items {
		sig := signals(it)
		if sig.CreatedAt.Before(since) {
			continue
		}
		candidates = append(candidates, scored{sig: sig, out: Ranked[T]{Item: it}})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return newer(candidates[i].sig, candidates[j].sig)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	for i := range candidates {
		s := candidates[i].sig
		candidates[i].out.Score = Score(s.Likes, s.Comments, s.CreatedAt, now)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.out.Score != b.out.Score {
			return a.out.Score > b.out.Score
		}
		return newer(a.sig, b.sig)
	})

	out := make([]Ranked[T], len(candidates))
	for i, c := range candidates {
		out[i] = c.out
	}
	return out
}

func newer(a, b Signals) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
