package trending

import (
	"fmt"
	"math"
	"testing"
	"time"
)

var now = time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC)

type post struct {
	id       string
	at       time.Time
	likes    float64
	comments float64
}

func sig(p post) Signals {
	return Signals{ID: p.id, CreatedAt: p.at, Likes: p.likes, Comments: p.comments}
}

func ids(ranked []Ranked[post]) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item.id
	}
	return out
}

func TestScore_Formula(t *testing.T) {
	got := Score(3, 2, now.Add(-3*time.Hour), now)
	want := (3*1.0 + 2*2.0) / 4.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScore_CreatedNowIsFinite(t *testing.T) {
	got := Score(5, 0, now, now)
	if got != 5 {
		t.Fatalf("expected 5 for a post created at query time, got %v", got)
	}
	if s := Score(5, 0, now.Add(time.Hour), now); s != 5 {
		t.Fatalf("future timestamps should count as age zero, got %v", s)
	}
}

func TestScore_MalformedCountsDegradeToZero(t *testing.T) {
	at := now.Add(-time.Hour)
	if s := Score(-4, math.NaN(), at, now); s != 0 {
		t.Fatalf("expected 0, got %v", s)
	}
	if s := Score(math.Inf(1), 1, at, now); s != 1 {
		t.Fatalf("expected only comments to count, got %v", s)
	}
}

func TestScore_MoreLikesNeverLower(t *testing.T) {
	at := now.Add(-5 * time.Hour)
	for likes := 0.0; likes < 50; likes++ {
		if Score(likes+1, 3, at, now) < Score(likes, 3, at, now) {
			t.Fatalf("score decreased when likes grew from %v", likes)
		}
	}
}

func TestScore_DecreasesWithAge(t *testing.T) {
	younger := Score(10, 1, now.Add(-time.Hour), now)
	older := Score(10, 1, now.Add(-2*time.Hour), now)
	if !(younger > older) {
		t.Fatalf("expected younger post to score higher: %v vs %v", younger, older)
	}
}

func TestWindowSince(t *testing.T) {
	local := time.FixedZone("UTC+2", 2*3600)
	n := time.Date(2025, 3, 31, 1, 15, 0, 0, local)

	if got := Today.Since(n); !got.Equal(time.Date(2025, 3, 31, 0, 0, 0, 0, local)) {
		t.Fatalf("today boundary: %v", got)
	}
	if got := Week.Since(n); !got.Equal(n.Add(-7 * 24 * time.Hour)) {
		t.Fatalf("week boundary: %v", got)
	}
	if got := Month.Since(n); !got.Equal(n.AddDate(0, -1, 0)) {
		t.Fatalf("month boundary: %v", got)
	}
	if got := All.Since(n); got.Unix() != 0 {
		t.Fatalf("all boundary: %v", got)
	}
}

func TestParseWindow(t *testing.T) {
	cases := map[string]Window{"today": Today, " WEEK ": Week, "month": Month, "all": All, "": Week, "year": Week}
	for in, want := range cases {
		if got := ParseWindow(in); got != want {
			t.Fatalf("ParseWindow(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRank_ExcludesPostsOutsideWindow(t *testing.T) {
	posts := []post{
		{id: "fresh", at: now.Add(-2 * time.Hour), likes: 1},
		{id: "viral-but-old", at: now.Add(-8 * 24 * time.Hour), likes: 1_000_000, comments: 1_000_000},
		{id: "yesterday", at: now.Add(-20 * time.Hour), likes: 3},
	}

	got := ids(Rank(posts, sig, Week, now, 0))
	for _, id := range got {
		if id == "viral-but-old" {
			t.Fatalf("post outside the week window was ranked: %v", got)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 ranked posts, got %v", got)
	}

	today := ids(Rank(posts, sig, Today, now, 0))
	if len(today) != 1 || today[0] != "fresh" {
		t.Fatalf("expected only today's post, got %v", today)
	}

	all := ids(Rank(posts, sig, All, now, 0))
	if len(all) != 3 || all[0] != "viral-but-old" {
		t.Fatalf("expected the old viral post first for all time, got %v", all)
	}
}

func TestRank_OrdersByScoreDescending(t *testing.T) {
	posts := []post{
		{id: "a", at: now.Add(-1 * time.Hour), likes: 2},               // 1.0
		{id: "b", at: now.Add(-1 * time.Hour), comments: 3},            // 3.0
		{id: "c", at: now.Add(-9 * time.Hour), likes: 10, comments: 5}, // 2.0
	}
	got := ids(Rank(posts, sig, Week, now, 0))
	want := []string{"b", "c", "a"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRank_Deterministic(t *testing.T) {
	var posts []post
	for i := 0; i < 40; i++ {
		posts = append(posts, post{
			id:    fmt.Sprintf("p%02d", i),
			at:    now.Add(-time.Duration(i%5) * time.Hour),
			likes: float64(i % 3),
		})
	}
	first := ids(Rank(posts, sig, All, now, 0))
	second := ids(Rank(posts, sig, All, now, 0))
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Fatalf("ranking is not deterministic:\n%v\n%v", first, second)
	}
}

func TestRank_CapsCandidatesByRecency(t *testing.T) {
	posts := []post{
		{id: "newest", at: now.Add(-1 * time.Hour)},
		{id: "middle", at: now.Add(-2 * time.Hour)},
		{id: "oldest", at: now.Add(-3 * time.Hour), likes: 100},
	}
	got := ids(Rank(posts, sig, Week, now, 2))
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %v", got)
	}
	for _, id := range got {
		if id == "oldest" {
			t.Fatalf("cap must keep the newest posts regardless of score: %v", got)
		}
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	posts := []post{
		{id: "a", at: now.Add(-3 * time.Hour)},
		{id: "b", at: now.Add(-1 * time.Hour), likes: 4},
	}
	_ = Rank(posts, sig, Week, now, 0)
	if posts[0].id != "a" || posts[1].id != "b" {
		t.Fatalf("input slice was reordered: %v", posts)
	}
}

func TestRank_Empty(t *testing.T) {
	if got := Rank[post](nil, sig, Week, now, 0); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %v", got)
	}
}
