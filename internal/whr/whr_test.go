package whr_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/tommoa/writing-bench/internal/whr"
	"github.com/tommoa/writing-bench/pkg/types"
)

func ratingsEqual(t *testing.T, a, b map[string]whr.PlayerRating) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("rating set sizes differ: %d vs %d", len(a), len(b))
	}
	for k, ra := range a {
		rb, ok := b[k]
		if !ok {
			t.Fatalf("player %s missing from second set", k)
		}
		if ra.Elo != rb.Elo {
			t.Errorf("player %s: elo %d != %d", k, ra.Elo, rb.Elo)
		}
		if math.Abs(ra.CI95-rb.CI95) > 1e-6 && !(math.IsInf(ra.CI95, 1) && math.IsInf(rb.CI95, 1)) {
			t.Errorf("player %s: ci95 %v != %v", k, ra.CI95, rb.CI95)
		}
	}
}

func TestCompute_OrderIndependence(t *testing.T) {
	games := []whr.Game{
		{White: "a", Black: "b", Result: 1.0, Weight: 1.0},
		{White: "b", Black: "c", Result: 0.5, Weight: 1.0},
		{White: "a", Black: "c", Result: 0.0, Weight: 1.0},
		{White: "c", Black: "a", Result: 1.0, Weight: 1.0},
	}

	base, err := whr.Compute(games)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	perm := append([]whr.Game(nil), games...)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		got, err := whr.Compute(perm)
		if err != nil {
			t.Fatalf("Compute (shuffled): %v", err)
		}
		ratingsEqual(t, base.Ratings, got.Ratings)
	}
}

func TestCompute_SelfPlayIgnored(t *testing.T) {
	games := []whr.Game{
		{White: "a", Black: "b", Result: 1.0, Weight: 1.0},
		{White: "b", Black: "a", Result: 0.0, Weight: 1.0},
	}
	withSelfPlay := append([]whr.Game{
		{White: "a", Black: "a", Result: 1.0, Weight: 1.0},
		{White: "a", Black: "a", Result: 0.5, Weight: 1.0},
		{White: "b", Black: "b", Result: 0.0, Weight: 1.0},
	}, games...)

	base, err := whr.Compute(games)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	withExtra, err := whr.Compute(withSelfPlay)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	ratingsEqual(t, base.Ratings, withExtra.Ratings)
}

func TestCompute_RoundRobinEqualStrength(t *testing.T) {
	var games []whr.Game
	models := []string{"m1", "m2", "m3"}
	for i, a := range models {
		for _, b := range models[i+1:] {
			for k := 0; k < 5; k++ {
				games = append(games, whr.Game{White: a, Black: b, Result: 1.0, Weight: 1.0})
				games = append(games, whr.Game{White: a, Black: b, Result: 0.0, Weight: 1.0})
			}
		}
	}

	res, err := whr.Compute(games)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, m := range models {
		r := res.Ratings[m]
		if math.Abs(float64(r.Elo-1500)) > 5 {
			t.Errorf("model %s: elo = %d, want ~1500", m, r.Elo)
		}
		if r.CI95 >= 60 {
			t.Errorf("model %s: ci95 = %v, want < 60", m, r.CI95)
		}
	}
}

func TestCompute_DominanceTriangle(t *testing.T) {
	games := []whr.Game{
		{White: "a", Black: "b", Result: 1.0, Weight: 1.0},
		{White: "a", Black: "b", Result: 1.0, Weight: 1.0},
		{White: "b", Black: "c", Result: 1.0, Weight: 1.0},
		{White: "b", Black: "c", Result: 1.0, Weight: 1.0},
		{White: "a", Black: "c", Result: 1.0, Weight: 1.0},
	}

	res, err := whr.Compute(games)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	a, b, c := res.Ratings["a"], res.Ratings["b"], res.Ratings["c"]
	if !(a.Elo > b.Elo && b.Elo > c.Elo) {
		t.Errorf("expected a > b > c, got a=%d b=%d c=%d", a.Elo, b.Elo, c.Elo)
	}
	for name, r := range map[string]whr.PlayerRating{"a": a, "b": b, "c": c} {
		if math.IsInf(r.CI95, 1) || r.CI95 <= 0 {
			t.Errorf("model %s: ci95 = %v, want finite and positive", name, r.CI95)
		}
	}
}

func TestCompute_EmptyAndSingle(t *testing.T) {
	res, err := whr.Compute(nil)
	if err != nil {
		t.Fatalf("Compute(nil): %v", err)
	}
	if len(res.Ratings) != 0 {
		t.Errorf("expected empty result for n=0, got %d ratings", len(res.Ratings))
	}

	// WHR only rates players that show up in at least one non-self-play
	// game. A player whose only games are against itself is skipped along
	// with those games, so a self-play-only input behaves like an empty one.
	res, err = whr.Compute([]whr.Game{{White: "solo", Black: "solo", Result: 1.0, Weight: 1.0}})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(res.Ratings) != 0 {
		t.Errorf("self-play-only input should yield no rated players, got %d", len(res.Ratings))
	}
}

func TestMergeRecords_CommutativeAssociative(t *testing.T) {
	rA := []types.PairwiseRecord{{ModelA: "m1", ModelB: "m2", WinsA: 3, WinsB: 1}}
	rB := []types.PairwiseRecord{{ModelA: "m2", ModelB: "m1", WinsA: 2, WinsB: 4, Ties: 1}}

	ab := whr.MergeRecords(rA, rB)
	ba := whr.MergeRecords(rB, rA)
	if len(ab) != 1 || len(ba) != 1 {
		t.Fatalf("expected a single merged record, got %d and %d", len(ab), len(ba))
	}
	if ab[0] != ba[0] {
		t.Errorf("merge not commutative: %+v vs %+v", ab[0], ba[0])
	}

	rC := []types.PairwiseRecord{{ModelA: "m1", ModelB: "m2", WinsA: 0, WinsB: 1}}
	left := whr.MergeRecords(whr.MergeRecords(rA, rB), rC)
	right := whr.MergeRecords(rA, whr.MergeRecords(rB, rC))
	if left[0] != right[0] {
		t.Errorf("merge not associative: %+v vs %+v", left[0], right[0])
	}
}
