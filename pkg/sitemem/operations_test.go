package sitemem

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/dtnitsch/surfcore/models"
)

func TestRecordOutcome_CreatesRecord(t *testing.T) {
	store := setupTestStore(t)

	err := store.RecordOutcome("example.com", models.CategoryNews, "article h1", true, 120*time.Millisecond)
	if err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}

	rec, err := store.Host("example.com")
	if err != nil {
		t.Fatalf("Host() failed: %v", err)
	}
	if rec.AccessCount != 1 {
		t.Errorf("access count = %d, want 1", rec.AccessCount)
	}
	if rec.SuccessRate != 1.0 {
		t.Errorf("success rate = %v, want 1.0", rec.SuccessRate)
	}

	stats := rec.Selectors[models.CategoryNews]["article h1"]
	if stats == nil {
		t.Fatal("selector stats missing after RecordOutcome()")
	}
	if stats.Uses != 1 {
		t.Errorf("selector uses = %d, want 1", stats.Uses)
	}
	if stats.SuccessRate != 1.0 {
		t.Errorf("selector success rate = %v, want 1.0", stats.SuccessRate)
	}
	if stats.AvgLatencyMs != 120 {
		t.Errorf("selector latency = %v, want 120", stats.AvgLatencyMs)
	}
}

func TestRecordOutcome_MovingAverage(t *testing.T) {
	store := setupTestStore(t) // alpha 0.1

	if err := store.RecordOutcome("example.com", models.CategoryNews, "article", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}
	if err := store.RecordOutcome("example.com", models.CategoryNews, "article", false, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}

	rec, err := store.Host("example.com")
	if err != nil {
		t.Fatalf("Host() failed: %v", err)
	}

	// First outcome seeds the rate at 1.0; the failure then moves it to
	// 0.1*0 + 0.9*1.0 = 0.9. A reset-style implementation would report 0.5 or 0.
	if math.Abs(rec.SuccessRate-0.9) > 1e-9 {
		t.Errorf("host success rate = %v, want 0.9", rec.SuccessRate)
	}

	stats := rec.Selectors[models.CategoryNews]["article"]
	if stats == nil {
		t.Fatal("selector stats missing")
	}
	if math.Abs(stats.SuccessRate-0.9) > 1e-9 {
		t.Errorf("selector success rate = %v, want 0.9", stats.SuccessRate)
	}
	if stats.Uses != 2 {
		t.Errorf("selector uses = %d, want 2", stats.Uses)
	}
}

func TestRecordOutcome_ConcurrentAccessCount(t *testing.T) {
	store := setupTestStore(t)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			selector := "article"
			if i%2 == 1 {
				selector = "main .content"
			}
			if err := store.RecordOutcome("example.com", models.CategoryNews, selector, i%3 != 0, time.Millisecond); err != nil {
				t.Errorf("RecordOutcome() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	rec, err := store.Host("example.com")
	if err != nil {
		t.Fatalf("Host() failed: %v", err)
	}
	if rec.AccessCount != n {
		t.Errorf("access count after %d concurrent outcomes = %d, want %d", n, rec.AccessCount, n)
	}

	var uses int64
	for _, stats := range rec.Selectors[models.CategoryNews] {
		uses += stats.Uses
	}
	if uses != n {
		t.Errorf("total selector uses = %d, want %d", uses, n)
	}
}

func TestRecordOutcome_EmptyHost(t *testing.T) {
	store := setupTestStore(t)

	err := store.RecordOutcome("", models.CategoryNews, "article", true, 0)
	if !models.IsKind(err, models.ErrValidation) {
		t.Errorf("RecordOutcome(\"\") error = %v, want validation error", err)
	}
}

func TestRecordOutcome_NormalizesHostKey(t *testing.T) {
	store := setupTestStore(t)

	if err := store.RecordOutcome("https://WWW.Example.com/some/page", models.CategoryBlog, "article", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}
	if err := store.RecordOutcome("example.com:443", models.CategoryBlog, "article", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}

	rec, err := store.Host("example.com")
	if err != nil {
		t.Fatalf("Host() failed: %v", err)
	}
	if rec.AccessCount != 2 {
		t.Errorf("access count = %d, want 2 (URL and host:port should share one key)", rec.AccessCount)
	}
}

func TestBestStrategy_UnknownHost(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.BestStrategy("never-seen.example.com", models.CategoryNews)
	if !models.IsKind(err, models.ErrNotFound) {
		t.Errorf("BestStrategy() error = %v, want not found", err)
	}
}

func TestBestStrategy_UnknownCategory(t *testing.T) {
	store := setupTestStore(t)

	if err := store.RecordOutcome("example.com", models.CategoryNews, "article", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}

	_, err := store.BestStrategy("example.com", models.CategoryForum)
	if !models.IsKind(err, models.ErrNotFound) {
		t.Errorf("BestStrategy() error = %v, want not found for unseen category", err)
	}
}

func TestBestStrategy_AfterFirstSuccess(t *testing.T) {
	store := setupTestStore(t)

	if err := store.RecordOutcome("example.com", models.CategoryNews, "article h1", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}

	strat, err := store.BestStrategy("example.com", models.CategoryNews)
	if err != nil {
		t.Fatalf("BestStrategy() failed: %v", err)
	}
	if strat.Selector != "article h1" {
		t.Errorf("selector = %q, want %q", strat.Selector, "article h1")
	}
	if strat.SuccessRate != 1.0 {
		t.Errorf("success rate = %v, want 1.0", strat.SuccessRate)
	}
	if strat.Uses != 1 {
		t.Errorf("uses = %d, want 1", strat.Uses)
	}
}

func TestBestStrategy_PrefersHigherRate(t *testing.T) {
	store := setupTestStore(t)

	// "weak" sees a failure, "strong" only successes.
	for i := 0; i < 2; i++ {
		if err := store.RecordOutcome("example.com", models.CategoryNews, "strong", true, 0); err != nil {
			t.Fatalf("RecordOutcome() failed: %v", err)
		}
	}
	if err := store.RecordOutcome("example.com", models.CategoryNews, "weak", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}
	if err := store.RecordOutcome("example.com", models.CategoryNews, "weak", false, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}

	strat, err := store.BestStrategy("example.com", models.CategoryNews)
	if err != nil {
		t.Fatalf("BestStrategy() failed: %v", err)
	}
	if strat.Selector != "strong" {
		t.Errorf("selector = %q, want %q", strat.Selector, "strong")
	}
}

func TestBestStrategy_DeterministicTie(t *testing.T) {
	store := setupTestStore(t)

	// Identical stats: the lexically smaller selector must win every time.
	if err := store.RecordOutcome("example.com", models.CategoryNews, "zeta", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}
	if err := store.RecordOutcome("example.com", models.CategoryNews, "alpha", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		strat, err := store.BestStrategy("example.com", models.CategoryNews)
		if err != nil {
			t.Fatalf("BestStrategy() failed: %v", err)
		}
		if strat.Selector != "alpha" {
			t.Errorf("tie-break selector = %q, want %q", strat.Selector, "alpha")
		}
	}
}

func TestRecordWaitPolicy(t *testing.T) {
	store := setupTestStore(t)

	if err := store.RecordOutcome("example.com", models.CategoryNews, "article", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}
	if err := store.RecordWaitPolicy("example.com", "networkidle"); err != nil {
		t.Fatalf("RecordWaitPolicy() failed: %v", err)
	}

	rec, err := store.Host("example.com")
	if err != nil {
		t.Fatalf("Host() failed: %v", err)
	}
	if rec.WaitPolicy != "networkidle" {
		t.Errorf("wait policy = %q, want %q", rec.WaitPolicy, "networkidle")
	}
	if rec.AccessCount != 1 {
		t.Errorf("access count = %d, want 1 (wait policy writes must not count as outcomes)", rec.AccessCount)
	}

	strat, err := store.BestStrategy("example.com", models.CategoryNews)
	if err != nil {
		t.Fatalf("BestStrategy() failed: %v", err)
	}
	if strat.WaitPolicy != "networkidle" {
		t.Errorf("strategy wait policy = %q, want %q", strat.WaitPolicy, "networkidle")
	}
}

func TestTopHosts(t *testing.T) {
	store := setupTestStore(t)

	// busy.example.com: 3 outcomes, one failed. quiet.example.com: 1 success.
	// flaky.example.com: 2 outcomes, both failed.
	for _, outcome := range []bool{true, true, false} {
		if err := store.RecordOutcome("busy.example.com", models.CategoryNews, "article", outcome, 0); err != nil {
			t.Fatalf("RecordOutcome() failed: %v", err)
		}
	}
	if err := store.RecordOutcome("quiet.example.com", models.CategoryBlog, "main", true, 0); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.RecordOutcome("flaky.example.com", models.CategoryForum, ".post", false, 0); err != nil {
			t.Fatalf("RecordOutcome() failed: %v", err)
		}
	}

	byAccess, err := store.TopHosts(10, RankByAccess)
	if err != nil {
		t.Fatalf("TopHosts(access) failed: %v", err)
	}
	wantAccess := []string{"busy.example.com", "flaky.example.com", "quiet.example.com"}
	if len(byAccess) != len(wantAccess) {
		t.Fatalf("TopHosts(access) returned %d hosts, want %d", len(byAccess), len(wantAccess))
	}
	for i, want := range wantAccess {
		if byAccess[i].Host != want {
			t.Errorf("TopHosts(access)[%d] = %q, want %q", i, byAccess[i].Host, want)
		}
	}

	bySuccess, err := store.TopHosts(10, RankBySuccess)
	if err != nil {
		t.Fatalf("TopHosts(success) failed: %v", err)
	}
	if bySuccess[0].Host != "quiet.example.com" {
		t.Errorf("TopHosts(success)[0] = %q, want %q", bySuccess[0].Host, "quiet.example.com")
	}
	if bySuccess[len(bySuccess)-1].Host != "flaky.example.com" {
		t.Errorf("TopHosts(success) last = %q, want %q", bySuccess[len(bySuccess)-1].Host, "flaky.example.com")
	}

	limited, err := store.TopHosts(2, RankByAccess)
	if err != nil {
		t.Fatalf("TopHosts(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("TopHosts(2) returned %d hosts, want 2", len(limited))
	}

	if _, err := store.TopHosts(10, RankBy("bogus")); !models.IsKind(err, models.ErrValidation) {
		t.Errorf("TopHosts(bogus) error = %v, want validation error", err)
	}
}

func TestTopHosts_TiesOrderedByHost(t *testing.T) {
	store := setupTestStore(t)

	for _, host := range []string{"c.example.com", "a.example.com", "b.example.com"} {
		if err := store.RecordOutcome(host, models.CategoryNews, "article", true, 0); err != nil {
			t.Fatalf("RecordOutcome() failed: %v", err)
		}
	}

	hosts, err := store.TopHosts(10, RankByAccess)
	if err != nil {
		t.Fatalf("TopHosts() failed: %v", err)
	}
	want := []string{"a.example.com", "b.example.com", "c.example.com"}
	for i, w := range want {
		if hosts[i].Host != w {
			t.Errorf("TopHosts()[%d] = %q, want %q", i, hosts[i].Host, w)
		}
	}
}

func TestCount(t *testing.T) {
	store := setupTestStore(t)

	n, err := store.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Count() on empty store = %d, want 0", n)
	}

	for _, host := range []string{"a.example.com", "b.example.com"} {
		if err := store.RecordOutcome(host, models.CategoryNews, "article", true, 0); err != nil {
			t.Fatalf("RecordOutcome() failed: %v", err)
		}
	}

	n, err = store.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestHost_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Host("never-seen.example.com")
	if !models.IsKind(err, models.ErrNotFound) {
		t.Errorf("Host() error = %v, want not found", err)
	}
}

// Records accumulate forever: nothing in the store expires or evicts them.
func TestRecords_NeverEvicted(t *testing.T) {
	store := setupTestStore(t)

	const hosts = 200
	for i := 0; i < hosts; i++ {
		host := fmt.Sprintf("host-%03d.example.com", i)
		if err := store.RecordOutcome(host, models.CategoryGeneral, "body", true, 0); err != nil {
			t.Fatalf("RecordOutcome() failed: %v", err)
		}
	}

	n, err := store.Count()
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != hosts {
		t.Errorf("Count() = %d, want %d (records must never be evicted)", n, hosts)
	}
}
