package assessment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/mentalyze/server/internal/analysis"
	"github.com/mentalyze/server/internal/domain"
	"github.com/mentalyze/server/internal/session"
)

// fakeClient records Assess calls and returns a canned summary.
type fakeClient struct {
	mu        sync.Mutex
	assessed  [][]string
	summary   string
	assessErr error
}

func (f *fakeClient) Chat(context.Context, []domain.Turn) (string, error) {
	return "chat reply", nil
}

func (f *fakeClient) Assess(_ context.Context, _, answers []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]string, len(answers))
	copy(cp, answers)
	f.assessed = append(f.assessed, cp)
	return f.summary, f.assessErr
}

func newTestEngine(t *testing.T, questions []string, client analysis.Client) (*Engine, *session.Store) {
	t.Helper()
	bank, err := NewQuestionBank(questions)
	if err != nil {
		t.Fatalf("NewQuestionBank failed: %v", err)
	}
	store := session.NewStore()
	return NewEngine(bank, store, client), store
}

func TestNewQuestionBankRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := NewQuestionBank(nil); err == nil {
		t.Error("expected error for empty bank")
	}
	if _, err := NewQuestionBank([]string{"Q1", ""}); err == nil {
		t.Error("expected error for blank question")
	}
}

func TestStartReturnsFirstQuestion(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(t, []string{"Q1", "Q2"}, &fakeClient{summary: "done"})

	if got := engine.Start("alice"); got != "Q1" {
		t.Errorf("expected Q1, got %q", got)
	}
	if !engine.InProgress("alice") {
		t.Error("expected assessment in progress after start")
	}
}

func TestSubmitWalksBankInOrder(t *testing.T) {
	t.Parallel()

	questions := []string{"Q1", "Q2", "Q3", "Q4"}
	client := &fakeClient{summary: "your summary"}
	engine, store := newTestEngine(t, questions, client)
	ctx := context.Background()

	engine.Start("alice")

	for i := 0; i < len(questions)-1; i++ {
		res, err := engine.Submit(ctx, "alice", fmt.Sprintf("a%d", i))
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		if res.Done {
			t.Fatalf("submit %d: done too early", i)
		}
		if want := questions[i+1]; res.NextQuestion != want {
			t.Errorf("submit %d: expected next question %q, got %q", i, want, res.NextQuestion)
		}
	}

	res, err := engine.Submit(ctx, "alice", "a3")
	if err != nil {
		t.Fatalf("final submit failed: %v", err)
	}
	if !res.Done {
		t.Fatal("expected done on final submission")
	}
	if res.Analysis != "your summary" {
		t.Errorf("expected summary, got %q", res.Analysis)
	}
	if _, ok := store.Assessment("alice"); ok {
		t.Error("expected assessment state removed after completion")
	}
	if len(client.assessed) != 1 {
		t.Fatalf("expected one assess call, got %d", len(client.assessed))
	}
	want := []string{"a0", "a1", "a2", "a3"}
	for i, a := range want {
		if client.assessed[0][i] != a {
			t.Errorf("answer %d: expected %q, got %q", i, a, client.assessed[0][i])
		}
	}
}

func TestTwoQuestionExample(t *testing.T) {
	t.Parallel()

	client := &fakeClient{summary: "analysis text"}
	engine, store := newTestEngine(t, []string{"Q1", "Q2"}, client)
	ctx := context.Background()

	if q := engine.Start("alice"); q != "Q1" {
		t.Fatalf("expected Q1, got %q", q)
	}

	res, err := engine.Submit(ctx, "alice", "fine")
	if err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if res.Done || res.NextQuestion != "Q2" {
		t.Fatalf("expected {Q2, done=false}, got %+v", res)
	}

	res, err = engine.Submit(ctx, "alice", "ok")
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if !res.Done || res.Analysis != "analysis text" {
		t.Fatalf("expected {analysis, done=true}, got %+v", res)
	}
	if _, ok := store.Assessment("alice"); ok {
		t.Error("expected assessment absent after completion")
	}
}

func TestRestartDiscardsProgress(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(t, []string{"Q1", "Q2", "Q3"}, &fakeClient{})
	ctx := context.Background()

	engine.Start("alice")
	if _, err := engine.Submit(ctx, "alice", "a0"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Restart is a hard reset: prior answers are silently discarded.
	if q := engine.Start("alice"); q != "Q1" {
		t.Fatalf("expected restart to return Q1, got %q", q)
	}
	res, err := engine.Submit(ctx, "alice", "fresh")
	if err != nil {
		t.Fatalf("submit after restart failed: %v", err)
	}
	if res.NextQuestion != "Q2" {
		t.Errorf("expected index reset to 0 (next Q2), got %q", res.NextQuestion)
	}
}

func TestSubmitWithoutAssessment(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(t, []string{"Q1"}, &fakeClient{})

	_, err := engine.Submit(context.Background(), "alice", "hello")
	if !errors.Is(err, ErrNotInProgress) {
		t.Errorf("expected ErrNotInProgress, got %v", err)
	}
}

func TestAnalysisFailureStillEndsAssessment(t *testing.T) {
	t.Parallel()

	client := &fakeClient{assessErr: &analysis.ProviderError{Status: 500, Body: "boom"}}
	engine, store := newTestEngine(t, []string{"Q1"}, client)

	engine.Start("alice")
	res, err := engine.Submit(context.Background(), "alice", "answer")
	if !res.Done {
		t.Fatal("expected done despite analysis failure")
	}
	var pe *analysis.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if _, ok := store.Assessment("alice"); ok {
		t.Error("expected assessment removed regardless of analysis failure")
	}
}

func TestInvariantAnswersMatchIndex(t *testing.T) {
	t.Parallel()

	engine, store := newTestEngine(t, []string{"Q1", "Q2", "Q3"}, &fakeClient{})
	ctx := context.Background()

	engine.Start("alice")
	for i := 0; i < 2; i++ {
		if _, err := engine.Submit(ctx, "alice", "a"); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		st, ok := store.Assessment("alice")
		if !ok {
			t.Fatal("expected assessment present mid-run")
		}
		if len(st.Answers) != st.QuestionIndex {
			t.Errorf("after answer %d: len(answers)=%d, index=%d", i, len(st.Answers), st.QuestionIndex)
		}
	}
}

func TestConcurrentSubmitsAdvanceEveryIndexOnce(t *testing.T) {
	t.Parallel()

	const n = 8
	questions := make([]string, n)
	for i := range questions {
		questions[i] = fmt.Sprintf("Q%d", i+1)
	}
	client := &fakeClient{summary: "done"}
	engine, store := newTestEngine(t, questions, client)
	ctx := context.Background()

	engine.Start("alice")

	results := make(chan SubmitResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := engine.Submit(ctx, "alice", fmt.Sprintf("a%d", i))
			if err != nil {
				t.Errorf("concurrent submit failed: %v", err)
				return
			}
			results <- res
		}(i)
	}
	wg.Wait()
	close(results)

	var nexts []string
	doneCount := 0
	for res := range results {
		if res.Done {
			doneCount++
		} else {
			nexts = append(nexts, res.NextQuestion)
		}
	}

	if doneCount != 1 {
		t.Fatalf("expected exactly one done result, got %d", doneCount)
	}
	if len(nexts) != n-1 {
		t.Fatalf("expected %d next-question results, got %d", n-1, len(nexts))
	}

	// Each intermediate submission must advance to a distinct index: no
	// duplicates, no skips.
	sort.Strings(nexts)
	for i := 0; i < n-1; i++ {
		want := fmt.Sprintf("Q%d", i+2)
		if nexts[i] != want {
			t.Errorf("index advance %d: expected %q, got %q", i, want, nexts[i])
		}
	}

	if _, ok := store.Assessment("alice"); ok {
		t.Error("expected assessment removed after all answers")
	}
}
