package memory_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/usecase/memory"
)

func TestRecallRequiresQueryOrDate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, memory.DefaultConfig())

	_, err := env.uc.Recall(ctx, memory.RecallInput{AgentID: "agent-1"})
	gt.Error(t, err)
	if !errors.Is(err, memory.ErrQueryOrDateRequired) {
		t.Errorf("expected ErrQueryOrDateRequired, got %v", err)
	}

	_, err = env.uc.Recall(ctx, memory.RecallInput{
		AgentID: "agent-1", Query: "dark mode", Date: "2026-02-10",
	})
	gt.Error(t, err)
	if !errors.Is(err, memory.ErrQueryAndDateGiven) {
		t.Errorf("expected ErrQueryAndDateGiven, got %v", err)
	}
}

func TestRecallRejectsMalformedDates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, memory.DefaultConfig())

	for _, date := range []string{"yesterday", "2026-02-30", "2026/02/10", "../core", "..\\core"} {
		_, err := env.uc.Recall(ctx, memory.RecallInput{AgentID: "agent-1", Date: date})
		gt.Error(t, err)
		if !errors.Is(err, model.ErrInvalidDate) {
			t.Errorf("expected ErrInvalidDate for %q, got %v", date, err)
		}
	}
}

func TestRecallByDateMissing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, memory.DefaultConfig())

	out, err := env.uc.Recall(ctx, memory.RecallInput{AgentID: "agent-1", Date: "2026-02-11"})
	gt.NoError(t, err)
	gt.Equal(t, out, "No memory log found for 2026-02-11")
}

func TestRecallByDateVerbatim(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, memory.DefaultConfig())

	_, err := env.uc.Save(ctx, memory.SaveInput{
		AgentID: "agent-1", Content: "User prefers dark mode", Category: "preference",
	})
	gt.NoError(t, err)

	out, err := env.uc.Recall(ctx, memory.RecallInput{AgentID: "agent-1", Date: "2026-02-10"})
	gt.NoError(t, err)

	content, err := env.docs.Read(ctx, "agents/agent-1/memory/2026-02-10.md")
	gt.NoError(t, err)
	gt.Equal(t, out, content)

	// Reading is repeatable and unchanged
	again, err := env.uc.Recall(ctx, memory.RecallInput{AgentID: "agent-1", Date: "2026-02-10"})
	gt.NoError(t, err)
	gt.Equal(t, again, out)
}

func TestRecallByDateOverBudget(t *testing.T) {
	ctx := context.Background()
	cfg := memory.DefaultConfig()
	cfg.OutputMaxChars = 50
	env := newTestEnv(t, cfg)

	_, err := env.uc.Save(ctx, memory.SaveInput{
		AgentID: "agent-1",
		Content: strings.Repeat("a long line of notes ", 10),
	})
	gt.NoError(t, err)

	out, err := env.uc.Recall(ctx, memory.RecallInput{AgentID: "agent-1", Date: "2026-02-10"})
	gt.NoError(t, err)

	// Never a silent cut: the caller is told to pick a budget
	gt.S(t, out).Contains("over the 50 character budget")
	gt.S(t, out).Contains("Retry with max_chars")
	gt.S(t, out).NotContains("a long line")
}

func TestRecallByDateMaxChars(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, memory.DefaultConfig())

	_, err := env.uc.Save(ctx, memory.SaveInput{
		AgentID: "agent-1",
		Content: strings.Repeat("note ", 40),
	})
	gt.NoError(t, err)

	content, err := env.docs.Read(ctx, "agents/agent-1/memory/2026-02-10.md")
	gt.NoError(t, err)
	total := len([]rune(content))

	out, err := env.uc.Recall(ctx, memory.RecallInput{
		AgentID: "agent-1", Date: "2026-02-10", MaxChars: 60,
	})
	gt.NoError(t, err)
	gt.S(t, out).Contains(fmt.Sprintf("... (%d characters omitted)", total-60))
	gt.True(t, strings.HasPrefix(out, string([]rune(content)[:60])))
}

func TestRecallBySearch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, memory.DefaultConfig())

	_, err := env.uc.Save(ctx, memory.SaveInput{
		AgentID: "agent-1", Content: "User prefers dark mode", Category: "preference",
	})
	gt.NoError(t, err)

	env.clock = env.clock.Add(24 * time.Hour)
	_, err = env.uc.Save(ctx, memory.SaveInput{
		AgentID: "agent-1", Content: "Lunch was a sandwich",
	})
	gt.NoError(t, err)

	env.drain()

	out, err := env.uc.Recall(ctx, memory.RecallInput{AgentID: "agent-1", Query: "dark mode"})
	gt.NoError(t, err)
	gt.S(t, out).Contains("Found 1 related memories:")
	gt.S(t, out).Contains("User prefers dark mode")
	gt.S(t, out).Contains("2026-02-10")
	gt.S(t, out).NotContains("sandwich")
}

func TestRecallBySearchNothingFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, memory.DefaultConfig())

	_, err := env.uc.Save(ctx, memory.SaveInput{
		AgentID: "agent-1", Content: "Lunch was a sandwich",
	})
	gt.NoError(t, err)
	env.drain()

	out, err := env.uc.Recall(ctx, memory.RecallInput{AgentID: "agent-1", Query: "dark mode"})
	gt.NoError(t, err)
	gt.Equal(t, out, "No related memories found.")
}

func TestRecallBySearchOutputBudget(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, memory.DefaultConfig())

	for _, content := range []string{"deploy a", "deploy b", "deploy c"} {
		_, err := env.uc.Save(ctx, memory.SaveInput{AgentID: "agent-1", Content: content})
		gt.NoError(t, err)
		env.clock = env.clock.Add(24 * time.Hour)
	}
	env.drain()

	out, err := env.uc.Recall(ctx, memory.RecallInput{
		AgentID: "agent-1", Query: "deploy", Limit: 10, MaxChars: 90,
	})
	gt.NoError(t, err)
	gt.S(t, out).Contains("Found 3 related memories:")
	gt.S(t, out).Contains("(showing 1 of 3 results; output budget reached)")

	// Ties on similarity resolve to the most recent source first
	gt.S(t, out).Contains("deploy c")
	gt.S(t, out).NotContains("deploy a")
}

func TestRecallSnippetCap(t *testing.T) {
	ctx := context.Background()
	cfg := memory.DefaultConfig()
	cfg.SnippetMaxChars = 30
	env := newTestEnv(t, cfg)

	_, err := env.uc.Save(ctx, memory.SaveInput{
		AgentID: "agent-1",
		Content: "deploy checklist " + strings.Repeat("step ", 30),
	})
	gt.NoError(t, err)
	env.drain()

	out, err := env.uc.Recall(ctx, memory.RecallInput{AgentID: "agent-1", Query: "deploy"})
	gt.NoError(t, err)
	gt.S(t, out).Contains("...")

	// The snippet body stays within its cap plus the ellipsis
	lines := strings.Split(out, "\n")
	for _, line := range lines {
		gt.True(t, len([]rune(line)) <= cfg.SnippetMaxChars+len("..."))
	}
}

func TestReindexRebuildsFromDocuments(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, memory.DefaultConfig())

	_, err := env.uc.Save(ctx, memory.SaveInput{
		AgentID: "agent-1", Content: "User prefers dark mode", Category: "preference",
	})
	gt.NoError(t, err)
	env.drain()

	chunksBefore, err := env.repo.ListChunks(ctx, model.CollectionMemory, "agent-1")
	gt.NoError(t, err)
	gt.A(t, chunksBefore).Longer(0)

	// Reindexing unchanged documents adds nothing
	msg, err := env.uc.Reindex(ctx, "agent-1")
	gt.NoError(t, err)
	gt.Equal(t, msg, "Reindexed 1 memory documents")

	chunksAfter, err := env.repo.ListChunks(ctx, model.CollectionMemory, "agent-1")
	gt.NoError(t, err)
	gt.Equal(t, len(chunksAfter), len(chunksBefore))
}
