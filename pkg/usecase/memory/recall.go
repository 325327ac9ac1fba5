package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/service/index"
)

var (
	ErrQueryOrDateRequired = goerr.New("either query or date is required")
	ErrQueryAndDateGiven   = goerr.New("only one of query or date may be given")
)

// RecallInput describes one recall_memory call. Exactly one of Query and Date
// must be set. MaxChars of zero means the caller gave no explicit budget.
type RecallInput struct {
	AgentID  model.AgentID
	Query    string
	Date     string
	Limit    int
	MaxChars int
}

// Recall retrieves memory either by semantic search (Query) or by reading a
// daily log verbatim (Date). All expected outcomes, including "nothing found"
// and over-budget notices, are returned as text.
func (u *UseCase) Recall(ctx context.Context, input RecallInput) (string, error) {
	if err := input.AgentID.Validate(); err != nil {
		return "", err
	}
	if input.Query == "" && input.Date == "" {
		return "", goerr.Wrap(ErrQueryOrDateRequired, "recall needs a query or a date")
	}
	if input.Query != "" && input.Date != "" {
		return "", goerr.Wrap(ErrQueryAndDateGiven, "pass query or date, not both")
	}

	if input.Date != "" {
		return u.recallByDate(ctx, input)
	}
	return u.recallBySearch(ctx, input)
}

// recallByDate returns a daily log verbatim, subject to the output budget.
// The date is validated before any storage access.
func (u *UseCase) recallByDate(ctx context.Context, input RecallInput) (string, error) {
	date, err := model.ParseLogDate(input.Date)
	if err != nil {
		return "", err
	}

	key := model.LogDocumentKey(input.AgentID, date)
	content, err := u.docs.Read(ctx, key)
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return fmt.Sprintf("No memory log found for %s", date), nil
		}
		return "", goerr.Wrap(err, "failed to read memory log", goerr.V("key", key))
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Sprintf("No memory log found for %s", date), nil
	}

	runes := []rune(content)

	if input.MaxChars <= 0 {
		if len(runes) <= u.config.OutputMaxChars {
			return content, nil
		}
		// Never truncate silently: tell the caller to choose a budget
		return fmt.Sprintf(
			"Memory log for %s is %d characters, over the %d character budget. Retry with max_chars to read a portion.",
			date, len(runes), u.config.OutputMaxChars), nil
	}

	if len(runes) <= input.MaxChars {
		return content, nil
	}

	omitted := len(runes) - input.MaxChars
	return string(runes[:input.MaxChars]) + fmt.Sprintf("\n... (%d characters omitted)", omitted), nil
}

// recallBySearch runs ranked semantic search and formats the hits under the
// per-snippet and total output budgets.
func (u *UseCase) recallBySearch(ctx context.Context, input RecallInput) (string, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = u.config.DefaultLimit
	}
	budget := input.MaxChars
	if budget <= 0 {
		budget = u.config.OutputMaxChars
	}

	out, err := u.indexer.Search(ctx, index.SearchInput{
		Query:         input.Query,
		Collection:    model.CollectionMemory,
		AgentID:       input.AgentID,
		Limit:         limit,
		MinSimilarity: u.config.MinSimilarity,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to search memory")
	}

	if len(out.Results) == 0 {
		return "No related memories found.", nil
	}

	header := fmt.Sprintf("Found %d related memories:\n", len(out.Results))

	var b strings.Builder
	b.WriteString(header)

	shown := 0
	for _, res := range out.Results {
		snippet := formatSnippet(res, u.config.SnippetMaxChars)
		if len([]rune(b.String()))+len([]rune(snippet)) > budget {
			break
		}
		b.WriteString(snippet)
		shown++
	}

	if shown < len(out.Results) {
		b.WriteString(fmt.Sprintf("(showing %d of %d results; output budget reached)\n",
			shown, len(out.Results)))
	}

	return b.String(), nil
}

// formatSnippet renders one hit with its similarity percentage and source date
func formatSnippet(res index.SearchResult, maxChars int) string {
	date := "unknown date"
	if !res.Chunk.SourceUpdatedAt.IsZero() {
		date = res.Chunk.SourceUpdatedAt.Format("2006-01-02")
	}

	content := res.Chunk.Content
	if runes := []rune(content); len(runes) > maxChars {
		content = string(runes[:maxChars]) + "..."
	}

	return fmt.Sprintf("\n[%d%% | %s]\n%s\n", int(res.Similarity*100), date, content)
}
