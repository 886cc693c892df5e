package kb

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	terrors "github.com/fleettriage/fleettriage/internal/errors"
)

const (
	issueColumn    = "Customer_Issue"
	responseColumn = "Tech_Response"

	// DefaultThreshold is the minimum cosine similarity for a hit.
	DefaultThreshold = 0.5
)

var (
	issueTagPattern   = regexp.MustCompile(`\(issue \d+\)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Entry is one knowledge-base row.
type Entry struct {
	Issue    string
	Response string
}

// Result is the outcome of a similarity search. Found is false when the
// best score fell below the threshold; Score still carries the best score.
type Result struct {
	Response     string
	MatchedIssue string
	Score        float64
	Found        bool
}

// Retriever answers similarity queries over an embedded knowledge base.
// Vectors are L2-normalized at build time so inner product equals cosine
// similarity.
type Retriever struct {
	mu      sync.RWMutex
	entries []Entry
	vectors [][]float32
	embed   Embedder
}

// cleanIssue produces the lightweight matching form of an issue text.
func cleanIssue(s string) string {
	s = strings.ToLower(s)
	s = issueTagPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// LoadEntries reads knowledge-base rows from a CSV file. The file must
// carry Customer_Issue and Tech_Response columns.
func LoadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, terrors.Input("kb.load", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, terrors.Input("kb.load", path, err)
	}
	if len(records) == 0 {
		return nil, terrors.Input("kb.load", path, fmt.Errorf("empty knowledge base"))
	}

	issueIdx, responseIdx := -1, -1
	for i, name := range records[0] {
		switch strings.TrimSpace(name) {
		case issueColumn:
			issueIdx = i
		case responseColumn:
			responseIdx = i
		}
	}
	if issueIdx < 0 || responseIdx < 0 {
		return nil, terrors.Input("kb.load", path,
			fmt.Errorf("dataset must contain %q and %q columns", issueColumn, responseColumn))
	}

	entries := make([]Entry, 0, len(records)-1)
	for _, row := range records[1:] {
		var issue, response string
		if issueIdx < len(row) {
			issue = row[issueIdx]
		}
		if responseIdx < len(row) {
			response = row[responseIdx]
		}
		entries = append(entries, Entry{Issue: issue, Response: response})
	}
	return entries, nil
}

// NewRetriever embeds the cleaned issue texts and builds the index. Rows
// whose cleaned issue is empty are dropped; an all-empty set is an error.
func NewRetriever(ctx context.Context, embed Embedder, entries []Entry) (*Retriever, error) {
	r := &Retriever{embed: embed}
	if err := r.build(ctx, entries); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Retriever) build(ctx context.Context, entries []Entry) error {
	kept := make([]Entry, 0, len(entries))
	texts := make([]string, 0, len(entries))
	for _, e := range entries {
		cleaned := cleanIssue(e.Issue)
		if cleaned == "" {
			continue
		}
		kept = append(kept, e)
		texts = append(texts, cleaned)
	}
	if len(kept) == 0 {
		return terrors.Input("kb.index", "knowledge base",
			fmt.Errorf("no valid issues to index after cleaning"))
	}

	vectors, err := r.embed.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(kept) {
		return terrors.Dependency("kb.index", "embedder",
			fmt.Errorf("expected %d vectors, got %d", len(kept), len(vectors)))
	}
	for i := range vectors {
		normalize(vectors[i])
	}

	r.mu.Lock()
	r.entries = kept
	r.vectors = vectors
	r.mu.Unlock()

	log.Info().Int("entries", len(kept)).Msg("Knowledge base indexed")
	return nil
}

// Reload re-embeds a fresh entry set, swapping the index atomically with
// respect to concurrent searches.
func (r *Retriever) Reload(ctx context.Context, entries []Entry) error {
	return r.build(ctx, entries)
}

// Len returns the number of indexed entries.
func (r *Retriever) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Search embeds the query and returns the best hit if its cosine
// similarity meets the threshold. topK is accepted for interface parity
// but only the best hit is consulted. A blank query returns an empty
// miss without calling the embedder.
func (r *Retriever) Search(ctx context.Context, query string, topK int, threshold float64) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, nil
	}
	_ = topK

	vecs, err := r.embed.Embed(ctx, []string{query})
	if err != nil {
		return Result{}, err
	}
	if len(vecs) != 1 {
		return Result{}, terrors.Dependency("kb.search", "embedder",
			fmt.Errorf("expected 1 query vector, got %d", len(vecs)))
	}
	q := vecs[0]
	normalize(q)

	r.mu.RLock()
	defer r.mu.RUnlock()

	bestIdx, bestScore := -1, math.Inf(-1)
	for i, v := range r.vectors {
		s := dot(q, v)
		if s > bestScore {
			bestIdx, bestScore = i, s
		}
	}
	if bestIdx < 0 {
		return Result{}, nil
	}

	score := clamp01(bestScore)
	if score < threshold {
		return Result{Score: score}, nil
	}
	return Result{
		Response:     r.entries[bestIdx].Response,
		MatchedIssue: r.entries[bestIdx].Issue,
		Score:        score,
		Found:        true,
	}, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
