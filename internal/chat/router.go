package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fleettriage/fleettriage/internal/chat/providers"
	"github.com/fleettriage/fleettriage/internal/kb"
	"github.com/fleettriage/fleettriage/internal/metrics"
)

const (
	kbFooter       = "Source: Knowledge Base (RAG)"
	contextFooter  = "Source: GPT with context"
	fallbackFooter = "Source: GPT fallback"

	// errorAnswer is returned untouched when every generator path fails.
	errorAnswer = "Failed to get an answer. Please try again."

	retrievalTopK = 3
)

// Searcher is the retrieval capability the router needs.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, threshold float64) (kb.Result, error)
}

// Router answers questions by choosing between a contextual follow-up
// path, a knowledge-base retrieval path, and a plain generator fallback.
// Every question produces exactly one bot turn in the session history.
type Router struct {
	store     *Store
	search    Searcher
	gen       providers.Provider
	threshold float64
}

// NewRouter creates a conversation router. A non-positive threshold uses
// the retrieval default.
func NewRouter(store *Store, search Searcher, gen providers.Provider, threshold float64) *Router {
	if threshold <= 0 {
		threshold = kb.DefaultThreshold
	}
	return &Router{store: store, search: search, gen: gen, threshold: threshold}
}

// Store returns the underlying session store.
func (r *Router) Store() *Store {
	return r.store
}

// Ask routes one question within a session. An empty sessionID starts a
// new session. Ask never returns an error for generator failures; those
// surface as an error-source answer.
func (r *Router) Ask(ctx context.Context, sessionID, question string) Answer {
	s := r.store.GetOrCreate(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastActivity = time.Now()
	s.History = append(s.History, Turn{
		Role:      RoleUser,
		Content:   question,
		Timestamp: time.Now(),
	})

	isFollowup := isFollowupQuestion(question, s)

	// Follow-up about a served solution: answer from conversation context.
	if isFollowup && s.Solution != "" {
		answer, err := r.askWithContext(ctx, question, buildConversationContext(s))
		if err == nil {
			return r.reply(s, Answer{
				Source:     SourceContext,
				Answer:     answer,
				SessionID:  s.ID,
				IsFollowup: true,
			})
		}
		log.Warn().Err(err).Str("session_id", s.ID).Msg("Contextual answer failed, falling back")
	}

	res, err := r.search.Search(ctx, question, retrievalTopK, r.threshold)
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("Retrieval failed, treating as miss")
		res = kb.Result{}
	} else {
		log.Debug().
			Float64("score", res.Score).
			Str("matched_issue", res.MatchedIssue).
			Msg("Retrieval scored")
	}

	if res.Found && !isFollowup {
		s.Problem = question
		s.Solution = res.Response
		s.CurrentStep = 1

		polished := res.Response
		if resp, err := r.gen.Chat(ctx, providers.ChatRequest{
			Messages: []providers.Message{{Role: "user", Content: kbRestylePrompt(question, res.Response)}},
		}); err == nil {
			polished = resp.Content
		} else {
			metrics.GeneratorFailuresTotal.Inc()
			log.Warn().Err(err).Str("session_id", s.ID).Msg("KB restyle failed, serving raw KB answer")
		}

		score := res.Score
		return r.reply(s, Answer{
			Source:     SourceKB,
			Similarity: &score,
			Answer:     polished + "\n\n" + kbFooter,
			SessionID:  s.ID,
		})
	}
	if res.Found && isFollowup {
		log.Info().
			Float64("score", res.Score).
			Str("session_id", s.ID).
			Msg("Follow-up matched knowledge base, answering with context instead")
	}

	// Generator fallback, with conversation context when one exists.
	var (
		answer string
		footer = fallbackFooter
	)
	if s.Problem != "" && s.Solution != "" {
		footer = contextFooter
		answer, err = r.askWithContext(ctx, question, buildConversationContext(s))
	} else {
		answer, err = r.askPlain(ctx, question)
	}
	if err != nil {
		metrics.GeneratorFailuresTotal.Inc()
		log.Error().Err(err).Str("session_id", s.ID).Msg("All answer paths failed")
		return r.reply(s, Answer{
			Source:    SourceError,
			Answer:    errorAnswer,
			SessionID: s.ID,
		})
	}

	return r.reply(s, Answer{
		Source:    SourceFallback,
		Answer:    answer + "\n\n" + footer,
		SessionID: s.ID,
	})
}

// reply records the bot turn and counts the answer. Call with the
// session lock held.
func (r *Router) reply(s *Session, a Answer) Answer {
	s.History = append(s.History, Turn{
		Role:      RoleBot,
		Content:   a.Answer,
		Timestamp: time.Now(),
		Source:    a.Source,
	})
	metrics.ChatAnswersTotal.WithLabelValues(a.Source).Inc()
	return a
}

func (r *Router) askPlain(ctx context.Context, question string) (string, error) {
	resp, err := r.gen.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{{Role: "user", Content: question}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// askWithContext tries the contextual prompt first and retries with the
// bare question before giving up.
func (r *Router) askWithContext(ctx context.Context, question, context string) (string, error) {
	resp, err := r.gen.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{{Role: "user", Content: contextPrompt(question, context)}},
	})
	if err == nil {
		return resp.Content, nil
	}
	log.Warn().Err(err).Msg("Contextual prompt failed, retrying without context")
	return r.askPlain(ctx, question)
}
