package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleettriage/fleettriage/internal/chat/providers"
	"github.com/fleettriage/fleettriage/internal/kb"
)

type fakeSearcher struct {
	result kb.Result
	err    error
	calls  int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int, _ float64) (kb.Result, error) {
	f.calls++
	if f.err != nil {
		return kb.Result{}, f.err
	}
	return f.result, nil
}

type fakeProvider struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeProvider) Chat(_ context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	f.prompts = append(f.prompts, req.Messages[len(req.Messages)-1].Content)
	if f.err != nil {
		return nil, f.err
	}
	return &providers.ChatResponse{Content: f.reply}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func TestAskKnowledgeBaseHit(t *testing.T) {
	search := &fakeSearcher{result: kb.Result{
		Response:     "Reinstall the VPN client.",
		MatchedIssue: "VPN keeps disconnecting",
		Score:        0.8,
		Found:        true,
	}}
	gen := &fakeProvider{reply: "1. Uninstall the VPN client\n2. Reinstall it"}
	r := NewRouter(NewStore(0), search, gen, 0)

	ans := r.Ask(context.Background(), "", "my vpn keeps dropping")
	assert.Equal(t, SourceKB, ans.Source)
	require.NotNil(t, ans.Similarity)
	assert.InDelta(t, 0.8, *ans.Similarity, 1e-9)
	assert.False(t, ans.IsFollowup)
	assert.True(t, strings.HasSuffix(ans.Answer, "Source: Knowledge Base (RAG)"))
	assert.Contains(t, ans.Answer, "Uninstall the VPN client")

	// Restyle prompt must carry the raw KB solution
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Reinstall the VPN client.")

	// Session now anchors the problem and solution
	s, err := r.Store().Get(ans.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "my vpn keeps dropping", s.Problem)
	assert.Equal(t, "Reinstall the VPN client.", s.Solution)
	assert.Equal(t, 1, s.CurrentStep)
	require.Len(t, s.History, 2)
	assert.Equal(t, RoleUser, s.History[0].Role)
	assert.Equal(t, SourceKB, s.History[1].Source)
}

func TestAskRestyleFailureServesRawKB(t *testing.T) {
	search := &fakeSearcher{result: kb.Result{Response: "Clear the spooler.", Score: 0.9, Found: true}}
	gen := &fakeProvider{err: errors.New("generator down")}
	r := NewRouter(NewStore(0), search, gen, 0)

	ans := r.Ask(context.Background(), "", "printer is stuck")
	assert.Equal(t, SourceKB, ans.Source)
	assert.Equal(t, "Clear the spooler.\n\nSource: Knowledge Base (RAG)", ans.Answer)
}

func TestAskFollowupUsesContext(t *testing.T) {
	search := &fakeSearcher{result: kb.Result{Response: "KB answer", Score: 0.9, Found: true}}
	gen := &fakeProvider{reply: "Try renewing the certificate instead."}
	r := NewRouter(NewStore(0), search, gen, 0)

	first := r.Ask(context.Background(), "", "my vpn keeps dropping")
	require.Equal(t, SourceKB, first.Source)

	searchCallsBefore := search.calls
	second := r.Ask(context.Background(), first.SessionID, "this didn't work")
	assert.Equal(t, SourceContext, second.Source)
	assert.True(t, second.IsFollowup)
	assert.Nil(t, second.Similarity)
	assert.Equal(t, "Try renewing the certificate instead.", second.Answer)

	// Context branch answers without consulting retrieval
	assert.Equal(t, searchCallsBefore, search.calls)

	// Context prompt carries the anchored problem and solution
	last := gen.prompts[len(gen.prompts)-1]
	assert.Contains(t, last, "my vpn keeps dropping")
	assert.Contains(t, last, "User's current question: this didn't work")
}

func TestAskFallbackWithoutContext(t *testing.T) {
	search := &fakeSearcher{result: kb.Result{Score: 0.2}}
	gen := &fakeProvider{reply: "Try rebooting."}
	r := NewRouter(NewStore(0), search, gen, 0)

	ans := r.Ask(context.Background(), "", "weird kernel panic")
	assert.Equal(t, SourceFallback, ans.Source)
	assert.Nil(t, ans.Similarity)
	assert.True(t, strings.HasSuffix(ans.Answer, "Source: GPT fallback"))
}

func TestAskFallbackWithContextFooter(t *testing.T) {
	search := &fakeSearcher{result: kb.Result{Response: "KB answer", Score: 0.9, Found: true}}
	gen := &fakeProvider{reply: "answer"}
	r := NewRouter(NewStore(0), search, gen, 0)

	first := r.Ask(context.Background(), "", "my vpn keeps dropping")
	require.Equal(t, SourceKB, first.Source)

	// Not a follow-up, but retrieval now misses; context footer applies
	search.result = kb.Result{Score: 0.1}
	second := r.Ask(context.Background(), first.SessionID, "the office wifi is slow every afternoon")
	assert.Equal(t, SourceFallback, second.Source)
	assert.True(t, strings.HasSuffix(second.Answer, "Source: GPT with context"))
}

func TestAskEverythingFailsIsErrorAnswer(t *testing.T) {
	search := &fakeSearcher{err: errors.New("index gone")}
	gen := &fakeProvider{err: errors.New("generator down")}
	r := NewRouter(NewStore(0), search, gen, 0)

	ans := r.Ask(context.Background(), "", "anything at all here")
	assert.Equal(t, SourceError, ans.Source)
	assert.Equal(t, "Failed to get an answer. Please try again.", ans.Answer)

	// The error still lands in history as the single bot turn
	s, err := r.Store().Get(ans.SessionID)
	require.NoError(t, err)
	require.Len(t, s.History, 2)
	assert.Equal(t, SourceError, s.History[1].Source)
}

func TestAskRecordsExactlyOneBotTurnPerQuestion(t *testing.T) {
	search := &fakeSearcher{result: kb.Result{Response: "KB answer", Score: 0.9, Found: true}}
	gen := &fakeProvider{reply: "answer"}
	r := NewRouter(NewStore(0), search, gen, 0)

	first := r.Ask(context.Background(), "", "my vpn keeps dropping")
	r.Ask(context.Background(), first.SessionID, "this didn't work")
	r.Ask(context.Background(), first.SessionID, "what does step two mean")

	s, err := r.Store().Get(first.SessionID)
	require.NoError(t, err)
	assert.Len(t, s.History, 6)
	for i, turn := range s.History {
		if i%2 == 0 {
			assert.Equal(t, RoleUser, turn.Role)
		} else {
			assert.Equal(t, RoleBot, turn.Role)
		}
	}
}
