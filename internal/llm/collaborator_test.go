package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/dispatch-core/pkg/logger"
)

type fakeClient struct {
	content string
	err     error
	reqs    []*CompletionRequest
}

func (f *fakeClient) Complete(_ context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResponse{Content: f.content}, nil
}

func (f *fakeClient) Name() string     { return "fake" }
func (f *fakeClient) Models() []string { return nil }

var intents = []string{"knowledge_lookup", "symptom_assessment", "small_talk"}

func TestClassify(t *testing.T) {
	cases := []struct {
		answer string
		want   string
	}{
		{"symptom_assessment", "symptom_assessment"},
		{"  Small_Talk.\n", "small_talk"},
		{`"knowledge_lookup"`, "knowledge_lookup"},
		{"**symptom_assessment**\nbecause the user is unwell", "symptom_assessment"},
	}
	for _, tc := range cases {
		fc := &fakeClient{content: tc.answer}
		c := NewCollaborator(fc, "model-x", logger.NewNop())

		got, err := c.Classify(context.Background(), "I have a fever", intents)
		require.NoError(t, err, "answer=%q", tc.answer)
		require.Equal(t, tc.want, got)
	}
}

func TestClassify_Request(t *testing.T) {
	fc := &fakeClient{content: "small_talk"}
	c := NewCollaborator(fc, "model-x", logger.NewNop())

	_, err := c.Classify(context.Background(), "hello", intents)
	require.NoError(t, err)
	require.Len(t, fc.reqs, 1)
	req := fc.reqs[0]
	require.Equal(t, "model-x", req.Model)
	require.Equal(t, classifySystem, req.System)
	require.Contains(t, req.Messages[0].Content, "knowledge_lookup, symptom_assessment, small_talk")
	require.Contains(t, req.Messages[0].Content, `"hello"`)
}

func TestClassify_Failures(t *testing.T) {
	c := NewCollaborator(&fakeClient{content: "astrology"}, "", logger.NewNop())
	_, err := c.Classify(context.Background(), "x", intents)
	require.ErrorIs(t, err, ErrUnknownLabel)

	boom := errors.New("quota exceeded")
	c = NewCollaborator(&fakeClient{err: boom}, "", logger.NewNop())
	_, err = c.Classify(context.Background(), "x", intents)
	require.ErrorIs(t, err, boom)

	_, err = c.Classify(context.Background(), "x", nil)
	require.Error(t, err)

	c = NewCollaborator(nil, "", logger.NewNop())
	require.False(t, c.Available())
	_, err = c.Classify(context.Background(), "x", intents)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGenerate(t *testing.T) {
	fc := &fakeClient{content: "  OPD runs 9am to 5pm.  "}
	c := NewCollaborator(fc, "", logger.NewNop())

	got, err := c.Generate(context.Background(), "Summarize.", "OPD timing: 9am-5pm")
	require.NoError(t, err)
	require.Equal(t, "OPD runs 9am to 5pm.", got)
	require.Equal(t, generateSystem, fc.reqs[0].System)
	require.Equal(t, "Summarize.\n\nContext:\nOPD timing: 9am-5pm", fc.reqs[0].Messages[0].Content)

	_, err = c.Generate(context.Background(), "Summarize.", "")
	require.NoError(t, err)
	require.Equal(t, "Summarize.", fc.reqs[1].Messages[0].Content)

	_, err = NewCollaborator(nil, "", logger.NewNop()).Generate(context.Background(), "p", "c")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestWithSystemPrompt(t *testing.T) {
	msgs := []ChatMessage{{Role: "assistant", Content: "earlier"}, {Role: "user", Content: "question"}}
	got := withSystemPrompt("be brief", msgs)
	require.Equal(t, []ChatMessage{
		{Role: "assistant", Content: "earlier"},
		{Role: "user", Content: "be brief\n\nquestion"},
	}, got)
	// The caller's slice is not modified.
	require.Equal(t, "question", msgs[1].Content)

	got = withSystemPrompt("be brief", nil)
	require.Equal(t, []ChatMessage{{Role: "user", Content: "be brief"}}, got)

	require.Equal(t, msgs, withSystemPrompt("", msgs))
}

func TestNewClientFromKeys(t *testing.T) {
	c, err := NewClientFromKeys("sk-ant", "sk-openai")
	require.NoError(t, err)
	require.Equal(t, "anthropic", c.Name())

	c, err = NewClientFromKeys("", "sk-openai")
	require.NoError(t, err)
	require.Equal(t, "openai", c.Name())

	_, err = NewClientFromKeys("", "")
	require.ErrorIs(t, err, ErrNoProvider)

	_, err = NewClient(ProviderOpenAI, "")
	require.Error(t, err)
}

func TestOpenAIClientComplete(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"small_talk"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":2,"total_tokens":14}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/v1"
	client := NewOpenAIClientWithConfig(cfg)

	resp, err := client.Complete(context.Background(), &CompletionRequest{
		System:   "sys",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	require.Equal(t, "small_talk", resp.Content)
	require.Equal(t, "stop", resp.StopReason)
	require.Equal(t, 12, resp.TokensIn)
	require.Equal(t, 2, resp.TokensOut)

	// System prompt goes first as its own message.
	require.True(t, strings.Index(body, `"system"`) < strings.Index(body, `"hello"`))
	require.Contains(t, body, `"model":"gpt-4o-mini"`)
}
