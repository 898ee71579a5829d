package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"

	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

type fakeAPI struct {
	mu   sync.Mutex
	reqs []openai.ChatCompletionRequest
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		f.mu.Lock()
		f.reqs = append(f.reqs, req)
		f.mu.Unlock()
		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"id":"cmpl-1","object":"chat.completion","model":"gpt-test","choices":[`+
				`{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"},`+
				`{"index":1,"message":{"role":"assistant","content":"hey"},"finish_reason":"length"}]}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range []string{"he", "llo"} {
			_, _ = fmt.Fprintf(w, "data: {\"id\":\"cmpl-2\",\"object\":\"chat.completion.chunk\",\"model\":\"gpt-test\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", d)
		}
		_, _ = fmt.Fprint(w, "data: {\"id\":\"cmpl-2\",\"object\":\"chat.completion.chunk\",\"model\":\"gpt-test\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	})
}

func newTestParser(t *testing.T) (*Parser, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	p, err := New(Config{APIKey: "test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, api
}

func testDoc() *types.Document {
	d := &types.Document{}
	d.Metadata.Models = map[string]map[string]any{"gpt-test": {"system_prompt": "be brief", "temperature": 0.2}}
	first := &types.Prompt{Input: types.TextInput("earlier")}
	first.SetModel("gpt-test", nil)
	first.AddOutput(types.NewResult(types.TextData("earlier answer"), nil))
	_ = d.AddPrompt("first", first)
	q := &types.Prompt{Input: types.TextInput("say {{word}}")}
	q.SetModel("gpt-test", map[string]any{"n": 2})
	_ = d.AddPrompt("q", q)
	return d
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without key")
	}
}

func TestRunInferenceChoices(t *testing.T) {
	p, api := newTestParser(t)
	d := testDoc()
	q, _ := d.GetPrompt("q")
	outs, err := p.RunInference(context.Background(), q, d, nil, parser.Params{"word": "hi"})
	if err != nil {
		t.Fatalf("RunInference: %v", err)
	}
	if len(outs) != 2 || outs[0].Data.Text != "hi" || outs[1].Data.Text != "hey" || outs[1].Metadata["finish_reason"] != "length" {
		t.Fatalf("outs=%+v", outs)
	}
	req := api.reqs[0]
	if req.Model != "gpt-test" || req.N != 2 || req.Temperature < 0.19 || req.Temperature > 0.21 {
		t.Fatalf("request=%+v", req)
	}
	roles := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		roles = append(roles, m.Role+":"+m.Content)
	}
	want := "system:be brief|user:earlier|assistant:earlier answer|user:say hi"
	if got := strings.Join(roles, "|"); got != want {
		t.Fatalf("messages=%s", got)
	}
}

func TestRunInferenceStreams(t *testing.T) {
	p, _ := newTestParser(t)
	d := testDoc()
	q, _ := d.GetPrompt("q")
	var seen []string
	opts := &parser.InferenceOptions{StreamCallback: func(delta, acc string, i int) {
		seen = append(seen, fmt.Sprintf("%s/%s/%d", delta, acc, i))
	}}
	outs, err := p.RunInference(context.Background(), q, d, opts, parser.Params{"word": "x"})
	if err != nil {
		t.Fatalf("RunInference: %v", err)
	}
	if strings.Join(seen, ",") != "he/he/0,llo/hello/0" {
		t.Fatalf("callbacks=%v", seen)
	}
	if len(outs) != 1 || outs[0].Data.Text != "hello" || outs[0].Metadata["finish_reason"] != "stop" {
		t.Fatalf("outs=%+v", outs)
	}
}

func TestRunInferenceAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()
	p, _ := New(Config{APIKey: "k", BaseURL: srv.URL})
	d := testDoc()
	q, _ := d.GetPrompt("q")
	if _, err := p.RunInference(context.Background(), q, d, nil, parser.Params{"word": "x"}); err == nil || types.IsCoreError(err) {
		t.Fatalf("expected adapter error, got %v", err)
	}
}

func TestSerializeConversation(t *testing.T) {
	p, _ := newTestParser(t)
	req := openai.ChatCompletionRequest{
		Model: "gpt-test",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "sys"},
			{Role: openai.ChatMessageRoleUser, Content: "q1"},
			{Role: openai.ChatMessageRoleAssistant, Content: "a1"},
			{Role: openai.ChatMessageRoleUser, Content: "q2"},
		},
	}
	ps, err := p.Serialize(context.Background(), "conv", req, nil, nil)
	if err != nil || len(ps) != 2 {
		t.Fatalf("prompts=%+v err=%v", ps, err)
	}
	if ps[0].Name != "conv_1" || ps[0].Outputs[0].Data.Text != "a1" || ps[1].Input.Text != "q2" {
		t.Fatalf("prompts=%+v", ps)
	}
	s := ps[1].Metadata.Model.Settings
	if s["system_prompt"] != "sys" || s["model"] != "gpt-test" {
		t.Fatalf("settings=%v", s)
	}
	if _, err := p.Serialize(context.Background(), "x", 3, nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDeserialize(t *testing.T) {
	p, _ := newTestParser(t)
	d := testDoc()
	q, _ := d.GetPrompt("q")
	off := false
	q.Metadata.RememberChatContext = &off
	v, err := p.Deserialize(context.Background(), q, d, parser.Params{"word": "yo"})
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	req := v.(openai.ChatCompletionRequest)
	if len(req.Messages) != 2 || req.Messages[1].Content != "say yo" {
		t.Fatalf("messages=%+v", req.Messages)
	}
}
