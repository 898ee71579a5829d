package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/liushuangls/go-anthropic/v2"

	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

const streamBody = `event: message_start
data: {"type":"message_start","message":{"id":"msg_2","type":"message","role":"assistant","content":[],"model":"claude-test","stop_reason":null,"usage":{"input_tokens":3,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"he"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"llo"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":2}}

event: message_stop
data: {"type":"message_stop"}

`

type captured struct {
	Model     string `json:"model"`
	System    string `json:"system"`
	MaxTokens int    `json:"max_tokens"`
	Stream    bool   `json:"stream"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func newTestParser(t *testing.T) (*Parser, *[]captured) {
	t.Helper()
	var reqs []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		var c captured
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			t.Errorf("decode: %v", err)
		}
		reqs = append(reqs, c)
		if c.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = fmt.Fprint(w, streamBody)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",`+
			`"content":[{"type":"text","text":"hi "},{"type":"text","text":"there"}],`+
			`"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`)
	}))
	t.Cleanup(srv.Close)
	p, err := New(Config{APIKey: "test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, &reqs
}

func testDoc() *types.Document {
	d := &types.Document{}
	prior := &types.Prompt{Input: types.TextInput("prior")}
	prior.SetModel("claude-test", nil)
	prior.AddOutput(types.NewResult(types.TextData("prior answer"), nil))
	_ = d.AddPrompt("prior", prior)
	q := &types.Prompt{Input: types.TextInput("tell {{who}}")}
	q.SetModel("claude-test", map[string]any{"system_prompt": "terse"})
	_ = d.AddPrompt("q", q)
	return d
}

func TestRunInference(t *testing.T) {
	p, reqs := newTestParser(t)
	d := testDoc()
	q, _ := d.GetPrompt("q")
	outs, err := p.RunInference(context.Background(), q, d, nil, parser.Params{"who": "me"})
	if err != nil {
		t.Fatalf("RunInference: %v", err)
	}
	if len(outs) != 1 || outs[0].Data.Text != "hi there" || outs[0].Metadata["finish_reason"] != "end_turn" {
		t.Fatalf("outs=%+v", outs)
	}
	c := (*reqs)[0]
	if c.Model != "claude-test" || c.System != "terse" || c.MaxTokens != DefaultMaxTokens {
		t.Fatalf("request=%+v", c)
	}
	var turns []string
	for _, m := range c.Messages {
		turns = append(turns, m.Role+":"+m.Content[0].Text)
	}
	if got := strings.Join(turns, "|"); got != "user:prior|assistant:prior answer|user:tell me" {
		t.Fatalf("messages=%s", got)
	}
}

func TestRunInferenceStreams(t *testing.T) {
	p, _ := newTestParser(t)
	d := testDoc()
	q, _ := d.GetPrompt("q")
	var accs []string
	opts := &parser.InferenceOptions{StreamCallback: func(_, acc string, _ int) { accs = append(accs, acc) }}
	outs, err := p.RunInference(context.Background(), q, d, opts, parser.Params{"who": "me"})
	if err != nil {
		t.Fatalf("RunInference: %v", err)
	}
	if strings.Join(accs, ",") != "he,hello" || outs[0].Data.Text != "hello" {
		t.Fatalf("accs=%v outs=%+v", accs, outs)
	}
}

func TestSerialize(t *testing.T) {
	p, _ := newTestParser(t)
	temp := float32(0.5)
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model("claude-test"),
		System:      "sys",
		MaxTokens:   64,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage("q1"),
			anthropic.NewAssistantTextMessage("a1"),
			anthropic.NewUserTextMessage("q2"),
		},
	}
	ps, err := p.Serialize(context.Background(), "talk", req, nil, nil)
	if err != nil || len(ps) != 2 {
		t.Fatalf("prompts=%+v err=%v", ps, err)
	}
	s := ps[0].Metadata.Model.Settings
	if ps[0].Outputs[0].Data.Text != "a1" || s["system_prompt"] != "sys" || s["max_tokens"] != 64 || s["temperature"] != 0.5 {
		t.Fatalf("prompt=%+v settings=%v", ps[0], s)
	}
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error")
	}
}
