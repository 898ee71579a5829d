package chat

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

func conversation() *types.Document {
	d := &types.Document{}
	d.Metadata.Models = map[string]map[string]any{"gpt": {"temperature": json.Number("0.5"), "system_prompt": "be brief"}}
	add := func(name, model, in, out string) {
		p := &types.Prompt{Input: types.TextInput(in)}
		p.SetModel(model, nil)
		if out != "" {
			p.AddOutput(types.NewResult(types.TextData(out), nil))
		}
		_ = d.AddPrompt(name, p)
	}
	add("a", "gpt", "hi {{who}}", "hello")
	add("b", "other", "unrelated", "x")
	add("c", "gpt", "how are you", "")
	add("d", "gpt", "and {{who}}?", "")
	add("e", "gpt", "after", "")
	return d
}

func TestHistoryReplaysSameModel(t *testing.T) {
	d := conversation()
	p, _ := d.GetPrompt("d")
	got := History(context.Background(), d, p, parser.Params{"who": "bob"})
	want := []Turn{
		{Role: RoleUser, Text: "hi bob"},
		{Role: RoleAssistant, Text: "hello"},
		{Role: RoleUser, Text: "how are you"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("history=%+v", got)
	}
	off := false
	p.Metadata.RememberChatContext = &off
	if h := History(context.Background(), d, p, nil); h != nil {
		t.Fatalf("expected no history, got %+v", h)
	}
}

func TestBuildMergesSettings(t *testing.T) {
	d := conversation()
	p, _ := d.GetPrompt("a")
	p.Metadata.Model.Settings = map[string]any{"max_tokens": 10, "stop": []any{"END"}, "model": "gpt-4o-mini"}
	req, err := Build(context.Background(), parser.Parameterized{}, d, p, parser.Params{"who": "amy"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Model != "gpt-4o-mini" || req.System != "be brief" || req.MaxTokens != 10 || !reflect.DeepEqual(req.Stop, []string{"END"}) {
		t.Fatalf("req=%+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0.5 || req.TopP != nil {
		t.Fatalf("sampling=%v %v", req.Temperature, req.TopP)
	}
	if len(req.Turns) != 1 || req.Turns[0].Text != "hi amy" {
		t.Fatalf("turns=%+v", req.Turns)
	}
	s := req.Settings()
	if s["system_prompt"] != "be brief" || s["max_tokens"] != 10 || s["temperature"] != 0.5 {
		t.Fatalf("settings=%v", s)
	}
}

func TestBuildUnresolved(t *testing.T) {
	d := conversation()
	p, _ := d.GetPrompt("a")
	if _, err := Build(context.Background(), parser.Parameterized{}, d, p, nil); !types.IsUnresolvedSymbol(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestPrompts(t *testing.T) {
	turns := []Turn{
		{Role: RoleUser, Text: "q1"},
		{Role: RoleAssistant, Text: "a1"},
		{Role: RoleUser, Text: "q2"},
	}
	ps := Prompts("conv", "gpt", map[string]any{"top_p": 0.9}, turns)
	if len(ps) != 2 || ps[0].Name != "conv_1" || ps[1].Name != "conv_2" {
		t.Fatalf("prompts=%+v", ps)
	}
	if len(ps[0].Outputs) != 1 || ps[0].Outputs[0].Data.Text != "a1" || len(ps[1].Outputs) != 0 {
		t.Fatalf("outputs=%+v / %+v", ps[0].Outputs, ps[1].Outputs)
	}
	ps[0].Metadata.Model.Settings["top_p"] = 0.1
	if ps[1].Metadata.Model.Settings["top_p"] != 0.9 {
		t.Fatalf("settings shared between prompts")
	}
	one := Prompts("solo", "gpt", nil, turns[:1])
	if len(one) != 1 || one[0].Name != "solo" || one[0].Metadata.Model.Settings != nil {
		t.Fatalf("single=%+v", one[0])
	}
}
