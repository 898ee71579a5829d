package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestAddPromptDuplicateAndInvalidName(t *testing.T) {
	d := &Document{Name: "d"}
	if err := d.AddPrompt("g", &Prompt{Input: TextInput("hi")}); err != nil {
		t.Fatalf("AddPrompt: %v", err)
	}
	if err := d.AddPrompt("g", &Prompt{}); !IsDuplicateName(err) {
		t.Fatalf("expected DuplicateName, got %v", err)
	}
	if err := d.AddPrompt("1bad", &Prompt{}); !IsInvalidConfig(err) {
		t.Fatalf("expected InvalidConfig for bad name, got %v", err)
	}
	if p, err := d.GetPrompt("g"); err != nil || p.Name != "g" {
		t.Fatalf("GetPrompt: %v %+v", err, p)
	}
	if _, err := d.GetPrompt("nope"); !IsUnknownPrompt(err) {
		t.Fatalf("expected UnknownPrompt, got %v", err)
	}
}

func TestUpdateAndDeletePrompt(t *testing.T) {
	d := &Document{}
	_ = d.AddPrompt("a", &Prompt{Input: TextInput("1")})
	_ = d.AddPrompt("b", &Prompt{Input: TextInput("2")})
	if err := d.UpdatePrompt("a", &Prompt{Name: "b"}); !IsDuplicateName(err) {
		t.Fatalf("rename onto existing name should fail, got %v", err)
	}
	if err := d.UpdatePrompt("a", &Prompt{Name: "c", Input: TextInput("3")}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if d.Prompts[0].Name != "c" || d.Prompts[0].Input.Text != "3" {
		t.Fatalf("update kept position? got %+v", d.Prompts[0])
	}
	if err := d.UpdatePrompt("zzz", &Prompt{}); !IsUnknownPrompt(err) {
		t.Fatalf("expected UnknownPrompt, got %v", err)
	}
	if err := d.DeletePrompt("c"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(d.Prompts) != 1 || d.Prompts[0].Name != "b" {
		t.Fatalf("unexpected prompts after delete: %+v", d.Prompts)
	}
	if err := d.DeletePrompt("c"); !IsUnknownPrompt(err) {
		t.Fatalf("expected UnknownPrompt on second delete, got %v", err)
	}
}

func TestModelSettingsShallowMerge(t *testing.T) {
	d := &Document{}
	d.AddModel("gpt", map[string]any{
		"temperature": 0.1,
		"top_p":       0.9,
		"extra":       map[string]any{"a": 1, "b": 2},
	})
	p := &Prompt{}
	p.SetModel("gpt", map[string]any{"temperature": 0.7, "extra": map[string]any{"c": 3}})
	got := d.ModelSettings(p)
	if got["temperature"] != 0.7 || got["top_p"] != 0.9 {
		t.Fatalf("unexpected merge: %+v", got)
	}
	extra := got["extra"].(map[string]any)
	if len(extra) != 1 || extra["c"] != 3 {
		t.Fatalf("nested maps must be replaced, not merged: %+v", extra)
	}
	if _, ok := d.Metadata.Models["gpt"]["c"]; ok {
		t.Fatalf("merge mutated global settings")
	}
}

func TestEffectiveModelFallsBackToDefault(t *testing.T) {
	d := &Document{}
	d.SetDefaultModel("echo")
	p := &Prompt{}
	if got := d.EffectiveModel(p); got != "echo" {
		t.Fatalf("EffectiveModel=%q", got)
	}
	p.SetModel("gpt", nil)
	if got := d.EffectiveModel(p); got != "gpt" {
		t.Fatalf("EffectiveModel=%q", got)
	}
}

func TestModelRefWireForms(t *testing.T) {
	bare, _ := json.Marshal(ModelRef{Name: "echo"})
	if string(bare) != `"echo"` {
		t.Fatalf("bare form: %s", bare)
	}
	obj, _ := json.Marshal(ModelRef{Name: "echo", Settings: map[string]any{"k": "v"}})
	if string(obj) != `{"name":"echo","settings":{"k":"v"}}` {
		t.Fatalf("object form: %s", obj)
	}
	var m ModelRef
	if err := json.Unmarshal([]byte(`{"name":"x","settings":{}}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Name != "x" || m.Settings == nil {
		t.Fatalf("object with empty settings must keep object form: %+v", m)
	}
}

func TestPromptInputForms(t *testing.T) {
	var in PromptInput
	if err := json.Unmarshal([]byte(`"hello {{who}}"`), &in); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if in.Structured || in.TemplateText() != "hello {{who}}" {
		t.Fatalf("unexpected: %+v", in)
	}
	raw := `{"data":"look","attachments":[{"mime_type":"image/png","data":"aGk="}]}`
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if !in.Structured || in.TemplateText() != "look" || len(in.Attachments) != 1 || in.Attachments[0].MimeType != "image/png" {
		t.Fatalf("unexpected: %+v", in)
	}
	b, _ := json.Marshal(in)
	if string(b) != raw {
		t.Fatalf("structured input did not round trip: %s", b)
	}
	if err := json.Unmarshal([]byte(`42`), &in); err == nil {
		t.Fatalf("expected error for numeric input")
	}
}

func TestOutputDataVariants(t *testing.T) {
	cases := []struct {
		raw  string
		kind DataKind
	}{
		{`"hi"`, DataText},
		{`{"kind":"base64","value":"aGk="}`, DataBinary},
		{`{"content":"x","role":"assistant"}`, DataJSON},
		{`[1,2.50]`, DataJSON},
	}
	for _, c := range cases {
		var d OutputData
		if err := json.Unmarshal([]byte(c.raw), &d); err != nil {
			t.Fatalf("%s: %v", c.raw, err)
		}
		if d.Kind != c.kind {
			t.Fatalf("%s: kind=%s want %s", c.raw, d.Kind, c.kind)
		}
		b, _ := json.Marshal(d)
		if string(b) != c.raw {
			t.Fatalf("round trip changed %s -> %s", c.raw, b)
		}
	}
}

func TestOutputUnknownTypeRejected(t *testing.T) {
	var o Output
	if err := json.Unmarshal([]byte(`{"output_type":"stream"}`), &o); err == nil {
		t.Fatalf("expected error for unknown output_type")
	}
	if err := json.Unmarshal([]byte(`{"data":"x"}`), &o); err == nil {
		t.Fatalf("expected error for missing output_type")
	}
}

func TestCancelledOutput(t *testing.T) {
	o := NewCancelled("par")
	if !o.Cancelled() || o.IsError() || o.Data.Text != "par" {
		t.Fatalf("unexpected cancelled output: %+v", o)
	}
	if NewResult(TextData("x"), nil).Cancelled() {
		t.Fatalf("plain result reported as cancelled")
	}
}

func TestErrorOutputTraceback(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("call: %w", &AdapterError{Prompt: "g", Parser: "echo", Err: cause})
	o := ErrorOutput(err)
	if o.EName != "AdapterError" || !o.IsError() {
		t.Fatalf("unexpected: %+v", o)
	}
	if len(o.Traceback) != 3 || o.Traceback[2] != "boom" {
		t.Fatalf("traceback=%v", o.Traceback)
	}
	if IsCoreError(err) {
		t.Fatalf("adapter errors are not core errors")
	}
	if !IsCoreError(fmt.Errorf("x: %w", ErrMissingOutput("a", "b"))) {
		t.Fatalf("wrapped MissingOutput should be a core error")
	}
}

func TestCycleErrorMessage(t *testing.T) {
	err := &CycleError{Cycle: []string{"a", "b", "a"}}
	if err.Error() != "cyclic dependency: a→b→a" {
		t.Fatalf("message=%q", err.Error())
	}
}
