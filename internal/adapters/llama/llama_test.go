package llama

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"aiconfig/internal/parser"
	"aiconfig/pkg/types"
)

type fakeEngine struct {
	tokens []string
	got    struct {
		path, prompt string
		opts         Options
	}
	cancelAfter int
	cancel      context.CancelFunc
}

func (f *fakeEngine) Predict(ctx context.Context, path, prompt string, o Options, onToken func(string) bool) (string, error) {
	f.got.path, f.got.prompt, f.got.opts = path, prompt, o
	var sb strings.Builder
	for i, tok := range f.tokens {
		if f.cancel != nil && i == f.cancelAfter {
			f.cancel()
		}
		if onToken != nil && !onToken(tok) {
			return sb.String(), ctx.Err()
		}
		sb.WriteString(tok)
	}
	return sb.String(), nil
}

func (f *fakeEngine) Close() error { return nil }

func modelsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"tiny.gguf", "Other.GGUF", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.gguf"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestModelFiles(t *testing.T) {
	dir := modelsDir(t)
	files, err := ModelFiles(dir)
	if err != nil {
		t.Fatalf("ModelFiles: %v", err)
	}
	if files["tiny"] != filepath.Join(dir, "tiny.gguf") || files["tiny.gguf"] != files["tiny"] {
		t.Fatalf("files=%v", files)
	}
	if _, ok := files["Other"]; !ok {
		t.Fatalf("upper-case extension not matched: %v", files)
	}
	if _, ok := files["notes"]; ok {
		t.Fatalf("non-gguf file listed")
	}
	if _, ok := files["sub"]; ok {
		t.Fatalf("directory listed")
	}
	if _, err := ModelFiles(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	p := &Parser{cfg: Config{ModelsDir: dir}, engine: &fakeEngine{}}
	ids, err := p.Models()
	if err != nil || !reflect.DeepEqual(ids, []string{"Other", "Other.GGUF", "tiny", "tiny.gguf"}) {
		t.Fatalf("ids=%v err=%v", ids, err)
	}
}

func testDoc() *types.Document {
	d := &types.Document{}
	d.Metadata.Models = map[string]map[string]any{"tiny": {"temperature": 0.5, "max_tokens": 16, "stop": []any{"\n"}}}
	q := &types.Prompt{Input: types.TextInput("complete {{x}}")}
	q.SetModel("tiny", map[string]any{"system_prompt": "sys"})
	_ = d.AddPrompt("q", q)
	return d
}

func TestRunInference(t *testing.T) {
	fe := &fakeEngine{tokens: []string{"he", "llo"}}
	p := &Parser{cfg: Config{ModelsDir: modelsDir(t)}, engine: fe}
	d := testDoc()
	q, _ := d.GetPrompt("q")
	outs, err := p.RunInference(context.Background(), q, d, nil, parser.Params{"x": "this"})
	if err != nil || len(outs) != 1 || outs[0].Data.Text != "hello" {
		t.Fatalf("outs=%+v err=%v", outs, err)
	}
	if !strings.HasSuffix(fe.got.path, "tiny.gguf") || fe.got.prompt != "sys\n\ncomplete this" {
		t.Fatalf("got=%+v", fe.got)
	}
	if fe.got.opts.MaxTokens != 16 || fe.got.opts.Temperature != 0.5 || !reflect.DeepEqual(fe.got.opts.Stop, []string{"\n"}) {
		t.Fatalf("opts=%+v", fe.got.opts)
	}
}

func TestRunInferenceStreamsAndCancels(t *testing.T) {
	fe := &fakeEngine{tokens: []string{"a", "b", "c"}}
	p := &Parser{cfg: Config{ModelsDir: modelsDir(t)}, engine: fe}
	d := testDoc()
	q, _ := d.GetPrompt("q")

	var accs []string
	opts := &parser.InferenceOptions{StreamCallback: func(_, acc string, _ int) { accs = append(accs, acc) }}
	outs, err := p.RunInference(context.Background(), q, d, opts, parser.Params{"x": "y"})
	if err != nil || outs[0].Data.Text != "abc" || !reflect.DeepEqual(accs, []string{"a", "ab", "abc"}) {
		t.Fatalf("outs=%+v accs=%v err=%v", outs, accs, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	fe.cancel, fe.cancelAfter = cancel, 2
	outs, err = p.RunInference(ctx, q, d, opts, parser.Params{"x": "y"})
	if err != nil || len(outs) != 1 || !outs[0].Cancelled() || outs[0].Data.Text != "ab" {
		t.Fatalf("outs=%+v err=%v", outs, err)
	}
}

func TestModelNotFound(t *testing.T) {
	p := &Parser{cfg: Config{ModelsDir: modelsDir(t)}, engine: &fakeEngine{}}
	d := testDoc()
	q, _ := d.GetPrompt("q")
	q.SetModel("absent", nil)
	if _, err := p.RunInference(context.Background(), q, d, nil, parser.Params{"x": "y"}); err == nil || types.IsCoreError(err) {
		t.Fatalf("err=%v", err)
	}
	q.SetModel("absent", map[string]any{"model_path": "/tmp/explicit.gguf"})
	v, err := p.Deserialize(context.Background(), q, d, parser.Params{"x": "y"})
	if err != nil || v.(Request).ModelPath != "/tmp/explicit.gguf" {
		t.Fatalf("v=%+v err=%v", v, err)
	}
}

func TestSerialize(t *testing.T) {
	p := New(Config{})
	ps, err := p.Serialize(context.Background(), "gen", Request{Prompt: "go", ModelPath: "/m.gguf", Options: Options{TopK: 5}}, nil, nil)
	if err != nil || len(ps) != 1 || ps[0].Input.Text != "go" {
		t.Fatalf("ps=%+v err=%v", ps, err)
	}
	s := ps[0].Metadata.Model.Settings
	if s["model_path"] != "/m.gguf" || s["top_k"] != 5 {
		t.Fatalf("settings=%v", s)
	}
	if ps, _ := p.Serialize(context.Background(), "t", []string{"a", "b"}, nil, nil); len(ps) != 2 || ps[1].Name != "t_2" {
		t.Fatalf("turns=%+v", ps)
	}
}
