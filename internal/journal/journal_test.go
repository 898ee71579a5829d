package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"aiconfig/internal/callback"
)

func TestJournalRecordsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	m := callback.NewManager(zerolog.Nop(), s)
	ctx := callback.WithRunID(context.Background(), "run-1")
	m.Emit(ctx, callback.NewEvent(callback.RunStart, "a").With("parser", "echo"))
	m.Emit(ctx, callback.NewEvent(callback.RunEnd, "a").With("state", "failed").WithErr(errors.New("boom")))
	m.Emit(callback.WithRunID(context.Background(), "run-2"), callback.NewEvent(callback.RunStart, "b"))

	all, err := s.Events(context.Background(), Filter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("events=%+v err=%v", all, err)
	}
	if all[0].Event != callback.RunStart || all[0].Payload["parser"] != "echo" || all[0].Timestamp.IsZero() {
		t.Fatalf("first=%+v", all[0])
	}
	if all[1].Error != "boom" || all[1].Payload["state"] != "failed" {
		t.Fatalf("second=%+v", all[1])
	}

	run1, err := s.Events(context.Background(), Filter{RunID: "run-1"})
	if err != nil || len(run1) != 2 {
		t.Fatalf("run-1 events=%+v err=%v", run1, err)
	}
	ends, _ := s.Events(context.Background(), Filter{Event: callback.RunEnd})
	if len(ends) != 1 || ends[0].Prompt != "a" {
		t.Fatalf("ends=%+v", ends)
	}
	limited, _ := s.Events(context.Background(), Filter{Limit: 1})
	if len(limited) != 1 || limited[0].RunID != "run-1" {
		t.Fatalf("limited=%+v", limited)
	}
}

func TestJournalReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "j.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Handle(context.Background(), callback.NewEvent(callback.ResolveEnd, "p").With("resolved", "x")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Events(context.Background(), Filter{Prompt: "p"})
	if err != nil || len(got) != 1 || got[0].Payload["resolved"] != "x" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
}
