package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"ctfdojo/internal/game"
	"ctfdojo/internal/telemetry"
)

func TestRoundRecorderWithoutStoreStillLogs(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRoundRecorder(nil, telemetry.NewWriterLogger(&buf), "sess-1")
	cat := testCatalog(t, "eggs")
	engine := game.NewEngine()

	s0 := game.NewSession(cat, 30)
	steps := []game.Event{game.Start{}, game.Command{Line: "submit SECRET{1}"}, game.Restart{}}
	prev := s0
	for _, ev := range steps {
		next := engine.Reduce(prev, ev)
		rec.Observe(context.Background(), ev, prev, next)
		prev = next
	}
	if rec.RoundID() != 0 {
		t.Fatalf("no store means no round id")
	}

	out := buf.String()
	for _, want := range []string{`"msg":"round.start"`, `"msg":"round.command"`, `"verb":"submit"`, `"msg":"round.over"`, `"outcome":"abandoned"`, `"msg":"round.restart"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("telemetry missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, "SECRET{1}") {
		t.Fatalf("submitted flag leaked into telemetry:\n%s", out)
	}
}
