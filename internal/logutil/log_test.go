package logutil

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", false)
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithLogger(context.Background(), logger.With().Str("req.id", "abc").Logger())
	log := GetOrDefault(ctx)
	log.Debug().Msg("hello")
	out := buf.String()
	for _, s := range []string{`"level":"debug"`, `"req.id":"abc"`, `"message":"hello"`} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %v in output, got %v", s, out)
		}
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "", false)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("empty level should default to info, got %v", buf.String())
	}
	if _, err := New(&buf, "loud", false); err == nil {
		t.Fatal("invalid levels should be rejected")
	}
}

func TestDefaultLogger(t *testing.T) {
	// must not panic without a logger in the context
	log := GetOrDefault(context.Background())
	log.Debug().Msg("ok")
}
