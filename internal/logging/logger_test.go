package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNew_TextLevelsFiltered(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "text")
	ctx := context.Background()

	log.Debug(ctx, "dbg")
	log.Info(ctx, "inf")
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	if strings.Contains(out, "msg=dbg") || strings.Contains(out, "msg=inf") {
		t.Fatalf("expected debug and info to be filtered, got:\n%s", out)
	}
	for _, want := range []string{"level=WARN", "msg=wrn", "c=3", "level=ERROR", "d=4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestNew_JSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json").With("request_id", "abc")
	log.Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	for _, want := range []string{`"msg":"hello"`, `"request_id":"abc"`, `"k":"v"`, `"level":"INFO"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output, got:\n%s", want, out)
		}
	}
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got.String() != "INFO" {
		t.Fatalf("parseLevel(nonsense) = %s", got)
	}
}
