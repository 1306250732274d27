package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInfoEmitsServiceField(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "ledger-test", Output: &buf})

	logg.Info(context.Background(), "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output not json: %v (%s)", err, buf.String())
	}
	if entry["service"] != "ledger-test" {
		t.Fatalf("missing service field: %v", entry)
	}
	if entry["message"] != "hello" {
		t.Fatalf("missing message: %v", entry)
	}
}

func TestContextFieldsPropagate(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "ledger-test", Output: &buf})

	ctx := logg.WithTxID(context.Background(), "tx-42")
	ctx = logg.WithOperation(ctx, "CreateCertificate")
	logg.Info(ctx, "committed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output not json: %v", err)
	}
	if entry["tx_id"] != "tx-42" || entry["operation"] != "CreateCertificate" {
		t.Fatalf("context fields missing: %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "ledger-test", Level: zerolog.WarnLevel, Output: &buf})

	logg.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %s", buf.String())
	}
	logg.Warn(context.Background(), "kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn should pass: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("expected debug level")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("expected info fallback for empty input")
	}
	if ParseLevel("nonsense") != zerolog.InfoLevel {
		t.Fatal("expected info fallback for junk input")
	}
}
