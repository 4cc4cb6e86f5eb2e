package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupWithWriter_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(SetupWithWriter("production", &buf), "scheduler")
	logger.Debug().Msg("hidden")
	logger.Info().Str("tenant_id", "acme").Msg("planned")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "scheduler" || line["tenant_id"] != "acme" || line["message"] != "planned" {
		t.Errorf("unexpected fields %v", line)
	}
}

func TestSetupWithWriter_DevelopmentLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("development", &buf)
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %s", logger.GetLevel())
	}
	logger.Debug().Msg("visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Errorf("debug line missing from %q", buf.String())
	}
}
