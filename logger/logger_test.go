package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestComponentTag(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	log := NewWriter(&buf).Component("fast")
	log.Info().Int("w", 10).Msg("resized")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("bad json %q: %v", buf.String(), err)
	}
	if out["c"] != "fast  " {
		t.Errorf("wrong component %q", out["c"])
	}
	if out["message"] != "resized" {
		t.Errorf("wrong message %v", out["message"])
	}
	if out["w"] != float64(10) {
		t.Errorf("wrong field %v", out["w"])
	}
}

func TestPrintfIsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Printf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("debug message leaked at info level: %s", buf.String())
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Printf("shown %d", 2)
	if !bytes.Contains(buf.Bytes(), []byte("shown 2")) {
		t.Errorf("missing debug message: %s", buf.String())
	}
}
