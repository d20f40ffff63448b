package out

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/config"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
)

func TestRenderJSONSelectResultsOnly(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"workflow_id": "wf_0001", "status": "completed"}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "json", SelectFields: []string{"status"}, ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(out) != 1 || out[0]["status"].(string) != "completed" {
		t.Fatalf("unexpected output: %s", buf.String())
	}
	if _, ok := out[0]["workflow_id"]; ok {
		t.Fatalf("field projection failed: %s", buf.String())
	}
}

func TestRenderPlain(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: true,
		Data:    []map[string]any{{"provider": "Nexus", "score": 0.9}},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	settings := config.Settings{OutputMode: "plain", ResultsOnly: true}
	var buf bytes.Buffer
	if err := Render(&buf, env, settings); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "provider=Nexus") {
		t.Fatalf("unexpected plain output: %s", buf.String())
	}
}

func TestRenderEnvelopeWithError(t *testing.T) {
	env := model.Envelope{
		Version: "v1",
		Success: false,
		Error:   &model.ErrorBody{Code: 20, Type: "NO_OPTIONS_AVAILABLE", Message: "no supported bridge options for route"},
		Meta:    model.EnvelopeMeta{Timestamp: time.Now()},
	}
	var buf bytes.Buffer
	if err := Render(&buf, env, config.Settings{OutputMode: "json"}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	var decoded model.Envelope
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if decoded.Success || decoded.Error == nil || decoded.Error.Type != "NO_OPTIONS_AVAILABLE" {
		t.Fatalf("unexpected envelope: %s", buf.String())
	}
}
