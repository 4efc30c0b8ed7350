package scoring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// highValueForest is a two-feature forest whose trees vote fraud when the
// amount (feature 0) exceeds 5000.
const highValueForest = `{
  "feature_count": 2,
  "trees": [
    {"nodes": [
      {"feature": 0, "threshold": 5000, "left": 1, "right": 2},
      {"leaf": true, "class": 0},
      {"leaf": true, "class": 1}
    ]},
    {"nodes": [
      {"feature": 0, "threshold": 5000, "left": 1, "right": 2},
      {"leaf": true, "class": 0},
      {"leaf": true, "class": 1}
    ]},
    {"nodes": [{"leaf": true, "class": 0}]}
  ]
}`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fraud_model.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write model artifact: %v", err)
	}
	return path
}

func TestScoreMajorityVote(t *testing.T) {
	engine, err := Load(writeModel(t, highValueForest))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !engine.Ready() {
		t.Fatal("expected engine to be ready")
	}

	score, err := engine.Score([]float64{6000, 1700000000000})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if score != 1 {
		t.Fatalf("expected class 1 for high amount, got %d", score)
	}

	score, err = engine.Score([]float64{100, 1700000000000})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected class 0 for low amount, got %d", score)
	}
}

func TestScoreTieBreaksTowardLowerClass(t *testing.T) {
	const split = `{
	  "feature_count": 2,
	  "trees": [
	    {"nodes": [{"leaf": true, "class": 1}]},
	    {"nodes": [{"leaf": true, "class": 0}]}
	  ]
	}`
	engine, err := Load(writeModel(t, split))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	score, err := engine.Score([]float64{1, 2})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected tie to resolve to class 0, got %d", score)
	}
}

func TestLoadFailureDisablesEnginePermanently(t *testing.T) {
	engine, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected load error for missing artifact")
	}
	if engine == nil {
		t.Fatal("expected a disabled engine, got nil")
	}
	if engine.Ready() {
		t.Fatal("expected engine to report not ready")
	}

	// Every scoring call fails fast; no reload is attempted.
	for i := 0; i < 2; i++ {
		if _, err := engine.Score([]float64{1, 2}); !errors.Is(err, ErrModelUnavailable) {
			t.Fatalf("expected ErrModelUnavailable, got %v", err)
		}
	}
}

func TestLoadRejectsMalformedArtifacts(t *testing.T) {
	cases := map[string]string{
		"not json":            `{"feature_count": 2,`,
		"wrong feature count": `{"feature_count": 4, "trees": [{"nodes": [{"leaf": true, "class": 0}]}]}`,
		"no trees":            `{"feature_count": 2, "trees": []}`,
	}
	for name, content := range cases {
		if _, err := Load(writeModel(t, content)); err == nil {
			t.Errorf("%s: expected load error", name)
		}
	}
}

func TestScoreRejectsWrongFeatureShape(t *testing.T) {
	engine, err := Load(writeModel(t, highValueForest))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, err := engine.Score([]float64{1}); !errors.Is(err, ErrUnexpectedOutput) {
		t.Fatalf("expected ErrUnexpectedOutput, got %v", err)
	}
}

func TestScoreRejectsStructurallyInvalidTree(t *testing.T) {
	// The split node points outside the node slice.
	const broken = `{
	  "feature_count": 2,
	  "trees": [{"nodes": [{"feature": 0, "threshold": 1, "left": 5, "right": 6}]}]
	}`
	engine, err := Load(writeModel(t, broken))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, err := engine.Score([]float64{1, 2}); !errors.Is(err, ErrUnexpectedOutput) {
		t.Fatalf("expected ErrUnexpectedOutput, got %v", err)
	}
}

func TestCloseDisablesScoring(t *testing.T) {
	engine, err := Load(writeModel(t, highValueForest))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	engine.Close()
	if _, err := engine.Score([]float64{1, 2}); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable after Close, got %v", err)
	}
}
