/**
 * @description
 * This package wraps the frozen fraud-scoring model. The artifact is a
 * JSON-encoded random forest exported by the training pipeline; it is loaded
 * once at process start and walked in process for every scoring call.
 *
 * The engine is an explicitly constructed component with a Load/Close
 * lifecycle and is passed by reference to the consumer. If the artifact cannot
 * be loaded the engine enters a permanently disabled state: every Score call
 * fails fast with ErrModelUnavailable and no reload is attempted (the model is
 * immutable for the process lifetime, so recovery requires a restart).
 */

package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
)

var (
	// ErrModelUnavailable is returned when the model artifact failed to load
	// or the engine has been closed.
	ErrModelUnavailable = errors.New("scoring model unavailable")

	// ErrUnexpectedOutput is returned when inference cannot produce a single
	// class label, e.g. the forest is structurally invalid or the feature
	// vector does not match the model's input shape.
	ErrUnexpectedOutput = errors.New("unexpected model output")
)

// FeatureCount is the input shape the bundled model was trained with:
// [amount, timestamp_millis].
const FeatureCount = 2

type treeNode struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Class     int64   `json:"class,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

type decisionTree struct {
	Nodes []treeNode `json:"nodes"`
}

type forestModel struct {
	FeatureCount int            `json:"feature_count"`
	Trees        []decisionTree `json:"trees"`
}

// Engine holds the loaded model and serves concurrent, read-only inference.
type Engine struct {
	model   *forestModel
	loadErr error
	closed  atomic.Bool
}

// Load reads and validates the model artifact at the given path. The returned
// engine is always usable by callers: on load failure it is permanently
// disabled rather than nil, and the error describes why.
func Load(path string) (*Engine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("read model artifact: %w", err)
		return &Engine{loadErr: err}, err
	}

	var model forestModel
	if err := json.Unmarshal(raw, &model); err != nil {
		err = fmt.Errorf("decode model artifact: %w", err)
		return &Engine{loadErr: err}, err
	}
	if model.FeatureCount != FeatureCount {
		err := fmt.Errorf("model expects %d features, this service produces %d", model.FeatureCount, FeatureCount)
		return &Engine{loadErr: err}, err
	}
	if len(model.Trees) == 0 {
		err := errors.New("model artifact contains no trees")
		return &Engine{loadErr: err}, err
	}

	return &Engine{model: &model}, nil
}

// Ready reports whether the engine can serve scoring calls.
func (e *Engine) Ready() bool {
	return e.model != nil && e.loadErr == nil && !e.closed.Load()
}

// Close releases the engine. Subsequent Score calls fail with
// ErrModelUnavailable.
func (e *Engine) Close() {
	e.closed.Store(true)
}

// Score runs the feature vector through the forest and returns the
// majority-vote class label. A nonzero label means the model judged the
// transaction fraudulent.
func (e *Engine) Score(features []float64) (int64, error) {
	if !e.Ready() {
		if e.loadErr != nil {
			return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, e.loadErr)
		}
		return 0, ErrModelUnavailable
	}
	if len(features) != e.model.FeatureCount {
		return 0, fmt.Errorf("%w: feature vector has %d values, want %d", ErrUnexpectedOutput, len(features), e.model.FeatureCount)
	}

	votes := make(map[int64]int)
	for i := range e.model.Trees {
		class, err := e.model.Trees[i].predict(features)
		if err != nil {
			return 0, err
		}
		votes[class]++
	}

	var best int64
	bestCount := -1
	for class, count := range votes {
		// Ties break toward the lower class label so a split vote never flags.
		if count > bestCount || (count == bestCount && class < best) {
			best, bestCount = class, count
		}
	}
	return best, nil
}

// predict walks a single tree. Each hop is bounds-checked and the walk is
// capped at the node count, so a malformed tree yields ErrUnexpectedOutput
// instead of looping.
func (t *decisionTree) predict(features []float64) (int64, error) {
	if len(t.Nodes) == 0 {
		return 0, fmt.Errorf("%w: empty tree", ErrUnexpectedOutput)
	}
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Class, nil
		}
		if node.Feature < 0 || node.Feature >= len(features) {
			return 0, fmt.Errorf("%w: node references feature %d", ErrUnexpectedOutput, node.Feature)
		}
		next := node.Right
		if features[node.Feature] <= node.Threshold {
			next = node.Left
		}
		if next < 0 || next >= len(t.Nodes) {
			return 0, fmt.Errorf("%w: node index %d out of range", ErrUnexpectedOutput, next)
		}
		idx = next
	}
	return 0, fmt.Errorf("%w: tree walk did not reach a leaf", ErrUnexpectedOutput)
}
