package inference

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tphakala/go-tflite"
)

var (
	// ErrUnreadableImage reports image bytes that could not be decoded.
	// It is a per-request failure, never fatal to the process.
	ErrUnreadableImage = errors.New("unreadable image")
	// ErrModelUnavailable reports a model or label artifact that failed
	// to load. It is fatal at process start.
	ErrModelUnavailable = errors.New("model unavailable")
)

// Interpreter abstracts the forward pass so tests can substitute a fake.
type Interpreter interface {
	Invoke(input []float32) ([]float32, error)
}

// Classifier maps image bytes to the identifier predicted by the loaded
// model. The model and label table are loaded once at startup and never
// mutated afterward, so a single Classifier serves concurrent requests.
type Classifier struct {
	interp    Interpreter
	labels    []string
	inputSize int
}

// NewClassifier assembles a classifier from an already-initialized
// interpreter and label table. Used directly by tests; production code
// goes through LoadClassifier.
func NewClassifier(interp Interpreter, labels []string, inputSize int) (*Classifier, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: empty label table", ErrModelUnavailable)
	}
	if inputSize <= 0 {
		return nil, fmt.Errorf("%w: invalid input size %d", ErrModelUnavailable, inputSize)
	}
	return &Classifier{interp: interp, labels: labels, inputSize: inputSize}, nil
}

// LoadClassifier loads the TFLite model artifact and the label-encoding
// table. Any failure here must abort process start.
func LoadClassifier(modelPath, labelsPath string, inputSize int) (*Classifier, error) {
	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	model := tflite.NewModelFromFile(modelPath)
	if model == nil {
		return nil, fmt.Errorf("%w: cannot load model from %s", ErrModelUnavailable, modelPath)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(4)

	interp := tflite.NewInterpreter(model, options)
	if interp == nil {
		return nil, fmt.Errorf("%w: cannot create interpreter", ErrModelUnavailable)
	}
	if status := interp.AllocateTensors(); status != tflite.OK {
		return nil, fmt.Errorf("%w: tensor allocation failed", ErrModelUnavailable)
	}

	return NewClassifier(&tfliteInterpreter{interp: interp}, labels, inputSize)
}

// Resolve runs a single forward pass and returns the label of the highest
// scoring class. Ties break toward the lowest index.
func (c *Classifier) Resolve(imageBytes []byte) (string, error) {
	input, err := preprocess(imageBytes, c.inputSize)
	if err != nil {
		return "", err
	}

	scores, err := c.interp.Invoke(input)
	if err != nil {
		return "", fmt.Errorf("inference failed: %w", err)
	}
	if len(scores) != len(c.labels) {
		return "", fmt.Errorf("model emitted %d scores for %d labels", len(scores), len(c.labels))
	}

	best := 0
	for i, score := range scores {
		if score > scores[best] {
			best = i
		}
	}
	return c.labels[best], nil
}

// InputSize returns the spatial dimension the model expects.
func (c *Classifier) InputSize() int {
	return c.inputSize
}

// Labels returns the label-encoding table in class-index order.
func (c *Classifier) Labels() []string {
	return c.labels
}

// tfliteInterpreter serializes access to the underlying interpreter: its
// input and output tensors are shared state across invocations.
type tfliteInterpreter struct {
	mu     sync.Mutex
	interp *tflite.Interpreter
}

func (t *tfliteInterpreter) Invoke(input []float32) ([]float32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	inputTensor := t.interp.GetInputTensor(0)
	if inputTensor == nil {
		return nil, errors.New("cannot get input tensor")
	}
	copy(inputTensor.Float32s(), input)

	if status := t.interp.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	outputTensor := t.interp.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, errors.New("cannot get output tensor")
	}

	raw := outputTensor.Float32s()
	scores := make([]float32, len(raw))
	copy(scores, raw)
	return scores, nil
}

// loadLabels reads the label-encoding table, one label per line, line
// number = model class index.
func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open labels file %s: %v", ErrModelUnavailable, path, err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading labels file: %v", ErrModelUnavailable, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: labels file %s is empty", ErrModelUnavailable, path)
	}
	return labels, nil
}
