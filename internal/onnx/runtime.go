// Package onnx wraps ONNX Runtime for the detection models.
package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/MeKo-Tech/marksheet/internal/mempool"
	"github.com/yalue/onnxruntime_go"
)

const (
	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

// RuntimeConfig controls how sessions are created.
type RuntimeConfig struct {
	LibraryPath string // Explicit shared library path; searched when empty
	UseGPU      bool
	DeviceID    int
	NumThreads  int
}

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the shared library and initialises the ONNX Runtime
// environment once per process.
func Init(cfg RuntimeConfig) error {
	initOnce.Do(func() {
		path := cfg.LibraryPath
		if path == "" {
			path = findLibrary(cfg.UseGPU)
		}
		if path == "" {
			initErr = errors.New("ONNX Runtime shared library not found")
			return
		}
		onnxruntime_go.SetSharedLibraryPath(path)
		if !onnxruntime_go.IsInitialized() {
			if err := onnxruntime_go.InitializeEnvironment(); err != nil {
				initErr = fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
				return
			}
		}
		slog.Debug("ONNX Runtime initialized", "library", path, "gpu", cfg.UseGPU)
	})
	return initErr
}

func libraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return libDarwin
	case "windows":
		return libWindows
	default:
		return libLinux
	}
}

func findLibrary(useGPU bool) string {
	name := libraryName()
	var candidates []string
	if env := os.Getenv("ONNXRUNTIME_LIB"); env != "" {
		candidates = append(candidates, env)
	}
	if useGPU {
		candidates = append(candidates, filepath.Join("/opt/onnxruntime/gpu/lib", name))
	}
	candidates = append(candidates,
		filepath.Join("/usr/local/lib", name),
		filepath.Join("/usr/lib", name),
		filepath.Join("/opt/onnxruntime/cpu/lib", name),
		filepath.Join("onnxruntime", "lib", name),
	)
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Session is a single-input single-output model session. It is safe for
// concurrent use.
type Session struct {
	session *onnxruntime_go.DynamicAdvancedSession
	input   onnxruntime_go.InputOutputInfo
	output  onnxruntime_go.InputOutputInfo
	mu      sync.Mutex
}

// NewSession opens modelPath. Init must have succeeded first.
func NewSession(modelPath string, cfg RuntimeConfig) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}
	if err := Init(cfg); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("expected 1 input and at least 1 output, got %d/%d", len(inputs), len(outputs))
	}
	if len(inputs[0].Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D input tensor, got %dD", len(inputs[0].Dimensions))
	}

	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()

	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}
	if cfg.UseGPU {
		if err := appendCUDA(opts, cfg.DeviceID); err != nil {
			slog.Warn("GPU requested but unavailable, using CPU", "error", err)
		}
	}

	sess, err := onnxruntime_go.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return &Session{session: sess, input: inputs[0], output: outputs[0]}, nil
}

func appendCUDA(opts *onnxruntime_go.SessionOptions, deviceID int) error {
	cuda, err := onnxruntime_go.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer func() { _ = cuda.Destroy() }()
	if err := cuda.Update(map[string]string{"device_id": strconv.Itoa(deviceID)}); err != nil {
		return err
	}
	return opts.AppendExecutionProviderCUDA(cuda)
}

// InputSize returns the model's spatial input size, or 0 for dynamic axes.
func (s *Session) InputSize() (int, int) {
	d := s.input.Dimensions
	return int(d[3]), int(d[2])
}

// Run executes the model on t and returns the flattened output and its shape.
// The output buffer is pooled, see mempool.PutFloat32.
func (s *Session) Run(t Tensor) ([]float32, []int64, error) {
	if err := VerifyImageTensor(t); err != nil {
		return nil, nil, fmt.Errorf("invalid tensor: %w", err)
	}

	in, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(t.Shape...), t.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = in.Destroy() }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil, errors.New("session is closed")
	}

	outputs := []onnxruntime_go.Value{nil}
	if err := s.session.Run([]onnxruntime_go.Value{in}, outputs); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() { _ = outputs[0].Destroy() }()

	ft, ok := outputs[0].(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("expected float32 tensor, got %T", outputs[0])
	}
	data := mempool.GetFloat32(len(ft.GetData()))
	copy(data, ft.GetData())
	return data, []int64(ft.GetShape()), nil
}

// Close releases the session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
