// Package models locates the ONNX model files backing the detection
// capabilities.
package models

import (
	"fmt"
	"os"
	"path/filepath"
)

// Model file names looked up in a models directory.
const (
	BoardClassifier = "board_classifier.onnx"
	PhotoDetector   = "photo_detector.onnx"
	TableLocator    = "table_locator.onnx"
)

// EnvModelsDir overrides the models directory when none is configured.
const EnvModelsDir = "MARKSHEET_MODELS_DIR"

// ModelInfo describes one expected model file.
type ModelInfo struct {
	Capability string `json:"capability"`
	Filename   string `json:"filename"`
	Path       string `json:"path,omitempty"`
}

// Known lists the model files in capability order.
func Known() []ModelInfo {
	return []ModelInfo{
		{Capability: "board_classifier", Filename: BoardClassifier},
		{Capability: "photo_detector", Filename: PhotoDetector},
		{Capability: "table_locator", Filename: TableLocator},
	}
}

// GetModelsDir returns modelsDir, or the directory named by EnvModelsDir.
// An empty result means no directory is configured.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	return os.Getenv(EnvModelsDir)
}

// ResolveModelPath returns explicit when set. Otherwise it returns filename
// inside the models directory if that file exists, or "" so the capability
// stays unavailable without touching the runtime.
func ResolveModelPath(modelsDir, explicit, filename string) string {
	if explicit != "" {
		return explicit
	}
	dir := GetModelsDir(modelsDir)
	if dir == "" {
		return ""
	}
	path := filepath.Join(dir, filename)
	if ValidateModelExists(path) != nil {
		return ""
	}
	return path
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	info, err := os.Stat(modelPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("model path is a directory: %s", modelPath)
	}
	return nil
}

// Discover reports the known models present in the models directory.
func Discover(modelsDir string) []ModelInfo {
	var found []ModelInfo
	for _, m := range Known() {
		if m.Path = ResolveModelPath(modelsDir, "", m.Filename); m.Path != "" {
			found = append(found, m)
		}
	}
	return found
}
