package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DebugOptions contains configuration for debug output.
type DebugOptions struct {
	Enabled      bool
	OutputDir    string
	SaveToFile   bool
	LogPrompts   bool
	LogResponses bool
}

// DebugManager traces the prompts and replies exchanged during an
// optimization run. When SaveToFile is set, every trace also lands in
// OutputDir so a run can be inspected afterwards.
type DebugManager struct {
	options   DebugOptions
	logger    Logger
	outputDir string
}

// NewDebugManager creates a debug manager that logs through logger.
func NewDebugManager(logger Logger, options DebugOptions) *DebugManager {
	if logger == nil {
		logger = NewNopLogger()
	}
	outputDir := options.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(".", "debug_output")
	}

	if options.SaveToFile && options.Enabled {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			logger.Warn("Failed to create debug output directory", "dir", outputDir, "error", err)
		}
	}

	return &DebugManager{
		options:   options,
		logger:    logger,
		outputDir: outputDir,
	}
}

func (dm *DebugManager) IsEnabled() bool {
	return dm != nil && dm.options.Enabled
}

// LogPrompt logs a prompt if prompt logging is enabled.
func (dm *DebugManager) LogPrompt(name, prompt string) {
	if !dm.IsEnabled() || !dm.options.LogPrompts {
		return
	}
	dm.logger.Debug("Prompt", "name", name, "prompt", prompt)
	if dm.options.SaveToFile {
		dm.saveToFile(fmt.Sprintf("prompt_%s.txt", name), prompt)
	}
}

// LogResponse logs a response if response logging is enabled.
func (dm *DebugManager) LogResponse(name, response string) {
	if !dm.IsEnabled() || !dm.options.LogResponses {
		return
	}
	dm.logger.Debug("Response", "name", name, "response", response)
	if dm.options.SaveToFile {
		dm.saveToFile(fmt.Sprintf("response_%s.txt", name), response)
	}
}

// SaveTrial writes one trial record as a JSON line.
func (dm *DebugManager) SaveTrial(trial int, data any) {
	if !dm.IsEnabled() || !dm.options.SaveToFile {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		dm.logger.Warn("Failed to encode trial for debug output", "trial", trial, "error", err)
		return
	}
	dm.saveToFile("trials.jsonl", string(raw))
}

func (dm *DebugManager) saveToFile(filename, content string) {
	path := filepath.Join(dm.outputDir, filename)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		dm.logger.Error("Failed to open file for debug output", "error", err, "file", path)
		return
	}
	defer file.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(file, "[%s] %s\n", timestamp, content); err != nil {
		dm.logger.Error("Failed to write debug output", "error", err, "file", path)
	}
}
