package main

import (
	"encoding/json"
	"fmt"
	"os"

	coreerrors "github.com/apexlabs/regressor/core/errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	exitOK           = 0
	exitGateFailed   = 1
	exitInvalidInput = 2
)

func writeJSONOutput(output any, exitCode int) int {
	encoded, err := marshalOutputWithErrorEnvelope(output, exitCode)
	if err != nil {
		fmt.Println(`{"ok":false,"error":"failed to encode output","error_code":"encode_failed","error_category":"internal_failure","retryable":false}`)
		return exitInvalidInput
	}
	fmt.Println(string(encoded))
	return exitCode
}

func marshalOutputWithErrorEnvelope(output any, exitCode int) ([]byte, error) {
	encoded, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	if err := json.Unmarshal(encoded, &result); err != nil {
		return nil, err
	}
	errorText, _ := result["error"].(string)
	if errorText == "" {
		return json.Marshal(result)
	}
	if code, _ := result["error_code"].(string); code == "" {
		result["error_code"] = defaultErrorCode(exitCode)
	}
	if category, _ := result["error_category"].(string); category == "" {
		result["error_category"] = string(defaultErrorCategory(exitCode))
	}
	if _, exists := result["retryable"]; !exists {
		result["retryable"] = false
	}
	if hint, _ := result["hint"].(string); hint == "" {
		result["hint"] = defaultHint(exitCode)
	}
	return json.Marshal(result)
}

// errorOutput annotates a failure envelope with the classified error's
// metadata when present, so JSON consumers see the same taxonomy the exit
// code was derived from.
func errorFields(err error) (code, category, hint string, retryable bool) {
	return coreerrors.CodeOf(err),
		string(coreerrors.CategoryOf(err)),
		coreerrors.HintOf(err),
		coreerrors.RetryableOf(err)
}

func exitCodeForError(err error, fallbackExit int) int {
	if err == nil {
		return exitOK
	}
	switch coreerrors.CategoryOf(err) {
	case coreerrors.CategoryInvalidInput:
		return exitInvalidInput
	case coreerrors.CategoryInsufficientHistory:
		return exitOK
	case coreerrors.CategoryProcessLaunch,
		coreerrors.CategoryProcessTimeout,
		coreerrors.CategoryParseFailed,
		coreerrors.CategoryIOFailure,
		coreerrors.CategoryInternalFailure:
		return exitGateFailed
	}
	return fallbackExit
}

func defaultErrorCategory(exitCode int) coreerrors.Category {
	switch exitCode {
	case exitInvalidInput:
		return coreerrors.CategoryInvalidInput
	default:
		return coreerrors.CategoryInternalFailure
	}
}

func defaultErrorCode(exitCode int) string {
	switch exitCode {
	case exitInvalidInput:
		return "invalid_input"
	default:
		return "internal_failure"
	}
}

func defaultHint(exitCode int) string {
	switch exitCode {
	case exitInvalidInput:
		return "check command usage and configuration"
	default:
		return "retry after checking local environment and logs"
	}
}

// newLogger builds the console logger used by the engine packages. Output
// goes to stderr so suite output and JSON envelopes on stdout stay clean.
func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(config),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}
