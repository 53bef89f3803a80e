package main

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/rohankatakam/classharvest/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	configErr := errors.ConfigError("no projects configured")
	assert.Equal(t, 2, exitCode(configErr))
	assert.Equal(t, 2, exitCode(fmt.Errorf("run: %w", configErr)))

	loadErr := errors.Wrap(stderrors.New("yaml: line 3"), errors.ErrorTypeConfig, errors.SeverityCritical, "failed to load configuration")
	assert.Equal(t, 2, exitCode(loadErr))

	assert.Equal(t, 1, exitCode(fmt.Errorf("2 units failed (--strict)")))
	assert.Equal(t, 1, exitCode(errors.ExternalError(stderrors.New("exit status 128"), "git clone failed")))
}

func TestErrorMessage(t *testing.T) {
	err := errors.ConfigError("no projects configured").WithContext("file", "harvest.yaml")

	assert.Equal(t, "Error: no projects configured\n", errorMessage(err, false))

	detailed := errorMessage(err, true)
	assert.Contains(t, detailed, "Error: [CRITICAL] [CONFIG] no projects configured")
	assert.Contains(t, detailed, "  file: harvest.yaml")

	assert.Equal(t, "Error: boom\n", errorMessage(stderrors.New("boom"), true))
}
