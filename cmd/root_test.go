package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fetchdeck/fetchd/internal/shell"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no error", nil, 0},
		{"clean shutdown", shell.NewExitError(0), 0},
		{"shell failure", shell.NewExitError(3), 3},
		{"wrapped shell failure", fmt.Errorf("run: %w", shell.NewExitError(2)), 2},
		{"plain error", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
