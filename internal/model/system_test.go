package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/zimg/internal/model"
)

func TestGPUStatusMemoryUsagePercent(t *testing.T) {
	tests := map[string]struct {
		gpu model.GPUStatus
		exp float64
	}{
		"Used memory should be a percent of the total.": {
			gpu: model.GPUStatus{MemoryUsedGB: 6, MemoryTotalGB: 24},
			exp: 25,
		},

		"Unknown total memory should be zero.": {
			gpu: model.GPUStatus{MemoryUsedGB: 6},
			exp: 0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, test.exp, test.gpu.MemoryUsagePercent(), 0.0001)
		})
	}
}
