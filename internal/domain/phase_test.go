package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPhaseTableIsValid(t *testing.T) {
	table := DefaultPhaseTable()
	require.NoError(t, table.Validate())

	assert.Equal(t, LabelPreRehab, table.LabelFor(PhasePreRehab))
	assert.Equal(t, LabelEarly, table.LabelFor(PhaseEarly))
	assert.Equal(t, LabelRTSCleared, table.LabelFor(PhaseRTSCleared))
	assert.Empty(t, table.LabelFor(PhaseLevel(9)))
}

func TestPhaseTableValidateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PhaseTable)
	}{
		{"missing base label", func(p *PhaseTable) { p.BaseLabel = "" }},
		{"missing gate", func(p *PhaseTable) { p.Gates = p.Gates[:3] }},
		{"out of order", func(p *PhaseTable) { p.Gates[0], p.Gates[1] = p.Gates[1], p.Gates[0] }},
		{"empty criteria", func(p *PhaseTable) { p.Gates[2].Criteria = nil }},
		{"unlabeled gate", func(p *PhaseTable) { p.Gates[3].Label = "" }},
		{"unknown metric", func(p *PhaseTable) { p.Gates[1].Criteria[0].Metric = "Grip" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := DefaultPhaseTable()
			tt.mutate(&table)
			assert.Error(t, table.Validate())
		})
	}
}
