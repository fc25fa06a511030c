package anchor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evidapi/internal/model"
)

func TestSimulatedAnchor(t *testing.T) {
	a := NewSimulated()
	event := &model.CustodyEvent{
		ID:         "01HV0000000000000000000000",
		EvidenceID: "EV-2024-001",
		Event:      model.EventCreated,
	}

	ref, err := a.Anchor(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "0x"))
	assert.Len(t, ref, 18)

	// Same event anchored twice yields distinct references.
	ref2, err := a.Anchor(context.Background(), event)
	require.NoError(t, err)
	assert.NotEqual(t, ref, ref2)
}

func TestSimulatedAnchor_NilEvent(t *testing.T) {
	a := NewSimulated()
	_, err := a.Anchor(context.Background(), nil)
	assert.Error(t, err)
}
