package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotationTransitions(t *testing.T) {
	assert.Equal(t, []Status{Approved, Rejected}, Quotations.Next(Pending))
	assert.Equal(t, []Status{Converted}, Quotations.Next(Approved))
	assert.True(t, Quotations.CanMove(Approved, Converted))
	assert.False(t, Quotations.CanMove(Pending, Converted))
	assert.False(t, Quotations.CanMove(Rejected, Approved))
}

func TestTerminalStatusesHaveNoActions(t *testing.T) {
	cases := []struct {
		table Table
		s     Status
	}{
		{Quotations, Converted},
		{Quotations, Rejected},
		{Sales, Completed},
		{Sales, Cancelled},
		{Purchases, Received},
		{Purchases, Cancelled},
		{Quotations, Status("archived")},
	}
	for _, tc := range cases {
		t.Run(tc.table.Name()+"/"+string(tc.s), func(t *testing.T) {
			assert.True(t, tc.table.Terminal(tc.s))
			assert.Empty(t, tc.table.Actions(tc.s))
		})
	}
}

func TestActionsOnlyOfferReachableTargets(t *testing.T) {
	actions := Purchases.Actions(Pending)
	require.Len(t, actions, 2)
	assert.Equal(t, Received, actions[0].Target)
	assert.Equal(t, Cancelled, actions[1].Target)
	for _, a := range actions {
		assert.NotEmpty(t, a.Label)
	}

	sales := Sales.Actions(Pending)
	require.Len(t, sales, 2)
	assert.Equal(t, Completed, sales[0].Target)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Sales.Validate(Pending, Cancelled))
	err := Sales.Validate(Completed, Pending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "sale")
}

func TestParseAndLabel(t *testing.T) {
	assert.Equal(t, Approved, Parse(" APPROVED "))
	assert.Equal(t, "Convertida", Quotations.Label(Converted))
	assert.Equal(t, "unknown", Quotations.Label(Status("unknown")))
	assert.True(t, Sales.Known(Completed))
	assert.False(t, Sales.Known(Converted))
	assert.Len(t, Quotations.Statuses(), 4)
}
