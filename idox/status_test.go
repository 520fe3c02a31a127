package idox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseApplicationStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    ApplicationStatus
		wantErr bool
	}{
		{raw: "", want: StatusAll},
		{raw: "Appeal decided", want: StatusAppealDecided},
		{raw: "Appeal lodged", want: StatusAppealLodged},
		{raw: "Awaiting decision", want: StatusAwaitingDecision},
		{raw: "Decided", want: StatusDecided},
		{raw: "Registered", want: StatusRegistered},
		{raw: "Unknown", want: StatusUnknown},
		{raw: "Withdrawn", want: StatusWithdrawn},
		{raw: "AWAITING_DECISION", want: StatusAwaitingDecision},
		{raw: "ALL", want: StatusAll},
		{raw: "decided", wantErr: true},
		{raw: "Pending", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseApplicationStatus(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusRoundTrip(t *testing.T) {
	for s := StatusAll; s <= StatusWithdrawn; s++ {
		got, err := ParseApplicationStatus(s.DisplayValue())
		require.NoError(t, err)
		assert.Equal(t, s, got)

		got, err = ParseApplicationStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestInvalidStatusValue(t *testing.T) {
	s := ApplicationStatus(42)
	assert.Equal(t, "ApplicationStatus(42)", s.String())
	assert.Equal(t, "", s.DisplayValue())
}
