package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestPer(t *testing.T) {
	assert.Equal(t, rate.Every(500*time.Millisecond), Per(2, time.Second))
}

func TestMultiSortsByLimit(t *testing.T) {
	slow := rate.NewLimiter(Per(1, time.Minute), 1)
	fast := rate.NewLimiter(Per(10, time.Second), 1)

	m := Multi(fast, slow)

	assert.Equal(t, slow.Limit(), m.Limit())
}

func TestFromRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
		want  rate.Limit
	}{
		{name: "no rules", want: rate.Inf},
		{name: "invalid rules skipped", rules: []Rule{{EventCount: 0, EventDur: 1}}, want: rate.Inf},
		{name: "strictest wins", rules: []Rule{
			{EventCount: 10, EventDur: 1},
			{EventCount: 60, EventDur: 60, Bucket: 5},
		}, want: Per(60, time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromRules(tt.rules...).Limit())
		})
	}
}

func TestMultiWaitCancelled(t *testing.T) {
	l := Multi(rate.NewLimiter(Per(1, time.Hour), 1))
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx))
}
