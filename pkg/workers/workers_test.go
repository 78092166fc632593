package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleRecoversFromPanic(t *testing.T) {
	m := &Manager{}
	assert.NotPanics(t, func() {
		m.cycle(context.Background(), "panicky", func(ctx context.Context) (int, error) {
			panic("boom")
		})
	}, "a panicking cycle body must not take the loop down")
}

func TestCycleSwallowsErrorAndReturns(t *testing.T) {
	m := &Manager{}
	assert.NotPanics(t, func() {
		m.cycle(context.Background(), "erroring", func(ctx context.Context) (int, error) {
			return 0, errors.New("boom")
		})
	})
}

func TestCycleRunsSuccessfully(t *testing.T) {
	m := &Manager{}
	ran := false
	m.cycle(context.Background(), "ok", func(ctx context.Context) (int, error) {
		ran = true
		return 3, nil
	})
	assert.True(t, ran)
}
