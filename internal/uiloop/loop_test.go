package uiloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New()
	var got []int
	done := make(chan struct{})
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	l.Post(func() { close(done) })

	go l.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not run callbacks")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New()
	go l.Run(ctx)

	v, err := Call(ctx, l, func() string { return "ui" })
	require.NoError(t, err)
	assert.Equal(t, "ui", v)
}

func TestCall_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Call(ctx, New(), func() int { return 1 })
	assert.ErrorIs(t, err, context.Canceled)
}
