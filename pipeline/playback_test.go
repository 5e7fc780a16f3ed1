package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/flowgraph/element"
)

func TestPlayback(t *testing.T) {
	ctx := context.Background()

	t.Run("stopped to playing passes every child through prepared", func(t *testing.T) {
		log := &stepLog{}
		observer := &testObserver{}
		p := New("test", WithObserver(observer))
		defer shutdown(t, p)

		_, err := p.Apply(ctx, Spec{Children: []ChildSpec{
			{Name: "a", Config: &steppingConfig{log: log}},
			{Name: "b", Config: &steppingConfig{log: log}},
			{Name: "c", Config: &steppingConfig{log: log}},
		}})
		require.NoError(t, err)

		require.NoError(t, p.RequestState(ctx, element.Playing))
		assert.Equal(t, element.Playing, p.CurrentState())

		// barrier: every child reaches prepared before any child is
		// told to play
		entries := log.snapshot()
		require.Len(t, entries, 6)
		for _, e := range entries[:3] {
			assert.Equal(t, element.Prepared, e.to)
		}
		for _, e := range entries[3:] {
			assert.Equal(t, element.Playing, e.to)
		}

		observer.mu.Lock()
		changes := append([][2]element.State(nil), observer.stateChanges...)
		observer.mu.Unlock()
		require.Equal(t, [][2]element.State{
			{element.Stopped, element.Prepared},
			{element.Prepared, element.Playing},
		}, changes)
	})

	t.Run("downward transitions step the same way", func(t *testing.T) {
		log := &stepLog{}
		p := New("test")
		defer shutdown(t, p)

		_, err := p.Apply(ctx, Spec{Children: []ChildSpec{
			{Name: "a", Config: &steppingConfig{log: log}},
		}})
		require.NoError(t, err)

		require.NoError(t, p.RequestState(ctx, element.Playing))
		require.NoError(t, p.RequestState(ctx, element.Stopped))

		var states []element.State
		for _, e := range log.snapshot() {
			states = append(states, e.to)
		}
		assert.Equal(t, []element.State{
			element.Prepared, element.Playing,
			element.Prepared, element.Stopped,
		}, states)
	})

	t.Run("refused step halts at the last acknowledged state", func(t *testing.T) {
		p := New("test")
		defer shutdown(t, p)

		_, err := p.Apply(ctx, Spec{Children: []ChildSpec{
			{Name: "good", Config: &steppingConfig{}},
			{Name: "grumpy", Config: &steppingConfig{refuse: true, refuseTo: element.Playing}},
		}})
		require.NoError(t, err)

		err = p.RequestState(ctx, element.Playing)
		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, element.Prepared, stepErr.From)
		assert.Equal(t, element.Playing, stepErr.To)

		// prepared was fully acknowledged, playing was not
		assert.Equal(t, element.Prepared, p.CurrentState())
	})

	t.Run("late joiner is walked up before joining barriers", func(t *testing.T) {
		log := &stepLog{}
		p := New("test")
		defer shutdown(t, p)

		_, err := p.Apply(ctx, Spec{Children: []ChildSpec{
			{Name: "early", Config: &steppingConfig{}},
		}})
		require.NoError(t, err)
		require.NoError(t, p.RequestState(ctx, element.Playing))

		_, err = p.Apply(ctx, Spec{Children: []ChildSpec{
			{Name: "late", Config: &steppingConfig{log: log}},
		}})
		require.NoError(t, err)

		var states []element.State
		for _, e := range log.snapshot() {
			states = append(states, e.to)
		}
		assert.Equal(t, []element.State{element.Prepared, element.Playing}, states)
	})

	t.Run("transition with no children still moves the target", func(t *testing.T) {
		p := New("test")
		defer shutdown(t, p)

		require.NoError(t, p.RequestState(ctx, element.Prepared))
		assert.Equal(t, element.Prepared, p.CurrentState())
	})
}

func TestStateStepping(t *testing.T) {
	assert.Equal(t, element.Prepared, element.Stopped.StepToward(element.Playing))
	assert.Equal(t, element.Playing, element.Prepared.StepToward(element.Playing))
	assert.Equal(t, element.Prepared, element.Playing.StepToward(element.Stopped))
	assert.Equal(t, element.Stopped, element.Stopped.StepToward(element.Stopped))

	s, err := element.ParseState("prepared")
	require.NoError(t, err)
	assert.Equal(t, element.Prepared, s)
	_, err = element.ParseState("paused")
	require.Error(t, err)
}
