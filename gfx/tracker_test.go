package gfx

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerHappyPath(t *testing.T) {
	var tr Tracker
	shader := ShaderDesc{UniformBlocks: []UniformBlockDesc{{Stage: StageVertex, Size: 64}}}

	require.True(t, tr.BeginPass())
	tr.SetDrawState(true)
	index, ok := tr.CheckUniforms(shader, StageVertex, 0, 64)
	require.True(t, ok)
	assert.Equal(t, 0, index)
	require.True(t, tr.HasDrawState())
	require.True(t, tr.EndPass())
	assert.Equal(t, 1, tr.Passes())
	assert.NoError(t, tr.Commit())
	assert.Equal(t, 0, tr.Passes())
}

func TestTrackerOrderingErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func(tr *Tracker)
		want error
	}{
		{
			name: "draw outside pass",
			run:  func(tr *Tracker) { tr.HasDrawState() },
			want: ErrNoPass,
		},
		{
			name: "nested pass",
			run: func(tr *Tracker) {
				tr.BeginPass()
				tr.BeginPass()
			},
			want: ErrPassActive,
		},
		{
			name: "draw without draw state",
			run: func(tr *Tracker) {
				tr.BeginPass()
				tr.HasDrawState()
			},
			want: ErrNoDrawState,
		},
		{
			name: "commit inside pass",
			run:  func(tr *Tracker) { tr.BeginPass() },
			want: ErrPassActive,
		},
		{
			name: "end without begin",
			run:  func(tr *Tracker) { tr.EndPass() },
			want: ErrNoPass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tr Tracker
			tt.run(&tr)
			err := tr.Commit()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestTrackerUniformChecks(t *testing.T) {
	shader := ShaderDesc{Name: "s", UniformBlocks: []UniformBlockDesc{{Stage: StageFragment, Size: 16}}}

	var tr Tracker
	tr.BeginPass()
	tr.SetDrawState(true)
	_, ok := tr.CheckUniforms(shader, StageVertex, 0, 16)
	assert.False(t, ok)
	assert.True(t, errors.Is(tr.Commit(), ErrUniformSlot))

	tr.BeginPass()
	tr.SetDrawState(true)
	_, ok = tr.CheckUniforms(shader, StageFragment, 0, 32)
	assert.False(t, ok)
	assert.True(t, errors.Is(tr.Commit(), ErrUniformSize))
}

func TestTrackerLatchesFirstError(t *testing.T) {
	var tr Tracker
	tr.EndPass()
	assert.False(t, tr.BeginPass())
	assert.True(t, errors.Is(tr.Err(), ErrNoPass))
	tr.Fail(ErrUnsupported)
	assert.True(t, errors.Is(tr.Commit(), ErrNoPass))
	assert.NoError(t, tr.Err())
}
