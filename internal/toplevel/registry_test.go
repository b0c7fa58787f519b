package toplevel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHandle struct{ id uint32 }

func (h *testHandle) ProtocolID() uint32 { return h.id }

type testOutput struct{ id uint32 }

func (o *testOutput) ProtocolID() uint32 { return o.id }

type recorder struct {
	updates []Update
}

func (r *recorder) sink(u Update) { r.updates = append(r.updates, u) }

func newTestRegistry(policy ViolationPolicy) (*Registry, *recorder) {
	rec := &recorder{}
	return NewRegistry(policy, rec.sink, nil), rec
}

func TestRegistry_AttributesEmitNothingUntilCommit(t *testing.T) {
	reg, rec := newTestRegistry(ViolationPanic)
	h := &testHandle{id: 1}
	out := &testOutput{id: 10}

	reg.HandleManager(NewToplevel{Handle: h})
	reg.HandleEvent(h, TitleChanged{Title: "Mozilla Firefox"})
	reg.HandleEvent(h, AppIDChanged{AppID: "firefox"})
	reg.HandleEvent(h, OutputEntered{Output: out})
	reg.HandleEvent(h, StateChanged{State: NewStateSet(Activated)})
	assert.Empty(t, rec.updates)

	reg.HandleEvent(h, Committed{})
	require.Len(t, rec.updates, 1)

	u := rec.updates[0]
	assert.Equal(t, UpdateAdd, u.Kind)
	assert.Same(t, h, u.Handle)
	assert.Equal(t, "Mozilla Firefox", u.Info.Title)
	assert.Equal(t, "firefox", u.Info.AppID)
	assert.True(t, u.Info.State.Has(Activated))
	assert.Contains(t, u.Info.Outputs, Output(out))
}

func TestRegistry_FirstCommitIsAddLaterAreUpdate(t *testing.T) {
	reg, rec := newTestRegistry(ViolationPanic)
	h := &testHandle{id: 1}

	reg.HandleManager(NewToplevel{Handle: h})
	reg.HandleEvent(h, Committed{})
	reg.HandleEvent(h, TitleChanged{Title: "a"})
	reg.HandleEvent(h, Committed{})
	reg.HandleEvent(h, Committed{})

	require.Len(t, rec.updates, 3)
	assert.Equal(t, UpdateAdd, rec.updates[0].Kind)
	assert.Equal(t, UpdateUpdate, rec.updates[1].Kind)
	assert.Equal(t, UpdateUpdate, rec.updates[2].Kind)
	assert.Equal(t, "a", rec.updates[2].Info.Title)
}

func TestRegistry_CommittedInfoIsIsolatedFromPending(t *testing.T) {
	reg, rec := newTestRegistry(ViolationPanic)
	h := &testHandle{id: 1}
	out := &testOutput{id: 10}

	reg.HandleManager(NewToplevel{Handle: h})
	reg.HandleEvent(h, OutputEntered{Output: out})
	reg.HandleEvent(h, Committed{})
	reg.HandleEvent(h, OutputLeft{Output: out})
	reg.HandleEvent(h, TitleChanged{Title: "changed"})

	require.Len(t, rec.updates, 1)
	assert.Contains(t, rec.updates[0].Info.Outputs, Output(out))

	current, ok := reg.Current(h)
	require.True(t, ok)
	assert.Empty(t, current.Title)
	assert.Len(t, current.Outputs, 1)
}

func TestRegistry_CloseRemovesEvenWithoutCommit(t *testing.T) {
	reg, rec := newTestRegistry(ViolationPanic)
	h := &testHandle{id: 1}

	reg.HandleManager(NewToplevel{Handle: h})
	reg.HandleEvent(h, TitleChanged{Title: "never shown"})
	reg.HandleEvent(h, Closed{})

	require.Len(t, rec.updates, 1)
	assert.Equal(t, UpdateRemove, rec.updates[0].Kind)
	assert.False(t, reg.Contains(h))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_HandlesCompareByIdentity(t *testing.T) {
	reg, rec := newTestRegistry(ViolationPanic)
	a := &testHandle{id: 7}
	b := &testHandle{id: 7}

	reg.HandleManager(NewToplevel{Handle: a})
	reg.HandleManager(NewToplevel{Handle: b})
	assert.Equal(t, 2, reg.Len())

	reg.HandleEvent(a, Closed{})
	assert.True(t, reg.Contains(b))
	require.Len(t, rec.updates, 1)
	assert.Same(t, a, rec.updates[0].Handle)
}

func TestRegistry_ViolationPanic(t *testing.T) {
	reg, _ := newTestRegistry(ViolationPanic)
	h := &testHandle{id: 3}

	defer func() {
		r := recover()
		require.NotNil(t, r)
		lerr, ok := r.(*LifecycleError)
		require.True(t, ok, "panic value should be *LifecycleError, got %T", r)
		assert.True(t, errors.Is(lerr, ErrUnknownHandle))
		assert.Equal(t, "done", lerr.Event)
	}()
	reg.HandleEvent(h, Committed{})
}

func TestRegistry_ViolationWarnDrops(t *testing.T) {
	reg, rec := newTestRegistry(ViolationWarn)
	h := &testHandle{id: 3}

	assert.NotPanics(t, func() {
		reg.HandleEvent(h, TitleChanged{Title: "x"})
		reg.HandleEvent(h, Committed{})
		reg.HandleEvent(h, Closed{})
	})
	assert.Empty(t, rec.updates)

	reg.HandleManager(NewToplevel{Handle: h})
	assert.NotPanics(t, func() {
		reg.HandleManager(NewToplevel{Handle: h})
	})
	assert.Equal(t, 1, reg.Len())
}

func TestParseViolationPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ViolationPolicy
		wantErr bool
	}{
		{"", ViolationPanic, false},
		{"panic", ViolationPanic, false},
		{"WARN", ViolationWarn, false},
		{"ignore", ViolationPanic, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseViolationPolicy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
