package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{ warns []string }

func (l *testLogger) Debug(string, ...any)      {}
func (l *testLogger) Info(string, ...any)       {}
func (l *testLogger) Warn(msg string, _ ...any) { l.warns = append(l.warns, msg) }
func (l *testLogger) Error(string, ...any)      {}

func TestValidateRole(t *testing.T) {
	for _, r := range Roles {
		assert.NoError(t, ValidateRole(r), "role %s", r)
	}

	err := ValidateRole("narrator")
	require.Error(t, err)

	var roleErr *InvalidRoleError
	require.True(t, errors.As(err, &roleErr))
	assert.Equal(t, Role("narrator"), roleErr.Role)
	assert.Equal(t,
		"invalid role 'narrator': supported values are system, assistant, user, function, tool, developer",
		err.Error(),
	)
}

func TestSentinels(t *testing.T) {
	assert.Equal(t, "START", Start.Name())
	assert.Equal(t, "END", End.Name())
	assert.Equal(t, EndDescription, End.Description())
	assert.True(t, IsSentinel(Start))
	assert.True(t, IsSentinel(End))
	assert.True(t, IsReservedName("END"))
	assert.False(t, IsReservedName("end"))
}

func TestContent_TextAndClone(t *testing.T) {
	c := Content{Role: RoleUser, Parts: []Part{TextPart{Text: "foo"}, TextPart{Text: "bar"}}}
	assert.Equal(t, "foobar", c.Text())

	clone := c.Clone()
	clone.Parts[0] = TextPart{Text: "baz"}
	assert.Equal(t, "foobar", c.Text())
	assert.Equal(t, "bazbar", clone.Text())

	assert.Equal(t, "hi", NewTextContent(RoleSystem, "hi").Text())
}

func TestStepLimiter(t *testing.T) {
	l := NewStepLimiter(2)
	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())

	err := l.Increment()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDidNotTerminate)
	assert.Equal(t, 3, l.Count())

	unlimited := NewStepLimiter(0)
	for i := 0; i < 50; i++ {
		require.NoError(t, unlimited.Increment())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}

func TestRunContext(t *testing.T) {
	logger := &testLogger{}
	rc := NewRunContext(nil, "run-1", "session-1", nil, 3, logger)
	require.NotNil(t, rc.Context)
	assert.NoError(t, rc.Err())
	assert.Equal(t, 3, rc.Limiter.Remaining())

	rc.LogWarn("routing.fallback")
	assert.Equal(t, []string{"routing.fallback"}, logger.warns)

	ctx, cancel := context.WithCancel(context.Background())
	rc = NewRunContext(ctx, "run-2", "run-2", nil, 0, nil)
	cancel()
	<-rc.Done()
	assert.ErrorIs(t, rc.Err(), context.Canceled)
	rc.LogInfo("ignored") // nil logger replaced by NoOpLogger
}
