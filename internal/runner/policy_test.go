package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xttesting "github.com/imamik/xtserver/internal/testing"
)

func policySequence() Sequence {
	return Sequence{
		{Name: "accounts", Commands: []string{"addgroup xtuser", "addgroup xtadmin"}},
		{Name: "ownership", Commands: []string{"chown -R :xtuser /etc/xtuple"}},
		{Name: "permissions", Commands: []string{"chmod -R g=x,o-wr /etc/xtuple/"}},
	}
}

func TestSequence_StepsPreserveDeclaredOrder(t *testing.T) {
	t.Parallel()
	seq := policySequence()

	steps := seq.Steps()

	require.Len(t, steps, 4)
	assert.Equal(t, Step{Name: "accounts", Command: "addgroup xtuser"}, steps[0])
	assert.Equal(t, Step{Name: "accounts", Command: "addgroup xtadmin"}, steps[1])
	assert.Equal(t, "ownership", steps[2].Name)
	assert.Equal(t, "permissions", steps[3].Name)
}

func TestBestEffort_AllSucceed(t *testing.T) {
	t.Parallel()
	ex := xttesting.NewFakeExecutor()

	report := BestEffort(context.Background(), ex, logr.Discard(), policySequence())

	assert.Equal(t, 4, report.Succeeded())
	assert.Empty(t, report.Ignored())
	assert.Equal(t, []string{
		"addgroup xtuser",
		"addgroup xtadmin",
		"chown -R :xtuser /etc/xtuple",
		"chmod -R g=x,o-wr /etc/xtuple/",
	}, ex.Calls())
}

func TestBestEffort_FailureOfAnySingleCommandDoesNotStopTheRest(t *testing.T) {
	t.Parallel()
	steps := policySequence().Steps()

	for i, failing := range steps {
		t.Run(failing.Command, func(t *testing.T) {
			t.Parallel()
			ex := xttesting.NewFakeExecutor().Fail(failing.Command, 9, "group already exists")

			report := BestEffort(context.Background(), ex, logr.Discard(), policySequence())

			assert.Len(t, ex.Calls(), len(steps))
			require.Len(t, report.Ignored(), 1)
			assert.Equal(t, failing, report.Ignored()[0].Step)
			assert.Equal(t, Ignored, report.Results[i].Outcome)
			assert.Equal(t, len(steps)-1, report.Succeeded())
		})
	}
}

func TestBestEffort_TransportErrorIsIgnored(t *testing.T) {
	t.Parallel()
	ex := xttesting.NewFakeExecutor().OnError("addgroup xtuser", errors.New("exec format error"))

	report := BestEffort(context.Background(), ex, logr.Discard(), policySequence())

	require.Len(t, report.Ignored(), 1)
	assert.Error(t, report.Ignored()[0].Err)
	assert.Len(t, ex.Calls(), 4)
}

func TestBestEffortSteps_StdinIsFedAndNotLogged(t *testing.T) {
	t.Parallel()
	ex := xttesting.NewFakeExecutor().Fail("chpasswd", 1, "")
	var logs strings.Builder
	log := funcr.New(func(_, args string) { logs.WriteString(args) }, funcr.Options{Verbosity: 1})

	report := BestEffortSteps(context.Background(), ex, log, []Step{
		{Name: "accounts", Command: "useradd acme"},
		{Name: "accounts", Command: "chpasswd", Stdin: "acme:secret\n"},
	})

	input, ok := ex.Input("chpasswd")
	require.True(t, ok)
	assert.Equal(t, "acme:secret\n", input)
	useradd, _ := ex.Input("useradd")
	assert.Empty(t, useradd)
	require.Len(t, report.Ignored(), 1)
	assert.Contains(t, logs.String(), "chpasswd")
	assert.NotContains(t, logs.String(), "secret")
}

func TestFailFast_FeedsStdin(t *testing.T) {
	t.Parallel()
	ex := xttesting.NewFakeExecutor()

	require.NoError(t, FailFast(context.Background(), ex, logr.Discard(), []Step{
		{Name: "load", Command: "psql -f -", Stdin: "select 1;"},
	}))

	input, _ := ex.Input("psql")
	assert.Equal(t, "select 1;", input)
}

func TestFailFast_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	ex := xttesting.NewFakeExecutor().Fail("build core", 1, "ERROR: relation \"foo\" does not exist")
	steps := []Step{
		{Name: "core build", Command: "build core"},
		{Name: "extension inventory", Command: "build inventory"},
	}

	err := FailFast(context.Background(), ex, logr.Discard(), steps)

	require.Error(t, err)
	var bf *BuildFailure
	require.True(t, errors.As(err, &bf))
	assert.Equal(t, "core build", bf.Step.Name)
	assert.Equal(t, 1, bf.Result.ExitCode)
	assert.Contains(t, err.Error(), `ERROR: relation "foo" does not exist`)
	assert.Contains(t, bf.Output(), "relation")
	assert.Equal(t, []string{"build core"}, ex.Calls())
}

func TestFailFast_TransportError(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection reset")
	ex := xttesting.NewFakeExecutor().OnError("build core", cause)

	err := FailFast(context.Background(), ex, logr.Discard(), []Step{{Name: "core build", Command: "build core"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "core build failed: connection reset")
}

func TestFailFast_AllSucceed(t *testing.T) {
	t.Parallel()
	ex := xttesting.NewFakeExecutor()

	err := FailFast(context.Background(), ex, logr.Discard(), []Step{{Name: "a", Command: "a"}, {Name: "b", Command: "b"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ex.Calls())
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "ignored", Ignored.String())
	assert.Equal(t, "fatal", Fatal.String())
	assert.Equal(t, "outcome(7)", Outcome(7).String())
}
