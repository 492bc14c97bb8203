package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRunner struct {
	calls   int
	results []*core.RunResult
}

func (f *fakeRunner) RunAll(ctx context.Context) []*core.RunResult {
	f.calls++
	return f.results
}

func TestTickSummarisesRuns(t *testing.T) {
	obsCore, logs := observer.New(zap.InfoLevel)
	runner := &fakeRunner{results: []*core.RunResult{
		{Status: core.RunStatusSuccess, Stats: core.RunStats{ProcessedEmails: 3, DraftsCreated: 2}},
		{Status: core.RunStatusFailed, Stats: core.RunStats{ProcessedEmails: 1}},
	}}
	s := New("@every 15m", runner, zap.New(obsCore))

	s.tick(context.Background())

	assert.Equal(t, 1, runner.calls)
	finished := logs.FilterMessage("Scheduled email check finished").All()
	require.Len(t, finished, 1)
	fields := finished[0].ContextMap()
	assert.EqualValues(t, 2, fields["runs"])
	assert.EqualValues(t, 1, fields["failed_runs"])
	assert.EqualValues(t, 4, fields["processed_emails"])
	assert.EqualValues(t, 2, fields["drafts_created"])
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := New("every now and then", &fakeRunner{}, zap.NewNop())
	err := s.Start()
	assert.ErrorContains(t, err, "invalid schedule")
	assert.NoError(t, s.Stop())
}

func TestStartStop(t *testing.T) {
	s := New("@every 1h", &fakeRunner{}, zap.NewNop())
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}
