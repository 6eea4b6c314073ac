package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errsys "github.com/NexTeck/ExceptionHandler/pkg/errors"
)

func TestSamplingRegistry_Allow(t *testing.T) {
	r := NewSamplingRegistry(time.Minute)
	require.NotNil(t, r)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := errsys.New(errsys.CodeStoreIO, "disk full")

	ok, repeats := r.Allow(f, errsys.SeveritySevere, t0)
	assert.True(t, ok, "first occurrence notifies")
	assert.Zero(t, repeats)

	ok, _ = r.Allow(f, errsys.SeveritySevere, t0.Add(time.Second))
	assert.False(t, ok, "repeat within window is suppressed")

	ok, repeats = r.Allow(f, errsys.SeverityFatal, t0.Add(2*time.Second))
	assert.True(t, ok, "fatal always notifies")
	assert.Equal(t, 1, repeats)

	ok, repeats = r.Allow(f, errsys.SeveritySevere, t0.Add(5*time.Minute))
	assert.True(t, ok, "repeat after window notifies")
	assert.Zero(t, repeats)

	// Other codes are independent
	other := errsys.New(errsys.CodePermission, "denied")
	ok, _ = r.Allow(other, errsys.SeveritySevere, t0.Add(5*time.Minute))
	assert.True(t, ok)

	rec, found := r.Record(errsys.CodeStoreIO)
	require.True(t, found)
	assert.Equal(t, 4, rec.Count)
	assert.Equal(t, t0, rec.FirstSeen)

	stats := r.Stats()
	assert.Equal(t, 2, stats.UniqueCodes)
	assert.Equal(t, 5, stats.TotalOccurrences)

	r.Clear()
	assert.Zero(t, r.Stats().UniqueCodes)
}

func TestSamplingRegistry_Disabled(t *testing.T) {
	r := NewSamplingRegistry(0)
	assert.Nil(t, r)

	f := errsys.New(errsys.CodeStoreIO, "disk full")
	for i := 0; i < 3; i++ {
		ok, _ := r.Allow(f, errsys.SeveritySevere, time.Now())
		assert.True(t, ok)
	}
	assert.Equal(t, SamplingStats{}, r.Stats())
}

func TestService_SamplesRepeatedNotifications(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	notifier := &recordingNotifier{}
	cfg := testConfig()
	cfg.NotifyRateWindow = time.Minute
	svc := newTestService(t, cfg, WithNotifier(notifier), WithClock(clock))

	err := &codedError{code: errsys.CodeStoreIO}
	for i := 0; i < 3; i++ {
		svc.Report(err, "Saving failed.", errsys.SeveritySevere)
	}
	assert.Equal(t, []string{"Saving failed."}, notifier.Messages())
	assert.Equal(t, int64(2), svc.Stats().Suppressed)

	now = now.Add(2 * time.Minute)
	svc.Report(err, "Saving failed.", errsys.SeveritySevere)

	msgs := notifier.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Saving failed.\n(repeated 2 more times)", msgs[1])
	assert.NotNil(t, svc.Sampling())
}

type codedError struct {
	code string
}

func (e *codedError) Error() string       { return "coded failure" }
func (e *codedError) FailureCode() string { return e.code }

func TestNotifierFunc(t *testing.T) {
	called := false
	n := NotifierFunc(func(ctx context.Context, msg string, kind Kind) (Response, error) {
		called = true
		assert.Equal(t, "title", TitleFromContext(ctx))
		return ResponseYes, errors.New("ignored")
	})

	resp, err := n.Notify(ContextWithTitle(context.Background(), "title"), "hi", KindQuestion)
	assert.True(t, called)
	assert.Equal(t, ResponseYes, resp)
	assert.Error(t, err)
	assert.Equal(t, "", TitleFromContext(context.Background()))
	assert.Equal(t, "question", KindQuestion.String())
	assert.Equal(t, "yes", ResponseYes.String())
}
