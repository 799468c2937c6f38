package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConcurrentGetsShareOneFetch(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	fetch := func(ctx context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []string{"q1", "q2"}, nil
	}

	var wg sync.WaitGroup
	results := make([][]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Get(context.Background(), c, KeyQuestions, fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	<-started
	assert.Eventually(t, func() bool { return c.State(KeyQuestions).Status == Loading }, time.Second, time.Millisecond)
	// Give the remaining goroutines a moment to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"q1", "q2"}, r)
	}
	st := c.State(KeyQuestions)
	assert.Equal(t, Success, st.Status)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestCallerCancelDoesNotAbortSharedFetch(t *testing.T) {
	c := New()
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	fetch := func(ctx context.Context) (int, error) {
		once.Do(func() { close(started) })
		<-release
		return 42, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := Get(ctx, c, "k", fetch)
		errCh <- err
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	done := make(chan int, 1)
	go func() {
		v, err := Get(context.Background(), c, "k", fetch)
		assert.NoError(t, err)
		done <- v
	}()
	close(release)
	assert.Equal(t, 42, <-done)
}

func TestInvalidateDropsInFlightResult(t *testing.T) {
	c := New()
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return "stale", nil
		}
		return "fresh", nil
	}

	oldCh := make(chan string, 1)
	go func() {
		v, _ := Get(context.Background(), c, KeyBackupFiles, fetch)
		oldCh <- v
	}()
	<-started
	c.Invalidate(KeyBackupFiles)

	v, err := Get(context.Background(), c, KeyBackupFiles, fetch)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	close(release)
	assert.Equal(t, "stale", <-oldCh)

	got, ok := Peek[string](c, KeyBackupFiles)
	require.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func TestErrorKeepsPriorData(t *testing.T) {
	c := New()
	_, err := Get(context.Background(), c, "k", func(context.Context) (string, error) { return "v1", nil })
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = Get(context.Background(), c, "k", func(context.Context) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	st := c.State("k")
	assert.Equal(t, Error, st.Status)
	assert.Equal(t, "v1", st.Data)
	assert.ErrorIs(t, st.Err, boom)
}

func TestStaleTimeServesCachedValue(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(WithStaleTime(time.Minute))
	c.now = func() time.Time { return now }
	var calls int
	fetch := func(context.Context) (int, error) { calls++; return calls, nil }

	v, _ := Get(context.Background(), c, "k", fetch)
	assert.Equal(t, 1, v)
	v, _ = Get(context.Background(), c, "k", fetch)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	v, _ = Get(context.Background(), c, "k", fetch)
	assert.Equal(t, 2, v)
}

func TestMutateInvalidatesByRule(t *testing.T) {
	c := New(WithStaleTime(time.Hour))
	load := func(v string) func(context.Context) (string, error) {
		return func(context.Context) (string, error) { return v, nil }
	}
	for _, k := range []string{KeyBackupConfig, KeyBackupFiles, KeyAptitudes("s1"), KeyLastCareer("s1"), KeyRecommendations("s1"), KeyQuestions} {
		_, err := Get(context.Background(), c, k, load(k))
		require.NoError(t, err)
	}

	_, err := Mutate(context.Background(), c, MutationAnswersSubmit, func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, Idle, c.State(KeyAptitudes("s1")).Status)
	assert.Equal(t, Idle, c.State(KeyLastCareer("s1")).Status)
	assert.Equal(t, Idle, c.State(KeyRecommendations("s1")).Status)
	assert.Equal(t, Success, c.State(KeyQuestions).Status)
	assert.Equal(t, Success, c.State(KeyBackupConfig).Status)

	_, err = Mutate(context.Background(), c, MutationBackupConfigUpdate, func(context.Context) (struct{}, error) {
		return struct{}{}, errors.New("rejected")
	})
	require.Error(t, err)
	assert.Equal(t, Success, c.State(KeyBackupConfig).Status, "failed mutation must not invalidate")

	_, err = Mutate(context.Background(), c, MutationBackupRestore, func(context.Context) (struct{}, error) { return struct{}{}, nil })
	require.NoError(t, err)
	assert.Equal(t, Idle, c.State(KeyQuestions).Status)
	assert.Equal(t, Idle, c.State(KeyBackupFiles).Status)
}

func TestSubscribeReportsTransitions(t *testing.T) {
	c := New()
	var mu sync.Mutex
	var seen []Status
	cancel := c.Subscribe(func(key string, e Entry) {
		mu.Lock()
		seen = append(seen, e.Status)
		mu.Unlock()
	})
	defer cancel()

	_, err := Get(context.Background(), c, "k", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	c.Invalidate("k")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{Loading, Success, Idle}, seen)
}

func TestGetTypeMismatch(t *testing.T) {
	c := New()
	_, err := Get(context.Background(), c, "k", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	_, ok := Peek[string](c, "k")
	assert.False(t, ok)
}
