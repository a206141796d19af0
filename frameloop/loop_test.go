package frameloop

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietConfig() Config {
	return Config{Logger: log.New(io.Discard, "", 0)}
}

func newTestLoop(t *testing.T, f *fixture) *Loop {
	t.Helper()

	frameCtx, err := f.context()
	require.NoError(t, err)
	return New(frameCtx, quietConfig())
}

func TestRunIterationOrdersAcquireSubmitPresent(t *testing.T) {
	f := newFixture(2)
	loop := newTestLoop(t, f)

	require.NoError(t, loop.RunIteration(context.Background()))

	require.Equal(t, []string{
		"acquire 0",
		"encode 0",
		"submit 0 after acquired-0",
		"present 0 after rendered-0",
	}, f.log.calls)
	require.Equal(t, StateIdle, loop.State())
}

func TestRunIterationAwaitsPreviousFrame(t *testing.T) {
	f := newFixture(2)
	loop := newTestLoop(t, f)

	require.NoError(t, loop.RunIteration(context.Background()))
	require.NoError(t, loop.RunIteration(context.Background()))

	require.Equal(t, []string{
		"acquire 0",
		"encode 0",
		"submit 0 after acquired-0",
		"present 0 after rendered-0",
		"wait rendered-0",
		"release rendered-0",
		"acquire 1",
		"encode 1",
		"submit 1 after acquired-1",
		"present 1 after rendered-1",
	}, f.log.calls)
	assert.Equal(t, 1, f.queue.completions[0].released)
	assert.Equal(t, 0, f.queue.completions[1].released)
}

func TestAcquireFailureSkipsRecordAndSubmit(t *testing.T) {
	f := newFixture(2)
	f.swapchain.failOn = map[int]error{1: ErrOutOfDate}
	loop := newTestLoop(t, f)

	require.NoError(t, loop.RunIteration(context.Background()))

	err := loop.RunIteration(context.Background())
	require.Error(t, err)

	var frameErr *FrameError
	require.True(t, errors.As(err, &frameErr))
	assert.Equal(t, uint64(1), frameErr.Frame)
	assert.Equal(t, StateAcquiring, frameErr.Stage)
	assert.True(t, IsSwapchainInvalid(err))
	assert.Equal(t, StateIdle, loop.State())

	require.NoError(t, loop.RunIteration(context.Background()))

	require.Equal(t, []string{
		"acquire 0",
		"encode 0",
		"submit 0 after acquired-0",
		"present 0 after rendered-0",
		"acquire failed",
		"acquire 1",
		"encode 1",
		"submit 1 after acquired-2",
		"present 1 after rendered-1",
	}, f.log.only("acquire", "encode", "submit", "present"))

	stats := loop.Stats()
	assert.Equal(t, uint64(2), stats.Presented)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestOutOfRangeIndexIsNotRecorded(t *testing.T) {
	f := newFixture(2)
	f.swapchain.badIndex = true
	loop := newTestLoop(t, f)

	err := loop.RunIteration(context.Background())
	require.True(t, errors.Is(err, ErrImageIndexOutOfRange))
	require.Empty(t, f.log.only("encode", "submit", "present"))
}

func TestEncodeFailureSkipsSubmit(t *testing.T) {
	f := newFixture(2)
	f.allocator.failOn = map[int]error{0: errors.New("out of host memory")}
	loop := newTestLoop(t, f)

	err := loop.RunIteration(context.Background())

	var frameErr *FrameError
	require.True(t, errors.As(err, &frameErr))
	assert.Equal(t, StateRecording, frameErr.Stage)
	require.Empty(t, f.log.only("submit", "present"))
}

func TestSubmitFailureSkipsPresent(t *testing.T) {
	f := newFixture(2)
	f.queue.submitFailOn = map[int]error{0: ErrDeviceLost}
	loop := newTestLoop(t, f)

	err := loop.RunIteration(context.Background())
	require.True(t, IsDeviceLost(err))

	var frameErr *FrameError
	require.True(t, errors.As(err, &frameErr))
	assert.Equal(t, StateSubmitted, frameErr.Stage)
	require.Empty(t, f.log.only("present"))

	require.NoError(t, loop.RunIteration(context.Background()))
	assert.Equal(t, []string{"present 1 after rendered-1"}, f.log.only("present"))
}

func TestPresentFailureStillAwaitsSubmittedWork(t *testing.T) {
	f := newFixture(2)
	f.queue.presentFailOn = map[int]error{0: ErrOutOfDate}
	loop := newTestLoop(t, f)

	require.Error(t, loop.RunIteration(context.Background()))
	require.NoError(t, loop.RunIteration(context.Background()))

	assert.Equal(t, 1, f.queue.completions[0].waited)
	assert.Equal(t, 1, f.queue.completions[0].released)
	assert.Empty(t, f.queue.abandoned)
}

func TestEncodeFailureReturnsImageBeforeNextAcquire(t *testing.T) {
	f := newFixture(2)
	f.allocator.failOn = map[int]error{0: errors.New("out of host memory")}
	loop := newTestLoop(t, f)

	require.Error(t, loop.RunIteration(context.Background()))
	require.NoError(t, loop.RunIteration(context.Background()))

	require.Equal(t, []string{
		"acquire 0",
		"encode failed",
		"abandon 0 after acquired-0",
		"wait abandoned-0",
		"release abandoned-0",
		"acquire 1",
		"encode 1",
		"submit 1 after acquired-1",
		"present 1 after rendered-0",
	}, f.log.calls)
	require.Len(t, f.queue.abandoned, 1)
}

func TestSubmitFailureReturnsImageBeforeNextAcquire(t *testing.T) {
	f := newFixture(2)
	f.queue.submitFailOn = map[int]error{0: ErrDeviceLost}
	loop := newTestLoop(t, f)

	require.Error(t, loop.RunIteration(context.Background()))
	require.NoError(t, loop.RunIteration(context.Background()))

	require.Equal(t, []string{
		"acquire 0",
		"encode 0",
		"submit failed",
		"abandon 0 after acquired-0",
		"wait abandoned-0",
		"release abandoned-0",
		"acquire 1",
		"encode 1",
		"submit 1 after acquired-1",
		"present 1 after rendered-1",
	}, f.log.calls)
	require.Len(t, f.queue.abandoned, 1)
}

func TestFailedAbandonKeepsOriginalError(t *testing.T) {
	f := newFixture(2)
	f.allocator.failOn = map[int]error{0: errors.New("out of host memory")}
	f.queue.abandonFailOn = map[int]error{0: ErrDeviceLost}
	loop := newTestLoop(t, f)

	err := loop.RunIteration(context.Background())

	var frameErr *FrameError
	require.True(t, errors.As(err, &frameErr))
	assert.Equal(t, StateRecording, frameErr.Stage)
	assert.False(t, IsDeviceLost(err))

	require.NoError(t, loop.RunIteration(context.Background()))
	assert.Empty(t, f.log.only("wait", "release"))
}

func TestFinishedFrameIsReleasedWithoutWaiting(t *testing.T) {
	f := newFixture(2)
	f.queue.finished = true
	loop := newTestLoop(t, f)

	require.NoError(t, loop.RunIteration(context.Background()))
	require.NoError(t, loop.RunIteration(context.Background()))

	assert.Equal(t, []string{"release rendered-0"}, f.log.only("wait", "release"))
	assert.Equal(t, 0, f.queue.completions[0].waited)
}

func TestFailedWaitDropsFrameBeforeAcquire(t *testing.T) {
	f := newFixture(2)
	f.queue.waitErr = ErrDeviceLost
	loop := newTestLoop(t, f)

	require.NoError(t, loop.RunIteration(context.Background()))

	err := loop.RunIteration(context.Background())
	require.True(t, IsDeviceLost(err))

	var frameErr *FrameError
	require.True(t, errors.As(err, &frameErr))
	assert.Equal(t, StateIdle, frameErr.Stage)
	assert.Equal(t, 1, f.swapchain.acquires)
	assert.Equal(t, 0, f.queue.completions[0].released)
}

func TestSuboptimalAcquisitionIsIgnored(t *testing.T) {
	f := newFixture(3)
	f.swapchain.suboptimal = true
	loop := newTestLoop(t, f)

	for i := 0; i < 3; i++ {
		require.NoError(t, loop.RunIteration(context.Background()))
	}

	stats := loop.Stats()
	assert.Equal(t, uint64(3), stats.Presented)
	assert.Equal(t, uint64(3), stats.Suboptimal)
	assert.Equal(t, uint64(0), stats.Dropped)
}

func TestAcquireTimeoutIsPassedThrough(t *testing.T) {
	f := newFixture(2)
	frameCtx, err := f.context()
	require.NoError(t, err)

	cfg := quietConfig()
	cfg.AcquireTimeout = 250 * time.Millisecond
	loop := New(frameCtx, cfg)

	require.NoError(t, loop.RunIteration(context.Background()))
	require.Equal(t, []time.Duration{250 * time.Millisecond}, f.swapchain.timeouts)
}

func TestCloseStopsFurtherIterations(t *testing.T) {
	f := newFixture(2)
	loop := newTestLoop(t, f)

	require.NoError(t, loop.RunIteration(context.Background()))
	calls := len(f.log.calls)

	loop.RequestClose()
	require.Equal(t, StateClosed, loop.State())

	err := loop.RunIteration(context.Background())
	require.True(t, errors.Is(err, ErrClosed))
	require.Len(t, f.log.calls, calls)
}

func TestRunDoesNotRenderAfterCloseInSameBatch(t *testing.T) {
	f := newFixture(2)
	loop := newTestLoop(t, f)

	host := &fakeHost{
		closeAt: 10,
		extra: map[int][]Event{
			1: {{Kind: EventCloseRequested}, {Kind: EventRedrawRequested}},
		},
	}

	require.NoError(t, loop.Run(context.Background(), host))
	require.Empty(t, f.log.calls)
	require.Equal(t, 0, host.redraws)
	require.Equal(t, 1, host.pumps)
}

func TestRunPresentsOneFramePerRedraw(t *testing.T) {
	f := newFixture(2)
	loop := newTestLoop(t, f)

	// Pump 1 only requests a redraw; pumps 2 to 6 each deliver one; pump 7 closes.
	host := &fakeHost{closeAt: 7}
	require.NoError(t, loop.Run(context.Background(), host))

	require.Equal(t, []string{
		"acquire 0", "submit 0 after acquired-0", "present 0 after rendered-0",
		"acquire 1", "submit 1 after acquired-1", "present 1 after rendered-1",
		"acquire 0", "submit 0 after acquired-2", "present 0 after rendered-2",
		"acquire 1", "submit 1 after acquired-3", "present 1 after rendered-3",
		"acquire 0", "submit 0 after acquired-4", "present 0 after rendered-4",
	}, f.log.only("acquire", "submit", "present"))

	require.Len(t, f.allocator.seqs, 5)
	for i, seq := range f.allocator.seqs {
		require.Equal(t, i%2, seq.ImageIndex)
		require.Equal(t, RecordFrame(NewScene(800, 600), i%2), seq)
	}

	assert.Equal(t, uint64(5), loop.Stats().Presented)
	assert.Equal(t, StateClosed, loop.State())
}

func TestRunSwallowsFrameErrors(t *testing.T) {
	f := newFixture(2)
	f.swapchain.failOn = map[int]error{0: ErrOutOfDate, 1: ErrOutOfDate}
	loop := newTestLoop(t, f)

	host := &fakeHost{closeAt: 6}
	require.NoError(t, loop.Run(context.Background(), host))

	stats := loop.Stats()
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, uint64(2), stats.Presented)
}

func TestRunStopsWhenContextIsCancelled(t *testing.T) {
	f := newFixture(2)
	loop := newTestLoop(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := loop.Run(ctx, &fakeHost{closeAt: 100})
	require.True(t, errors.Is(err, context.Canceled))
	require.Empty(t, f.log.calls)
}

func TestDrainReleasesLastFrame(t *testing.T) {
	f := newFixture(2)
	loop := newTestLoop(t, f)

	require.NoError(t, loop.Drain(context.Background()))

	require.NoError(t, loop.RunIteration(context.Background()))
	loop.RequestClose()
	require.NoError(t, loop.Drain(context.Background()))

	assert.Equal(t, 1, f.queue.completions[0].released)
	require.NoError(t, loop.Drain(context.Background()))
	assert.Equal(t, 1, f.queue.completions[0].released)
}

func TestRunReportsStatsPeriodically(t *testing.T) {
	var out bytes.Buffer
	f := newFixture(2)
	frameCtx, err := f.context()
	require.NoError(t, err)

	loop := New(frameCtx, Config{
		ReportInterval: time.Nanosecond,
		Logger:         log.New(&out, "", 0),
	})
	require.NoError(t, loop.Run(context.Background(), &fakeHost{closeAt: 4}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	prefix := fmt.Sprintf("[frameloop %s] ", loop.ID().String()[:8])
	for _, line := range lines {
		require.True(t, strings.HasPrefix(line, prefix), line)
	}

	reports := 0
	for _, line := range lines[1 : len(lines)-1] {
		if strings.Contains(line, "presented,") {
			reports++
		}
	}
	assert.GreaterOrEqual(t, reports, 1)
	assert.Contains(t, lines[len(lines)-1], "stopped: 2 presented, 0 dropped")
}

func TestRunWithoutReportIntervalOnlyLogsStartAndStop(t *testing.T) {
	var out bytes.Buffer
	f := newFixture(2)
	frameCtx, err := f.context()
	require.NoError(t, err)

	loop := New(frameCtx, Config{Logger: log.New(&out, "", 0)})
	require.NoError(t, loop.Run(context.Background(), &fakeHost{closeAt: 4}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "started with 2 swapchain images")
	assert.Contains(t, lines[1], "stopped: 2 presented")
}

func TestLoopsHaveDistinctIDs(t *testing.T) {
	f := newFixture(2)
	require.NotEqual(t, newTestLoop(t, f).ID(), newTestLoop(t, f).ID())
}
