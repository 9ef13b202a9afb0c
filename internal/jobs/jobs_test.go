package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/config"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/dto"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/storage"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/pkg/metrics"
)

// ── Runner ──

func TestRunner_EveryRunsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, zap.NewNop())

	var calls atomic.Int32
	r.Every(10*time.Millisecond, "test_tick", func(context.Context) error {
		calls.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	r.Wait()

	assert.GreaterOrEqual(t, testutil.ToFloat64(jobRuns.WithLabelValues("test_tick")), float64(3))
}

func TestRunner_CountsErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, zap.NewNop())

	before := testutil.ToFloat64(jobErrors.WithLabelValues("test_fail"))
	r.Every(time.Hour, "test_fail", func(context.Context) error {
		return errors.New("boom")
	})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(jobErrors.WithLabelValues("test_fail")) == before+1
	}, time.Second, 5*time.Millisecond)
	cancel()
	r.Wait()
}

// ── PeriodExpiry ──

type fakePeriods struct {
	sweeps atomic.Int32
	err    error
}

func (f *fakePeriods) GetCurrent(context.Context) (*dto.CurrentPeriodResponse, error) { return nil, nil }
func (f *fakePeriods) SetPeriod(context.Context, *dto.SetPeriodRequest, int64) (*dto.PeriodResponse, error) {
	return nil, nil
}
func (f *fakePeriods) Sweep(context.Context) (int64, error) {
	f.sweeps.Add(1)
	return 1, f.err
}
func (f *fakePeriods) List(context.Context) ([]dto.PeriodResponse, error) { return nil, nil }
func (f *fakePeriods) CurrentICS(context.Context) ([]byte, error)         { return nil, nil }

type fakeLocker struct {
	held     bool
	err      error
	unlocked bool
}

func (f *fakeLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.held {
		return "", nil
	}
	f.held = true
	return "token-1", nil
}

func (f *fakeLocker) Unlock(_ context.Context, _ string, token string) error {
	if token != "token-1" {
		return errors.New("wrong token")
	}
	f.held = false
	f.unlocked = true
	return nil
}

func TestPeriodExpiry_NoLocker(t *testing.T) {
	periods := &fakePeriods{}
	job := PeriodExpiry(periods, nil, time.Minute, zap.NewNop())

	require.NoError(t, job(context.Background()))
	assert.Equal(t, int32(1), periods.sweeps.Load())
}

func TestPeriodExpiry_AcquiresAndReleasesLock(t *testing.T) {
	periods := &fakePeriods{}
	locker := &fakeLocker{}
	job := PeriodExpiry(periods, locker, time.Minute, zap.NewNop())

	require.NoError(t, job(context.Background()))
	assert.Equal(t, int32(1), periods.sweeps.Load())
	assert.True(t, locker.unlocked)
	assert.False(t, locker.held)
}

func TestPeriodExpiry_SkipsWhenLockHeld(t *testing.T) {
	periods := &fakePeriods{}
	locker := &fakeLocker{held: true}
	job := PeriodExpiry(periods, locker, time.Minute, zap.NewNop())

	require.NoError(t, job(context.Background()))
	assert.Equal(t, int32(0), periods.sweeps.Load())
}

func TestPeriodExpiry_LockErrorStillSweeps(t *testing.T) {
	periods := &fakePeriods{}
	locker := &fakeLocker{err: errors.New("redis down")}
	job := PeriodExpiry(periods, locker, time.Minute, zap.NewNop())

	require.NoError(t, job(context.Background()))
	assert.Equal(t, int32(1), periods.sweeps.Load())
}

func TestPeriodExpiry_PropagatesSweepError(t *testing.T) {
	periods := &fakePeriods{err: errors.New("db down")}
	locker := &fakeLocker{}
	job := PeriodExpiry(periods, locker, time.Minute, zap.NewNop())

	assert.Error(t, job(context.Background()))
	assert.True(t, locker.unlocked, "失败时也要释放锁")
}

// ── OrphanReaper ──

type fakeRefs struct {
	names []string
	err   error
}

func (f *fakeRefs) ListFileNames(context.Context) ([]string, error) { return f.names, f.err }

// writeUpload 在上传目录写入文件并设置修改时间
func writeUpload(t *testing.T, dir, name string, mod time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o640))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func newTestReaper(t *testing.T, refs FileReferences, dryRun bool) (*OrphanReaper, string, time.Time) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.StorageConfig{UploadDir: dir, MaxFileSize: 1 << 20, OrphanGrace: time.Hour, OrphanDryRun: dryRun}
	store := storage.NewLocalFileStore(cfg, zap.NewNop())

	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	r := NewOrphanReaper(store, refs, cfg, zap.NewNop())
	r.now = func() time.Time { return now }
	return r, dir, now
}

func TestOrphanReaper_RemovesOnlyOldUnreferenced(t *testing.T) {
	refs := &fakeRefs{names: []string{"transcript_1_live.pdf"}}
	r, dir, now := newTestReaper(t, refs, false)

	old := now.Add(-2 * time.Hour)
	writeUpload(t, dir, "transcript_1_live.pdf", old)
	writeUpload(t, dir, "transcript_2_orphan.pdf", old)
	writeUpload(t, dir, "english_certificate_3_fresh.pdf", now.Add(-10*time.Minute))

	before := testutil.ToFloat64(metrics.OrphanFilesRemovedTotal)
	removed, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"transcript_2_orphan.pdf"}, removed)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrphanFilesRemovedTotal))

	left, _ := os.ReadDir(dir)
	names := make([]string, 0, len(left))
	for _, e := range left {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"english_certificate_3_fresh.pdf", "transcript_1_live.pdf"}, names)
}

func TestOrphanReaper_DryRunKeepsFiles(t *testing.T) {
	r, dir, now := newTestReaper(t, &fakeRefs{}, true)
	writeUpload(t, dir, "other_certificate_4_x.pdf", now.Add(-3*time.Hour))

	would, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"other_certificate_4_x.pdf"}, would)

	_, statErr := os.Stat(filepath.Join(dir, "other_certificate_4_x.pdf"))
	assert.NoError(t, statErr)
}

func TestOrphanReaper_ReferenceErrorAbortsBeforeDelete(t *testing.T) {
	r, dir, now := newTestReaper(t, &fakeRefs{err: errors.New("db down")}, false)
	writeUpload(t, dir, "transcript_5_y.pdf", now.Add(-3*time.Hour))

	_, err := r.Run(context.Background())
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "transcript_5_y.pdf"))
	assert.NoError(t, statErr, "无法确认引用关系时不能删除任何文件")
}

func TestOrphanReaper_ScheduleRejectsBadSpec(t *testing.T) {
	r, _, _ := newTestReaper(t, &fakeRefs{}, false)

	_, err := r.Schedule("not a cron spec")
	assert.Error(t, err)

	c, err := r.Schedule("@every 1h")
	require.NoError(t, err)
	c.Stop()
}
