package control

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analog-home/analog/internal/clock"
	"github.com/analog-home/analog/internal/config"
	"github.com/analog-home/analog/internal/store"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSurface(t *testing.T) (*Surface, *clock.FakeClock) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clk := clock.Fake(epoch)
	s := New(db, config.Default().Controls, clk, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Init(context.Background()))
	return s, clk
}

func ptr[T any](v T) *T { return &v }

func trajectory(a, b, c string) Trajectory {
	return Trajectory{Labels: [3]string{a, b, c}, Reason: "next turn"}
}

func TestFreshSnapshot(t *testing.T) {
	s, _ := newTestSurface(t)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Nil(t, snap.Artifact)
	assert.Empty(t, snap.Seeds)
	assert.Equal(t, [3]int{0, 0, 0}, snap.Controls.Votes)
	assert.Equal(t, 0.7, snap.Controls.Temperature)
	assert.Equal(t, [3]string{"emergence", "entropy", "self"}, snap.Controls.VoteLabels)
	assert.Nil(t, snap.Controls.TempSetAt)
}

func TestInitKeepsExistingState(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	_, err := s.CastVote(ctx, "x", 2, nil)
	require.NoError(t, err)
	require.NoError(t, s.Init(ctx))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, [3]int{0, 1, 0}, snap.Controls.Votes)
}

func TestParseSlot(t *testing.T) {
	for _, n := range []int{1, 2, 3} {
		slot, err := ParseSlot(n)
		require.NoError(t, err)
		assert.Equal(t, Slot(n), slot)
	}
	for _, n := range []int{0, 4, -1} {
		_, err := ParseSlot(n)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestCastVoteQuota(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.CastVote(ctx, "X", 1, nil)
		require.NoError(t, err, "vote %d", i+1)
	}
	_, err := s.CastVote(ctx, "X", 1, nil)
	assert.ErrorIs(t, err, ErrRateLimited)

	// Another identity is unaffected.
	snap, err := s.CastVote(ctx, "Y", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, [3]int{5, 0, 1}, snap.Controls.Votes)
}

func TestCastVoteInvalidInputWritesNothing(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	_, err := s.CastVote(ctx, "X", 4, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.CastVote(ctx, "X", 1, ptr(2.5))
	assert.ErrorIs(t, err, ErrValidation)

	limits, err := s.RemainingLimits(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 5, limits.VotesRemaining)
}

func TestCastVoteWithTemperature(t *testing.T) {
	s, clk := newTestSurface(t)
	ctx := context.Background()

	snap, err := s.CastVote(ctx, "X", 2, ptr(1.6))
	require.NoError(t, err)
	assert.Equal(t, [3]int{0, 1, 0}, snap.Controls.Votes)
	assert.Equal(t, 1.6, snap.Controls.Temperature)
	require.NotNil(t, snap.Controls.TempSetAt)
	assert.True(t, snap.Controls.TempSetAt.Equal(epoch))

	clk.Advance(90 * time.Minute)
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.15, snap.Controls.Temperature, 1e-9)

	clk.Advance(2 * time.Hour)
	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.7, snap.Controls.Temperature)
}

func TestSetTemperatureClampsToNeighborhood(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	snap, err := s.SetTemperature(ctx, "Y", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.2, snap.Controls.Temperature)

	_, err = s.SetTemperature(ctx, "Y", 0.9)
	assert.ErrorIs(t, err, ErrRateLimited)

	snap, err = s.SetTemperature(ctx, "Z", 0.0)
	require.NoError(t, err)
	assert.Equal(t, 0.7, snap.Controls.Temperature)
}

func TestSetTemperatureClampsToRange(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	_, err := s.CastVote(ctx, "v", 1, ptr(1.8))
	require.NoError(t, err)

	snap, err := s.SetTemperature(ctx, "Y", 2.0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, snap.Controls.Temperature)

	_, err = s.CastVote(ctx, "v", 1, ptr(0.2))
	require.NoError(t, err)
	snap, err = s.SetTemperature(ctx, "Z", 0.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.Controls.Temperature)
}

func TestSetTemperatureUsesEffectiveValue(t *testing.T) {
	s, clk := newTestSurface(t)
	ctx := context.Background()

	_, err := s.CastVote(ctx, "v", 1, ptr(1.9))
	require.NoError(t, err)
	clk.Advance(90 * time.Minute) // effective 1.3

	snap, err := s.SetTemperature(ctx, "Y", 0.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, snap.Controls.Temperature, 1e-9)
}

func TestSetTemperatureRejectsOutOfRange(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	_, err := s.SetTemperature(ctx, "Y", -0.1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.SetTemperature(ctx, "Y", 2.01)
	assert.ErrorIs(t, err, ErrValidation)

	// Rejected input did not consume the quota.
	_, err = s.SetTemperature(ctx, "Y", 1.0)
	assert.NoError(t, err)
}

func TestResetTrajectory(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.CastVote(ctx, "X", Slot(i%3+1), nil)
		require.NoError(t, err)
	}
	_, err := s.SetTemperature(ctx, "X", 1.0)
	require.NoError(t, err)
	_, err = s.CastVote(ctx, "X", 1, nil)
	require.ErrorIs(t, err, ErrRateLimited)

	snap, err := s.ResetTrajectory(ctx, Trajectory{
		Labels:             [3]string{" drift ", "anchor", "echo"},
		Reason:             "the crowd went quiet",
		DefaultTemperature: ptr(0.9),
	})
	require.NoError(t, err)
	assert.Equal(t, [3]int{0, 0, 0}, snap.Controls.Votes)
	assert.Equal(t, [3]string{"drift", "anchor", "echo"}, snap.Controls.VoteLabels)
	assert.Equal(t, "the crowd went quiet", snap.Controls.TrajectoryReason)
	assert.Equal(t, 0.9, snap.Controls.DefaultTemperature)

	// Quota restored for both actions.
	_, err = s.CastVote(ctx, "X", 1, nil)
	assert.NoError(t, err)
	_, err = s.SetTemperature(ctx, "X", 1.0)
	assert.NoError(t, err)
}

func TestResetTrajectoryKeepsDefaultWhenOmitted(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	_, err := s.ResetTrajectory(ctx, Trajectory{Labels: [3]string{"a", "b", "c"}, DefaultTemperature: ptr(1.4)})
	require.NoError(t, err)
	snap, err := s.ResetTrajectory(ctx, trajectory("d", "e", "f"))
	require.NoError(t, err)
	assert.Equal(t, 1.4, snap.Controls.DefaultTemperature)
	// Never explicitly set: effective temperature is the new default.
	assert.Equal(t, 1.4, snap.Controls.Temperature)
}

func TestResetTrajectoryValidation(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	cases := map[string]Trajectory{
		"empty label":      trajectory("a", "  ", "c"),
		"long label":       trajectory("a", strings.Repeat("x", 41), "c"),
		"long reason":      {Labels: [3]string{"a", "b", "c"}, Reason: strings.Repeat("r", 501)},
		"bad default temp": {Labels: [3]string{"a", "b", "c"}, DefaultTemperature: ptr(3.0)},
	}
	for name, tr := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.ResetTrajectory(ctx, tr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, [3]string{"emergence", "entropy", "self"}, snap.Controls.VoteLabels)

	// 40 characters exactly is fine.
	_, err = s.ResetTrajectory(ctx, trajectory(strings.Repeat("é", 40), "b", "c"))
	assert.NoError(t, err)
}

func TestResetIsNeverTorn(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Voters: every identity is fresh so the quota never interferes.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, err := s.CastVote(ctx, fmt.Sprintf("voter-%d", i), 1, nil)
			assert.NoError(t, err)
		}
	}()

	// Readers: every snapshot's labels must agree with each other, and
	// the generation-0 labels never appear once a reset is committed.
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap, err := s.Snapshot(ctx)
			if !assert.NoError(t, err) {
				return
			}
			l := snap.Controls.VoteLabels
			if l[0] != "emergence" {
				gen := strings.TrimPrefix(l[0], "a")
				assert.Equal(t, "b"+gen, l[1])
				assert.Equal(t, "c"+gen, l[2])
			}
		}
	}()

	for gen := 1; gen <= 20; gen++ {
		g := fmt.Sprint(gen)
		snap, err := s.ResetTrajectory(ctx, trajectory("a"+g, "b"+g, "c"+g))
		require.NoError(t, err)
		assert.Equal(t, [3]int{0, 0, 0}, snap.Controls.Votes)
	}
	close(stop)
	wg.Wait()
	readers.Wait()
}

func TestConcurrentVotesSameIdentity(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, limited := 0, 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CastVote(ctx, "X", 2, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrRateLimited):
				limited++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 7, limited)
	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, [3]int{0, 5, 0}, snap.Controls.Votes)
}

func TestSeedInbox(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 10; i++ {
		seed, _, err := s.SubmitSeed(ctx, fmt.Sprintf("idea %d", i))
		require.NoError(t, err)
		assert.Greater(t, seed.ID, lastID)
		lastID = seed.ID
	}
	_, _, err := s.SubmitSeed(ctx, "one too many")
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	removed, err := s.ConsumeSeeds(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	for i := 0; i < 3; i++ {
		seed, _, err := s.SubmitSeed(ctx, fmt.Sprintf("refill %d", i))
		require.NoError(t, err)
		assert.Greater(t, seed.ID, lastID)
		lastID = seed.ID
	}
	_, _, err = s.SubmitSeed(ctx, "full again")
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Seeds, 10)
	assert.Equal(t, "idea 3", snap.Seeds[0].Text)
	assert.Equal(t, "refill 2", snap.Seeds[9].Text)
}

func TestSubmitSeedNormalizesText(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	seed, snap, err := s.SubmitSeed(ctx, "   a quiet harbor  ")
	require.NoError(t, err)
	assert.Equal(t, "a quiet harbor", seed.Text)
	require.Len(t, snap.Seeds, 1)
	assert.Equal(t, seed.ID, snap.Seeds[0].ID)

	seed, _, err = s.SubmitSeed(ctx, strings.Repeat("ü", 250))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ü", 200), seed.Text)

	_, _, err = s.SubmitSeed(ctx, " \t\n ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConsumeSeedsPartial(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	_, _, err := s.SubmitSeed(ctx, "only one")
	require.NoError(t, err)

	removed, err := s.ConsumeSeeds(ctx, []int64{1, 99, 100})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = s.ConsumeSeeds(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestPublishConflict(t *testing.T) {
	s, clk := newTestSurface(t)
	ctx := context.Background()

	snap, err := s.Publish(ctx, store.Artifact{ID: 42, Title: "first light", Monologue: "I wake."})
	require.NoError(t, err)
	require.NotNil(t, snap.Artifact)
	assert.Equal(t, "post", snap.Artifact.ArtifactType)
	assert.True(t, snap.Artifact.CreatedAt.Equal(epoch))

	clk.Advance(time.Minute)
	_, err = s.Publish(ctx, store.Artifact{ID: 42, Title: "impostor"})
	assert.ErrorIs(t, err, ErrConflict)

	snap, err = s.Snapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Artifact)
	assert.Equal(t, int64(42), snap.Artifact.ID)
	assert.Equal(t, "first light", snap.Artifact.Title)

	n, err := s.CountArtifacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPublishValidation(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	_, err := s.Publish(ctx, store.Artifact{ID: 0})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.Publish(ctx, store.Artifact{ID: 1, Temperature: ptr(9.0)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListArtifacts(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	for id := int64(1); id <= 7; id++ {
		_, err := s.Publish(ctx, store.Artifact{ID: id})
		require.NoError(t, err)
	}

	page, err := s.ListArtifacts(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, int64(7), page[0].ID)

	page, err = s.ListArtifacts(ctx, 5, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(1), page[1].ID)

	_, err = s.ListArtifacts(ctx, 0, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.ListArtifacts(ctx, 51, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.ListArtifacts(ctx, 5, -1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRemainingLimits(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.CastVote(ctx, "X", 1, nil)
		require.NoError(t, err)
	}
	_, err := s.SetTemperature(ctx, "X", 1.0)
	require.NoError(t, err)

	l, err := s.RemainingLimits(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 3, l.VotesRemaining)
	assert.Equal(t, 0, l.TemperatureRemaining)

	l, err = s.RemainingLimits(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 5, l.VotesRemaining)
	assert.Equal(t, 1, l.TemperatureRemaining)
}

func TestTransientOnCancelledContext(t *testing.T) {
	s, _ := newTestSurface(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CastVote(ctx, "X", 1, nil)
	assert.ErrorIs(t, err, ErrTransient)

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [3]int{0, 0, 0}, snap.Controls.Votes)
}

func TestNudgeClampsNeighborhoodBeforeRange(t *testing.T) {
	s, _ := newTestSurface(t)

	assert.Equal(t, 1.2, s.nudge(0.7, 1.5))
	assert.Equal(t, 0.2, s.nudge(0.7, 0.0))
	assert.Equal(t, 1.0, s.nudge(0.7, 1.0))
	// A current value outside the range (e.g. a tightened config) is
	// pulled toward first and capped second.
	assert.Equal(t, 2.0, s.nudge(3.0, 1.0))
}
