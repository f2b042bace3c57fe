package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/timeline2video/internal/timeline"
)

func schedule() timeline.AudioSchedule {
	return timeline.AudioSchedule{
		Music: []timeline.MusicTrack{
			{File: "loop.mp3", Start: 1, End: 9, Loop: true, Volume: 0.8, Duration: 3},
			{File: "intro.mp3", Start: 0, End: 5, Volume: 1, Duration: 2},
		},
		Sfx: []timeline.SfxEvent{
			{File: "whoosh.wav", Time: 0, Volume: 1, Duration: 0.5},
			{File: "pop.wav", Time: 2.5, Volume: 0.5},
			{File: "ding.wav", Time: 9.99, Volume: 1},
			{File: "late.wav", Time: 10, Volume: 1},
		},
	}
}

func TestTrackOffset(t *testing.T) {
	loop := timeline.MusicTrack{Start: 1, End: 9, Loop: true, Duration: 3}
	off, ended := TrackOffset(loop, 5.5)
	assert.InDelta(t, 1.5, off, 1e-12)
	assert.False(t, ended)

	once := timeline.MusicTrack{Start: 0, End: 5, Duration: 2}
	off, ended = TrackOffset(once, 1.25)
	assert.Equal(t, 1.25, off)
	assert.False(t, ended)
	off, ended = TrackOffset(once, 4)
	assert.Equal(t, 2.0, off)
	assert.True(t, ended)

	unknown := timeline.MusicTrack{Start: 2, End: 5}
	off, _ = TrackOffset(unknown, 4.5)
	assert.Equal(t, 2.5, off)
}

func TestActiveTracks(t *testing.T) {
	s := schedule()

	active := ActiveTracks(s, 0.5)
	require.Len(t, active, 1)
	assert.Equal(t, 1, active[0].Index)

	active = ActiveTracks(s, 1)
	require.Len(t, active, 2)
	assert.Equal(t, 0, active[0].Index)
	assert.Equal(t, 0.0, active[0].Offset)

	assert.Empty(t, ActiveTracks(s, 9))
}

func TestResolveInstantEdgeTriggered(t *testing.T) {
	c := NewCollector(schedule())

	first := c.ResolveInstant(0)
	require.Len(t, first.Fired, 1)
	assert.Equal(t, "whoosh.wav", first.Fired[0].Event.File)

	again := c.ResolveInstant(0)
	assert.Empty(t, again.Fired)
	assert.Len(t, again.Tracks, 1)

	assert.Empty(t, c.ResolveInstant(2.4).Fired)

	crossed := c.ResolveInstant(2.6)
	require.Len(t, crossed.Fired, 1)
	assert.Equal(t, 1, crossed.Fired[0].Index)

	assert.Empty(t, c.ResolveInstant(2.6).Fired)
}

func TestResolveInstantExactHitAfterPrime(t *testing.T) {
	c := NewCollector(schedule())
	c.ResolveInstant(2)
	fired := c.ResolveInstant(2.5).Fired
	require.Len(t, fired, 1)
	assert.Equal(t, "pop.wav", fired[0].Event.File)
	assert.Empty(t, c.ResolveInstant(2.5).Fired)
}

func TestResolveInstantSeekBackwards(t *testing.T) {
	c := NewCollector(schedule())
	c.ResolveInstant(5)

	// Seeking back does not replay everything in between.
	assert.Empty(t, c.ResolveInstant(1).Fired)
	assert.Len(t, c.ResolveInstant(3).Fired, 1)
}

func TestResolveRangeCompleteness(t *testing.T) {
	entries := ResolveRange(schedule(), 0, 10)

	var sfx []string
	for _, e := range entries {
		if e.Kind == Sfx {
			sfx = append(sfx, e.File)
		}
	}
	assert.Equal(t, []string{"whoosh.wav", "pop.wav", "ding.wav"}, sfx)
}

func TestResolveRangeOrderAndOffsets(t *testing.T) {
	entries := ResolveRange(schedule(), 0, 10)
	require.Len(t, entries, 5)

	// Onset 0: intro (music) before whoosh (sfx).
	assert.Equal(t, "intro.mp3", entries[0].File)
	assert.Equal(t, 2.0, entries[0].Length) // clamped to file length
	assert.Equal(t, "whoosh.wav", entries[1].File)
	assert.Equal(t, 0.5, entries[1].Length)
	assert.Equal(t, "loop.mp3", entries[2].File)
	assert.Equal(t, 1.0, entries[2].Onset)
	assert.Equal(t, 8.0, entries[2].Length)
	assert.True(t, entries[2].Loop)
	assert.Equal(t, "pop.wav", entries[3].File)
	assert.InDelta(t, 7.5, entries[3].Length, 1e-12)
	assert.Equal(t, "ding.wav", entries[4].File)

	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].Onset, entries[i].Onset)
	}
}

func TestResolveRangeSubrange(t *testing.T) {
	entries := ResolveRange(schedule(), 4, 8)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "loop.mp3", e.File)
	assert.Equal(t, 0.0, e.Onset)
	assert.Equal(t, 0.0, e.Offset) // 3s into a 3s loop wraps to 0
	assert.Equal(t, 4.0, e.Length)
}

func TestResolveRangeIsPure(t *testing.T) {
	s := schedule()
	a := ResolveRange(s, 0.5, 7)
	b := ResolveRange(s, 0.5, 7)
	assert.Equal(t, a, b)
	assert.Nil(t, ResolveRange(s, 5, 5))
}
