// Package audio resolves a timeline's audio schedule, either at one instant
// for live preview or over a time range for offline mixing.
package audio

import (
	"math"
	"sort"

	"github.com/ivlev/timeline2video/internal/timeline"
)

// ActiveTrack is a music track audible at an instant.
type ActiveTrack struct {
	Index int
	Track timeline.MusicTrack
	// Offset is the playback position inside the file.
	Offset float64
	// Ended is set for a non-looping track whose file has run out.
	Ended bool
}

// FiredSfx is a sound effect whose instant was crossed.
type FiredSfx struct {
	Index int
	Event timeline.SfxEvent
}

// Instant is what should be audible at Time during preview.
type Instant struct {
	Time   float64
	Tracks []ActiveTrack
	Fired  []FiredSfx
}

// TrackOffset returns the playback position of m at timeline time t, which
// must lie in [m.Start, m.End). Looping tracks wrap at the file duration;
// others clamp to it and report ended.
func TrackOffset(m timeline.MusicTrack, t float64) (offset float64, ended bool) {
	elapsed := t - m.Start
	if m.Duration <= 0 {
		return elapsed, false
	}
	if m.Loop {
		return math.Mod(elapsed, m.Duration), false
	}
	if elapsed >= m.Duration {
		return m.Duration, true
	}
	return elapsed, false
}

// ActiveTracks lists the music tracks with Start <= t < End in schedule
// order.
func ActiveTracks(s timeline.AudioSchedule, t float64) []ActiveTrack {
	var out []ActiveTrack
	for i, m := range s.Music {
		if t < m.Start || t >= m.End {
			continue
		}
		offset, ended := TrackOffset(m, t)
		out = append(out, ActiveTrack{Index: i, Track: m, Offset: offset, Ended: ended})
	}
	return out
}

// Collector resolves instants for the preview loop. Sound effects are edge
// triggered: an event fires once when the observed time crosses it, so
// asking about the same instant twice fires nothing the second time.
//
// A Collector is owned by one preview loop and is not safe for concurrent
// use.
type Collector struct {
	schedule timeline.AudioSchedule
	last     float64
	primed   bool
}

func NewCollector(schedule timeline.AudioSchedule) *Collector {
	return &Collector{schedule: schedule}
}

// ResolveInstant reports the active tracks at t and the sound effects
// crossed since the previous call, in (previous, t]. On the first call, or
// when t moves backwards, only events exactly at t fire.
func (c *Collector) ResolveInstant(t float64) Instant {
	inst := Instant{Time: t, Tracks: ActiveTracks(c.schedule, t)}

	seek := !c.primed || t < c.last
	for i, e := range c.schedule.Sfx {
		var fire bool
		if seek {
			fire = e.Time == t
		} else {
			fire = e.Time > c.last && e.Time <= t
		}
		if fire {
			inst.Fired = append(inst.Fired, FiredSfx{Index: i, Event: e})
		}
	}

	c.last = t
	c.primed = true
	return inst
}

// EntryKind distinguishes music from sound effects in a mix.
type EntryKind int

const (
	Music EntryKind = iota
	Sfx
)

func (k EntryKind) String() string {
	if k == Sfx {
		return "sfx"
	}
	return "music"
}

// Entry is one input of an offline mix.
type Entry struct {
	Kind  EntryKind
	Index int
	File  string
	// Onset is when the entry starts, relative to the range start.
	Onset float64
	// Offset is the seek position inside the file at Onset.
	Offset float64
	// Length is how long the entry plays within the range.
	Length float64
	Volume float64
	Loop   bool
	// FileDuration is the decoded file length, 0 when unknown.
	FileDuration float64
}

// ResolveRange lists every music overlap and every sound effect with a time
// in [start, end), ordered by onset and then by schedule order (music before
// sfx). It depends only on its arguments.
func ResolveRange(s timeline.AudioSchedule, start, end float64) []Entry {
	if !(end > start) {
		return nil
	}
	var out []Entry

	for i, m := range s.Music {
		from, to := math.Max(start, m.Start), math.Min(end, m.End)
		if from >= to {
			continue
		}
		offset := from - m.Start
		length := to - from
		if m.Duration > 0 {
			if m.Loop {
				offset = math.Mod(offset, m.Duration)
			} else {
				if offset >= m.Duration {
					continue
				}
				length = math.Min(length, m.Duration-offset)
			}
		}
		out = append(out, Entry{
			Kind:         Music,
			Index:        i,
			File:         m.File,
			Onset:        from - start,
			Offset:       offset,
			Length:       length,
			Volume:       m.Volume,
			Loop:         m.Loop,
			FileDuration: m.Duration,
		})
	}

	for i, e := range s.Sfx {
		if e.Time < start || e.Time >= end {
			continue
		}
		length := end - e.Time
		if e.Duration > 0 {
			length = math.Min(length, e.Duration)
		}
		out = append(out, Entry{
			Kind:         Sfx,
			Index:        i,
			File:         e.File,
			Onset:        e.Time - start,
			Length:       length,
			Volume:       e.Volume,
			FileDuration: e.Duration,
		})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Onset < out[b].Onset
	})
	return out
}
