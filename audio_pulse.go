// audio_pulse.go - Square-wave speaker driven by CTC pulses

package main

import "sync"

const (
	pulseSampleRate = 44100
	pulseRingSize   = 8192
	pulseAmplitude  = 0.25
)

// PulseSpeaker converts level toggles stamped with CPU cycles into audio
// samples. The emulation goroutine produces, the audio backend consumes.
type PulseSpeaker struct {
	mu sync.Mutex

	cyclesPerSample float64
	pending         float64
	lastCycle       uint64
	high            bool

	ring  [pulseRingSize]float32
	head  int
	tail  int
	count int
}

func NewPulseSpeaker(clockHz, sampleRate int) *PulseSpeaker {
	return &PulseSpeaker{
		cyclesPerSample: float64(clockHz) / float64(sampleRate),
	}
}

// Toggle flips the output level at the given cycle.
func (s *PulseSpeaker) Toggle(cycle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceLocked(cycle)
	s.high = !s.high
}

// Advance renders samples up to cycle at the current level.
func (s *PulseSpeaker) Advance(cycle uint64) {
	s.mu.Lock()
	s.advanceLocked(cycle)
	s.mu.Unlock()
}

func (s *PulseSpeaker) advanceLocked(cycle uint64) {
	if cycle <= s.lastCycle {
		return
	}
	s.pending += float64(cycle - s.lastCycle)
	s.lastCycle = cycle

	sample := float32(-pulseAmplitude)
	if s.high {
		sample = pulseAmplitude
	}
	for s.pending >= s.cyclesPerSample {
		s.pending -= s.cyclesPerSample
		if s.count == pulseRingSize {
			// consumer fell behind, drop the oldest
			s.head = (s.head + 1) % pulseRingSize
			s.count--
		}
		s.ring[s.tail] = sample
		s.tail = (s.tail + 1) % pulseRingSize
		s.count++
	}
}

// ReadSampleFromRing returns the next sample, or silence on underrun.
func (s *PulseSpeaker) ReadSampleFromRing() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return 0
	}
	v := s.ring[s.head]
	s.head = (s.head + 1) % pulseRingSize
	s.count--
	return v
}

// Buffered reports how many samples are waiting.
func (s *PulseSpeaker) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
