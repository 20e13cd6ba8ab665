package main

import "testing"

func TestPulseSpeakerRendersLevels(t *testing.T) {
	// 100 cycles per sample keeps the arithmetic exact
	s := NewPulseSpeaker(4410000, pulseSampleRate)

	s.Advance(1000)
	if n := s.Buffered(); n != 10 {
		t.Fatalf("Buffered = %d after 1000 cycles, want 10", n)
	}
	s.Toggle(1500)
	s.Advance(2000)
	if n := s.Buffered(); n != 20 {
		t.Fatalf("Buffered = %d, want 20", n)
	}

	for i := 0; i < 15; i++ {
		if v := s.ReadSampleFromRing(); v != -pulseAmplitude {
			t.Fatalf("sample %d = %v, want low", i, v)
		}
	}
	for i := 15; i < 20; i++ {
		if v := s.ReadSampleFromRing(); v != pulseAmplitude {
			t.Fatalf("sample %d = %v, want high", i, v)
		}
	}
	if v := s.ReadSampleFromRing(); v != 0 {
		t.Fatalf("underrun sample = %v, want silence", v)
	}
}

func TestPulseSpeakerIgnoresTimeGoingBackwards(t *testing.T) {
	s := NewPulseSpeaker(4410000, pulseSampleRate)
	s.Advance(500)
	s.Advance(100)
	if n := s.Buffered(); n != 5 {
		t.Fatalf("Buffered = %d, want 5", n)
	}
}

func TestPulseSpeakerDropsOldestOnOverrun(t *testing.T) {
	s := NewPulseSpeaker(4410000, pulseSampleRate)
	s.Advance(100 * pulseRingSize)
	s.Toggle(100 * pulseRingSize)
	s.Advance(100 * (pulseRingSize + 10))

	if n := s.Buffered(); n != pulseRingSize {
		t.Fatalf("Buffered = %d, want %d", n, pulseRingSize)
	}
	// the newest samples are the high ones at the end of the ring
	var last float32
	for s.Buffered() > 0 {
		last = s.ReadSampleFromRing()
	}
	if last != pulseAmplitude {
		t.Fatalf("last sample = %v, want high", last)
	}
}
