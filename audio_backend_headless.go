//go:build headless

package main

// SampleSource is anything that can be drained one mono sample at a time.
type SampleSource interface {
	ReadSampleFromRing() float32
}

type OtoPlayer struct {
	source SampleSource
}

func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	return &OtoPlayer{}, nil
}

func (op *OtoPlayer) SetupPlayer(src SampleSource) {
	op.source = src
}

func (op *OtoPlayer) Read(p []byte) (n int, err error) {
	return len(p), nil
}

func (op *OtoPlayer) Start() {}

func (op *OtoPlayer) Close() {}
