// z80_ctc.go - Z80 CTC counter/timer circuit

package main

import "log/slog"

const ctcNumChannels = 4

// CTC channel control word bits.
const (
	ctcModeInterrupt       = 0x80 // interrupt enabled
	ctcModeCounter         = 0x40 // counter mode (timer mode when clear)
	ctcModePrescaler256    = 0x20 // prescaler 256 (16 when clear)
	ctcModeEdgeRising      = 0x10
	ctcModeTriggerPulse    = 0x08 // timer waits for CLK/TRG (auto start when clear)
	ctcModeConstantFollows = 0x04
	ctcModeReset           = 0x02
	ctcModeControl         = 0x01 // control word (vector when clear)
)

type CTCChannel struct {
	Mode byte
	// Constant is the reload value, 1-256.
	Constant          int
	DownCounter       int
	Timer             int
	TimerEnabled      bool
	WaitingForTrigger bool
	Node              InterruptNode
}

func (ch *CTCChannel) prescaler() int {
	if ch.Mode&ctcModePrescaler256 != 0 {
		return 256
	}
	return 16
}

func (ch *CTCChannel) period() int {
	return ch.prescaler() * ch.Constant
}

func (ch *CTCChannel) reset() {
	ch.Mode = 0
	ch.Constant = 0x100
	ch.DownCounter = 0x100
	ch.Timer = 0
	ch.TimerEnabled = false
	ch.WaitingForTrigger = false
}

// Z80CTC is the four-channel counter/timer. Timeouts call OnPulse and,
// with the channel's interrupt bit set, request an interrupt on the
// channel's daisy-chain node with vector base | channel<<1.
type Z80CTC struct {
	Channels [ctcNumChannels]CTCChannel
	// Vector is the chip-wide interrupt vector base.
	Vector byte

	OnPulse func(channel int)
	logger  *slog.Logger
}

func NewZ80CTC(onPulse func(channel int)) *Z80CTC {
	ctc := &Z80CTC{
		OnPulse: onPulse,
		logger:  slog.Default(),
	}
	for i := range ctc.Channels {
		ctc.Channels[i].Node.Name = "CTC" + string(rune('0'+i))
	}
	ctc.Reset()
	return ctc
}

func (ctc *Z80CTC) SetLogger(logger *slog.Logger) {
	if logger != nil {
		ctc.logger = logger
	}
}

// AttachTo puts the four channels on the chain, channel 0 highest.
func (ctc *Z80CTC) AttachTo(chain *DaisyChain) {
	for i := range ctc.Channels {
		chain.Attach(&ctc.Channels[i].Node)
	}
}

func (ctc *Z80CTC) Reset() {
	for i := range ctc.Channels {
		ctc.Channels[i].reset()
		ctc.Channels[i].Node.Reset()
		if c := ctc.Channels[i].Node.chain; c != nil {
			c.update()
		}
	}
	ctc.Vector = 0
}

// ChannelVector is the vector channel ch presents at acknowledge.
func (ctc *Z80CTC) ChannelVector(ch int) byte {
	return ctc.Vector | byte(ch&0x03)<<1
}

// Write handles a CPU write to channel ch.
func (ctc *Z80CTC) Write(ch int, value byte) {
	ch &= 0x03
	chn := &ctc.Channels[ch]
	switch {
	case chn.Mode&ctcModeConstantFollows != 0:
		chn.Constant = int(value)
		if chn.Constant == 0 {
			chn.Constant = 0x100
		}
		chn.DownCounter = chn.Constant
		chn.Mode &^= ctcModeConstantFollows | ctcModeReset
		if chn.Mode&ctcModeCounter == 0 {
			if chn.Mode&ctcModeTriggerPulse == 0 {
				ctc.enableTimer(ch)
			} else {
				chn.WaitingForTrigger = true
			}
		}
		ctc.logger.Debug("ctc: time constant", "channel", ch, "constant", chn.Constant)
	case value&ctcModeControl != 0:
		chn.Mode = value
		if value&ctcModeReset != 0 {
			chn.Constant = 0x100
			chn.TimerEnabled = false
		}
		ctc.logger.Debug("ctc: control word", "channel", ch, "mode", value)
	case ch == 0:
		ctc.Vector = value & 0xF8
	}
}

// Read returns the live down-counter of channel ch. In timer mode that is
// the number of prescaler steps left in the current period.
func (ctc *Z80CTC) Read(ch int) byte {
	chn := &ctc.Channels[ch&0x03]
	if chn.Mode&ctcModeCounter == 0 && chn.TimerEnabled {
		return byte((chn.Timer + chn.prescaler() - 1) / chn.prescaler())
	}
	return byte(chn.DownCounter)
}

// Trigger is one CLK/TRG pulse on channel ch. It starts an armed timer or
// counts down a counter-mode channel.
func (ctc *Z80CTC) Trigger(ch int) {
	ch &= 0x03
	chn := &ctc.Channels[ch]
	if chn.Mode&ctcModeCounter == 0 && chn.WaitingForTrigger {
		ctc.enableTimer(ch)
	}
	chn.WaitingForTrigger = false

	if chn.Mode&ctcModeCounter != 0 && chn.Mode&ctcModeConstantFollows == 0 {
		chn.DownCounter--
		if chn.DownCounter <= 0 {
			ctc.timeout(ch)
		}
	}
}

// Update advances every running timer by ticks CPU cycles, firing once per
// elapsed period.
func (ctc *Z80CTC) Update(ticks int) {
	for i := range ctc.Channels {
		chn := &ctc.Channels[i]
		if !chn.TimerEnabled {
			continue
		}
		chn.Timer -= ticks
		for chn.Timer <= 0 {
			chn.Timer += chn.period()
			ctc.timeout(i)
		}
	}
}

func (ctc *Z80CTC) enableTimer(ch int) {
	chn := &ctc.Channels[ch]
	chn.Timer = chn.period()
	chn.TimerEnabled = true
}

func (ctc *Z80CTC) timeout(ch int) {
	chn := &ctc.Channels[ch]
	chn.DownCounter = chn.Constant
	if chn.Mode&ctcModeInterrupt != 0 {
		chn.Node.RequestInterrupt(ctc.ChannelVector(ch))
	}
	if ctc.OnPulse != nil {
		ctc.OnPulse(ch)
	}
}
