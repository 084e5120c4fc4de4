package media

import (
	"math"
	"sync/atomic"
)

// frameLevel estimates loudness from encoded frame sizes. Opus spends more
// bytes on louder, busier audio, which is enough for a level meter.
type frameLevel struct {
	bits   atomic.Uint64
	closed atomic.Bool
}

// loudFrameBytes is the 20 ms frame size treated as full scale.
const loudFrameBytes = 160

func (l *frameLevel) observe(frame []byte) {
	if l.closed.Load() {
		return
	}
	v := math.Min(1, float64(len(frame))/loudFrameBytes)
	prev := math.Float64frombits(l.bits.Load())
	l.bits.Store(math.Float64bits(prev*0.6 + v*0.4))
}

func (l *frameLevel) Level() float64 {
	if l.closed.Load() {
		return 0
	}
	return math.Float64frombits(l.bits.Load())
}

func (l *frameLevel) Close() {
	l.closed.Store(true)
	l.bits.Store(0)
}
