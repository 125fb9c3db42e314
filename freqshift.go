package sdr

import "math"

// freqShiftLUTSize is the length of the oscillator look-up table.
const freqShiftLUTSize = 128

// FreqShiftBase implements a performant frequency shift on integer signals:
// the input is multiplied by exp(-2i*pi*F/Fs*n), realised as a numerically
// controlled oscillator. A look-up table of 128 complex values scaled by
// 2^shift is indexed by an integer phase accumulator that advances by
// 128*256*|F|/Fs per sample; the extra factor 256 carries the sub-bin
// fraction, the table index is the accumulator divided by 256. For negative
// shifts the index is mirrored. Nodes embed this base and call
// ApplyFrequencyShift per sample.
type FreqShiftBase[T Scalar] struct {
	freqShift  float64
	sampleRate float64
	lutInc     int
	lutCount   int
	lut        [freqShiftLUTSize]Complex[int32]
	shift      uint
}

// InitFreqShift initialises the oscillator for the given shift frequency and
// sample rate. A rate of 0 leaves the oscillator bypassed until
// SetFreqShiftSampleRate is called.
func (f *FreqShiftBase[T]) InitFreqShift(freq, sampleRate float64) {
	f.shift = TraitsOf[T]().Shift
	scale := float64(int64(1) << f.shift)
	for i := 0; i < freqShiftLUTSize; i++ {
		phi := -2 * math.Pi * float64(i) / freqShiftLUTSize
		f.lut[i] = Complex[int32]{
			Re: int32(scale * math.Cos(phi)),
			Im: int32(scale * math.Sin(phi)),
		}
	}
	f.freqShift = freq
	f.sampleRate = sampleRate
	f.updateLUTIncrement()
}

// FreqShiftSampleRate returns the configured sample rate.
func (f *FreqShiftBase[T]) FreqShiftSampleRate() float64 { return f.sampleRate }

// SetFreqShiftSampleRate resets the sample rate and recomputes the phase
// increment.
func (f *FreqShiftBase[T]) SetFreqShiftSampleRate(rate float64) {
	f.sampleRate = rate
	f.updateLUTIncrement()
}

// FrequencyShift returns the configured shift frequency.
func (f *FreqShiftBase[T]) FrequencyShift() float64 { return f.freqShift }

// SetFrequencyShift resets the shift frequency and recomputes the phase
// increment.
func (f *FreqShiftBase[T]) SetFrequencyShift(freq float64) {
	f.freqShift = freq
	f.updateLUTIncrement()
}

// ApplyFrequencyShift multiplies one super-scalar sample with the current
// oscillator value and advances the phase accumulator. With a zero phase
// increment the multiplier is bypassed entirely.
func (f *FreqShiftBase[T]) ApplyFrequencyShift(value Complex[int32]) Complex[int32] {
	if f.lutInc == 0 {
		return value
	}
	idx := f.lutCount >> 8
	if f.freqShift < 0 {
		idx = freqShiftLUTSize - idx - 1
	}
	w := f.lut[idx]
	value = Complex[int32]{
		Re: (w.Re*value.Re - w.Im*value.Im) >> f.shift,
		Im: (w.Re*value.Im + w.Im*value.Re) >> f.shift,
	}
	f.lutCount += f.lutInc
	for f.lutCount >= freqShiftLUTSize<<8 {
		f.lutCount -= freqShiftLUTSize << 8
	}
	return value
}

func (f *FreqShiftBase[T]) updateLUTIncrement() {
	if f.sampleRate == 0 {
		f.lutInc = 0
		f.lutCount = 0
		return
	}
	f.lutInc = int(freqShiftLUTSize * 256 * math.Abs(f.freqShift) / f.sampleRate)
	f.lutCount = 0
}
