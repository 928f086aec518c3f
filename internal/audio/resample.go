package audio

// Resample converts samples between rates by linear interpolation. There is
// no anti-alias filter; speech detection does not need one.
func Resample(pcm PCM, rate int) PCM {
	if rate <= 0 || pcm.Rate == rate || len(pcm.Samples) == 0 {
		return pcm
	}
	ratio := float64(pcm.Rate) / float64(rate)
	n := int(float64(len(pcm.Samples)) / ratio)
	out := make([]int16, 0, n)
	last := len(pcm.Samples) - 1
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx > last {
			break
		}
		if idx == last {
			out = append(out, pcm.Samples[idx])
			continue
		}
		frac := pos - float64(idx)
		a := float64(pcm.Samples[idx])
		b := float64(pcm.Samples[idx+1])
		out = append(out, int16(a+(b-a)*frac))
	}
	return PCM{Rate: rate, Samples: out}
}
