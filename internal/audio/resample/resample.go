// Package resample converts 16-bit PCM between sample rates. The
// transcription pipeline resamples 48000→16000 before handing audio to the
// STT engine; the TTS pipeline resamples an engine's native rate up to
// 48000 before enqueuing into the FIFO.
package resample

import "encoding/binary"

// PCM16 resamples little-endian signed 16-bit mono PCM from fromRate to
// toRate using linear interpolation. A no-op (returns a copy) when the
// rates already match.
func PCM16(data []byte, fromRate, toRate int) []byte {
	if fromRate == toRate || len(data) < 2 {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}

	in := bytesToInt16(data)
	out := resampleInt16(in, fromRate, toRate)
	return int16ToBytes(out)
}

func resampleInt16(in []int16, fromRate, toRate int) []int16 {
	if len(in) == 0 {
		return nil
	}
	ratio := float64(toRate) / float64(fromRate)
	outLen := int(float64(len(in)) * ratio)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]int16, outLen)
	step := float64(fromRate) / float64(toRate)
	for i := range out {
		srcPos := float64(i) * step
		idx := int(srcPos)
		frac := srcPos - float64(idx)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		a := float64(in[idx])
		b := float64(in[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}

func bytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i : 2*i+2]))
	}
	return out
}

func int16ToBytes(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[2*i:2*i+2], uint16(v))
	}
	return out
}
