package audio

import "math"

// resampleInt16 converts the samples from one sample rate to another using linear interpolation.
func resampleInt16(input []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(input) == 0 {
		return input
	}

	outputLen := int(int64(len(input)) * int64(toRate) / int64(fromRate))
	output := make([]int16, outputLen)
	ratio := float64(fromRate) / float64(toRate)

	for i := range output {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(input)-1 {
			output[i] = input[len(input)-1]
			continue
		}

		frac := pos - float64(idx)
		output[i] = int16(math.Round(float64(input[idx])*(1-frac) + float64(input[idx+1])*frac))
	}

	return output
}

// calculateRMS16 calculates the root mean square of the audio buffer for int16 samples.
func calculateRMS16(buffer []int16) float64 {
	if len(buffer) == 0 {
		return 0
	}

	var sumSquares float64
	for _, sample := range buffer {
		val := float64(sample)
		sumSquares += val * val
	}

	return math.Sqrt(sumSquares / float64(len(buffer)))
}

func int16ToInt(input []int16) []int {
	output := make([]int, len(input))
	for i, value := range input {
		output[i] = int(value)
	}
	return output
}
