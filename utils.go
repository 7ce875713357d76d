package pe

import "math"

type EntropyCalculator struct {
	size        int
	frequencies [256]uint64
}

func (e *EntropyCalculator) Write(p []byte) (n int, err error) {
	e.size += len(p)
	for _, v := range p {
		e.frequencies[v]++
	}
	return len(p), err
}

func (e *EntropyCalculator) Sum() (entropy float64) {
	if e.size == 0 {
		return
	}

	for _, p := range e.frequencies {
		if p > 0 {
			freq := float64(p) / float64(e.size)
			entropy += freq * math.Log2(freq)
		}
	}
	return -entropy
}

// GetResourceTypeName returns the RT_ name of a numeric type or the type
// string itself.
func GetResourceTypeName(resourceType ResourceKey) string {
	if resourceType.IsName() {
		return resourceType.Name()
	}
	return ResourceType(resourceType.ID()).String()
}
