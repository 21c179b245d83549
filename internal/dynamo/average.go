package dynamo

// MovingAverage is a ring buffer mean over the last Size samples.
type MovingAverage struct {
	samples []float64
	next    int
	filled  int
	sum     float64
}

func NewMovingAverage(size int) *MovingAverage {
	if size < 1 {
		size = 1
	}
	return &MovingAverage{samples: make([]float64, size)}
}

// Add pushes a sample and returns the updated average.
func (m *MovingAverage) Add(v float64) float64 {
	if m.filled == len(m.samples) {
		m.sum -= m.samples[m.next]
	} else {
		m.filled++
	}
	m.samples[m.next] = v
	m.sum += v
	m.next = (m.next + 1) % len(m.samples)
	return m.Average()
}

func (m *MovingAverage) Average() float64 {
	if m.filled == 0 {
		return 0
	}
	return m.sum / float64(m.filled)
}

// Last returns the most recent sample.
func (m *MovingAverage) Last() float64 {
	if m.filled == 0 {
		return 0
	}
	i := m.next - 1
	if i < 0 {
		i = len(m.samples) - 1
	}
	return m.samples[i]
}

func (m *MovingAverage) Count() int { return m.filled }

func (m *MovingAverage) Reset() {
	clear(m.samples)
	m.next, m.filled, m.sum = 0, 0, 0
}
