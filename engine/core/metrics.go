package core

const AVG_COUNT uint8 = 30

// FrameMetrics keeps a rolling average of frame times and the frame rate of
// the last full second.
type FrameMetrics struct {
	frameAVGCounter    uint8
	msTimes            [AVG_COUNT]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
	totalFrames        uint64
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{}
}

// Update records one frame that took frameElapsedTime seconds.
func (m *FrameMetrics) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	m.msTimes[m.frameAVGCounter] = frameMS
	if m.frameAVGCounter == AVG_COUNT-1 {
		sum := 0.0
		for _, t := range m.msTimes {
			sum += t
		}
		m.msAvg = sum / float64(AVG_COUNT)
	}
	m.frameAVGCounter = (m.frameAVGCounter + 1) % AVG_COUNT

	m.frames++
	m.totalFrames++
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}
}

func (m *FrameMetrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average frame time in milliseconds over the last AVG_COUNT frames.
func (m *FrameMetrics) FrameTime() float64 {
	return m.msAvg
}

func (m *FrameMetrics) Frames() uint64 {
	return m.totalFrames
}
