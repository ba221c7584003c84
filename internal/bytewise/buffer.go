package bytewise

// secretBuffer holds the recovered bytes behind a seed of known filler, so
// the window in front of the next unknown byte is always full.
type secretBuffer struct {
	buffer       []byte
	seed         int
	windowLength int
}

func newSecretBuffer(windowLength int, filler byte, capacity int) *secretBuffer {
	buffer := make([]byte, windowLength, windowLength+capacity)
	for i := range buffer {
		buffer[i] = filler
	}

	return &secretBuffer{
		buffer:       buffer,
		seed:         windowLength,
		windowLength: windowLength,
	}
}

func (sb *secretBuffer) Append(b byte) {
	sb.buffer = append(sb.buffer, b)
}

// Window returns a copy of the last windowLength bytes.
func (sb *secretBuffer) Window() []byte {
	window := make([]byte, sb.windowLength)
	copy(window, sb.buffer[len(sb.buffer)-sb.windowLength:])
	return window
}

// Recovered returns the bytes appended so far, without the seed.
func (sb *secretBuffer) Recovered() []byte {
	return sb.buffer[sb.seed:]
}

func (sb *secretBuffer) Len() int {
	return len(sb.buffer) - sb.seed
}
