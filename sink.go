package speechgen

import "io"

// PlaybackSink receives raw PCM chunks for live playback as they arrive.
// Chunks are 16-bit little-endian mono samples at 24 kHz, ready for direct
// playback without further decoding.
//
// The Assembler acquires the sink for the duration of one generation and
// closes it on every exit path, exactly once. Write is called synchronously
// from the receive loop, one chunk at a time; implementations must bound how
// long a single Write can block (a deadline per chunk), so a slow consumer
// cannot stall message receipt indefinitely.
type PlaybackSink interface {
	// Write delivers one PCM chunk. An error aborts the generation.
	Write(pcm []byte) error

	// Close releases the sink. Called exactly once per generation.
	Close() error
}

// WriterSink adapts an io.Writer into a PlaybackSink. If the writer also
// implements io.Closer, Close is forwarded to it.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink wraps w as a PlaybackSink.
func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) Write(pcm []byte) error {
	_, err := s.w.Write(pcm)
	return err
}

func (s *WriterSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
