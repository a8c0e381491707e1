package stream

import (
	"io"
)

// WriterSink appends text to an io.Writer, such as a terminal.
type WriterSink struct {
	w io.Writer
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

// Append implements Sink.
func (s *WriterSink) Append(text string) error {
	_, err := io.WriteString(s.w, text)
	return err
}
