package services

import (
	"context"
	"io"
)

type pipeBody struct {
	*io.PipeReader
	cancel context.CancelFunc
}

// pipeStream runs produce in its own goroutine and returns what it writes as a response body. The
// body ends with io.EOF when produce returns nil, or with its error otherwise. Closing the body
// cancels the context handed to produce.
func pipeStream(ctx context.Context, produce func(ctx context.Context, w io.Writer) error) io.ReadCloser {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()
		pw.CloseWithError(produce(ctx, pw))
	}()

	return pipeBody{PipeReader: pr, cancel: cancel}
}

func (b pipeBody) Close() error {
	b.cancel()
	return b.PipeReader.Close()
}

const errLoggerKey = "err"
