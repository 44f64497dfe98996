package pipeline

import (
	"io"
	"time"
)

// readResult is one asynchronous read outcome.
type readResult struct {
	n   int
	err error
}

// timeoutReader wraps a body reader with a per-read deadline independent of
// the request's own context deadline, so a single slow chunk doesn't have to
// blow the whole attempt's budget (§4.4 "Subsequent-chunk timeout"). A read
// goroutine is spawned only when no earlier read is outstanding; on timeout
// that goroutine keeps running and its result is returned by the next
// ReadTimeout call, since http.Response.Body doesn't support cancelling an
// in-flight Read independently of the request context.
type timeoutReader struct {
	r       io.Reader
	results chan readResult
	buf     []byte
	pending bool
}

func newTimeoutReader(r io.Reader) *timeoutReader {
	return &timeoutReader{r: r, results: make(chan readResult, 1)}
}

// ReadTimeout reads into buf, returning (n, err, timedOut). On timedOut no
// bytes are returned yet; the read stays outstanding, and the next call
// returns its result, with the bytes in the buffer passed to the call that
// started it.
func (t *timeoutReader) ReadTimeout(buf []byte, timeout time.Duration) (int, error, bool) {
	if !t.pending {
		t.buf = buf
		t.pending = true
		go func(b []byte) {
			n, err := t.r.Read(b)
			t.results <- readResult{n: n, err: err}
		}(buf)
	}

	select {
	case res := <-t.results:
		t.pending = false
		return res.n, res.err, false
	case <-time.After(timeout):
		return 0, nil, true
	}
}
