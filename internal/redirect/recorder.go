// internal/redirect/recorder.go
//
// Response recorder that defers the intercept decision to WriteHeader.
//
// Context
// -------
// The middleware may only act on the downstream handler's 404; every
// other status must stream through untouched.  The recorder therefore
// buffers nothing until the status is known: a non-404 WriteHeader
// switches to passthrough and later writes go straight to the client,
// while a 404 captures headers and body so the middleware can either
// discard them (redirect found) or replay them verbatim (no redirect).
package redirect

import (
	"bytes"
	"net/http"
)

// recorder wraps the real ResponseWriter for one request.
type recorder struct {
	rw http.ResponseWriter

	status      int
	intercepted bool
	wroteHeader bool
	body        bytes.Buffer
	header      http.Header
}

func newRecorder(rw http.ResponseWriter) *recorder {
	return &recorder{rw: rw, header: make(http.Header)}
}

// Header returns the staging header map.  It is copied to the real writer
// either on passthrough or on replay.
func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status

	if status == http.StatusNotFound {
		r.intercepted = true
		return
	}
	copyHeader(r.rw.Header(), r.header)
	r.rw.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		// Implicit 200, same contract as net/http.
		r.WriteHeader(http.StatusOK)
	}
	if r.intercepted {
		return r.body.Write(p)
	}
	return r.rw.Write(p)
}

// replay flushes the captured 404 to the client unchanged.
func (r *recorder) replay() {
	copyHeader(r.rw.Header(), r.header)
	status := r.status
	if status == 0 {
		status = http.StatusNotFound
	}
	r.rw.WriteHeader(status)
	_, _ = r.rw.Write(r.body.Bytes())
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		dst[k] = append(dst[k][:0:0], vv...)
	}
}
