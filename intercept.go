package formlogin

import "net/http"

// interceptWriter holds back the wrapped handler's status line until it knows whether
// the gate wants to replace the response. Headers are staged in a private map and only
// copied to the real writer when the response passes through.
type interceptWriter struct {
	w         http.ResponseWriter
	header    http.Header
	intercept func(status int) bool

	wroteHeader bool
	status      int
	hit         bool
}

func newInterceptWriter(w http.ResponseWriter, intercept func(int) bool) *interceptWriter {
	return &interceptWriter{
		w:         w,
		header:    make(http.Header),
		intercept: intercept,
	}
}

func (iw *interceptWriter) Header() http.Header {
	return iw.header
}

func (iw *interceptWriter) WriteHeader(status int) {
	if iw.wroteHeader {
		return
	}

	// Informational responses go out immediately and do not fix the final status.
	if status >= 100 && status <= 199 && status != http.StatusSwitchingProtocols {
		copyHeader(iw.w.Header(), iw.header)
		iw.w.WriteHeader(status)
		return
	}

	iw.wroteHeader = true
	iw.status = status
	if iw.intercept(status) {
		iw.hit = true
		return
	}

	copyHeader(iw.w.Header(), iw.header)
	iw.w.WriteHeader(status)
}

func (iw *interceptWriter) Write(p []byte) (int, error) {
	if !iw.wroteHeader {
		iw.WriteHeader(http.StatusOK)
	}
	if iw.hit {
		return len(p), nil
	}
	return iw.w.Write(p)
}

func (iw *interceptWriter) Flush() {
	if !iw.wroteHeader {
		iw.WriteHeader(http.StatusOK)
	}
	if iw.hit {
		return
	}
	if f, ok := iw.w.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (iw *interceptWriter) Unwrap() http.ResponseWriter {
	return iw.w
}

func (iw *interceptWriter) intercepted() (int, bool) {
	return iw.status, iw.hit
}

// finish commits an implicit 200 for handlers that wrote nothing at all.
func (iw *interceptWriter) finish() {
	if !iw.wroteHeader {
		iw.WriteHeader(http.StatusOK)
	}
}

func copyHeader(dst, src http.Header) {
	for k, v := range src {
		dst[k] = v
	}
}
