package profiler

import (
	"bytes"
	"net/http"
)

const setCookie = "Set-Cookie"

// Response is a fully buffered http response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// WriteTo emits the response. Cookies already set on w are kept,
// every other header is replaced by the captured one.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range r.Header {
		if k == setCookie {
			dst[k] = append(dst[k], v...)
			continue
		}
		dst[k] = append([]string(nil), v...)
	}

	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	_, err := w.Write(r.Body)
	return err
}

// ResponseCapture is an http.ResponseWriter that buffers everything
// written to it.
type ResponseCapture struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func NewResponseCapture() *ResponseCapture {
	return &ResponseCapture{header: http.Header{}, status: http.StatusOK}
}

func (c *ResponseCapture) Header() http.Header {
	return c.header
}

func (c *ResponseCapture) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.status = status
	c.wroteHeader = true
}

func (c *ResponseCapture) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.header.Get("Content-Type") == "" {
		c.header.Set("Content-Type", http.DetectContentType(append(c.body.Bytes(), b...)))
	}
	return c.body.Write(b)
}

// Status returns the status written so far.
func (c *ResponseCapture) Status() int {
	return c.status
}

// Response snapshots the captured response.
func (c *ResponseCapture) Response() *Response {
	return &Response{
		StatusCode: c.status,
		Header:     c.header.Clone(),
		Body:       append([]byte(nil), c.body.Bytes()...),
	}
}

// withBody returns a copy of r with a new body and no Content-Length.
func (r *Response) withBody(body []byte) *Response {
	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del("Content-Length")

	return &Response{
		StatusCode: r.StatusCode,
		Header:     header,
		Body:       body,
	}
}
