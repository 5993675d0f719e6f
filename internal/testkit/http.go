package testkit

import (
	"encoding/json"
	"net"
	"testing"

	"github.com/valyala/fasthttp"
)

// Response is a recorded handler response.
type Response struct {
	Status int
	Header fasthttp.ResponseHeader
	Body   []byte
}

// Envelope mirrors the JSON envelope with the data left raw.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Request describes one call against a handler.
type Request struct {
	Method string
	Path   string
	Body   any
	Header map[string]string
	// RemoteIP defaults to 127.0.0.1.
	RemoteIP string
}

// Do runs h on a fresh RequestCtx built from r and records the response.
func Do(t testing.TB, h fasthttp.RequestHandler, r Request) *Response {
	t.Helper()

	var req fasthttp.Request
	req.Header.SetMethod(r.Method)
	req.SetRequestURI(r.Path)
	req.Header.SetHost("reviewflow.test")
	if r.Body != nil {
		b, ok := r.Body.([]byte)
		if !ok {
			var err error
			b, err = json.Marshal(r.Body)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	ip := r.RemoteIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, &net.TCPAddr{IP: net.ParseIP(ip), Port: 40000}, nil)
	h(&ctx)

	out := &Response{
		Status: ctx.Response.StatusCode(),
		Body:   append([]byte(nil), ctx.Response.Body()...),
	}
	ctx.Response.Header.CopyTo(&out.Header)
	return out
}

// Envelope decodes the response body as the JSON envelope.
func (r *Response) Envelope(t testing.TB) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		t.Fatalf("decode envelope %q: %v", r.Body, err)
	}
	return env
}

// Data decodes the envelope's data into dst.
func (r *Response) Data(t testing.TB, dst any) {
	t.Helper()
	env := r.Envelope(t)
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %q: %v", env.Data, err)
	}
}

// Cookie returns the named Set-Cookie of the response.
func (r *Response) Cookie(name string) (*fasthttp.Cookie, bool) {
	c := &fasthttp.Cookie{}
	c.SetKey(name)
	if !r.Header.Cookie(c) {
		return nil, false
	}
	return c, true
}
