package middleware

import (
	"fmt"
	"net"
	"strings"

	"github.com/valyala/fasthttp"

	httpctx "github.com/vanelang/review-flow/internal/http/ctx"
)

// TrustedProxies is the set of peers whose X-Forwarded-For header is honoured.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies accepts plain IPs and CIDR ranges.
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	tp := &TrustedProxies{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			ip := net.ParseIP(e)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: invalid IP", e)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			tp.nets = append(tp.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		tp.nets = append(tp.nets, n)
	}
	return tp, nil
}

func (tp *TrustedProxies) contains(ip net.IP) bool {
	if tp == nil || ip == nil {
		return false
	}
	for _, n := range tp.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolve picks the client address. The peer address is used unless the peer
// is a trusted proxy, in which case X-Forwarded-For is walked right to left
// and the first hop that is not itself a trusted proxy wins.
func (tp *TrustedProxies) Resolve(ctx *fasthttp.RequestCtx) string {
	peer := ctx.RemoteIP()
	if !tp.contains(peer) {
		return peer.String()
	}
	xff := string(ctx.Request.Header.Peek(fasthttp.HeaderXForwardedFor))
	if xff == "" {
		return peer.String()
	}
	hops := strings.Split(xff, ",")
	client := peer.String()
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			break
		}
		client = ip.String()
		if !tp.contains(ip) {
			break
		}
	}
	return client
}

// ClientIP stores the resolved client address before any handler or limiter
// reads it.
func ClientIP(tp *TrustedProxies) func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			httpctx.SetClientIP(ctx, tp.Resolve(ctx))
			next(ctx)
		}
	}
}
