package store

import (
	"strconv"
	"sync/atomic"
	"time"
)

// lastNonce is the most recent nonce issued in this process.
var lastNonce atomic.Uint64

// nextNonce renders t as yyMMddHHmmssffff (ffff is ten-thousandths of a
// second). Two calls never return the same value: a collision bumps the
// result past the previous one.
func nextNonce(t time.Time) string {
	t = t.UTC()
	v := uint64(t.Year()%100)*1e14 +
		uint64(t.Month())*1e12 +
		uint64(t.Day())*1e10 +
		uint64(t.Hour())*1e8 +
		uint64(t.Minute())*1e6 +
		uint64(t.Second())*1e4 +
		uint64(t.Nanosecond()/100_000)
	for {
		prev := lastNonce.Load()
		if v <= prev {
			v = prev + 1
		}
		if lastNonce.CompareAndSwap(prev, v) {
			break
		}
	}
	s := strconv.FormatUint(v, 10)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
