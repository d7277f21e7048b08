// Package dblock serializes test packages that share the live test database.
// A TCP listener doubles as a cross-process mutex.
package dblock

import (
	"net"
	"time"
)

const lockAddr = "127.0.0.1:45433"

func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
