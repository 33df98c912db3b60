// Package stripe implements the RAID-5 stripe mapping: the pure function
// from a logical block number to the (data-server, stripe-index,
// parity-server) triple it lives at. It has no state and no I/O, per
// spec.md §4.2/§9 — it is called from the client's Get, Put, repair and
// verify paths and is unit-tested on its own.
package stripe

import "fmt"

// Location is the (data server, physical stripe index, parity server)
// triple a logical block maps to.
type Location struct {
	DataServer   int
	StripeIndex  int
	ParityServer int
}

// Map computes the stripe mapping for logical block b across n servers,
// per spec.md §3:
//
//	D = n - 1
//	stripe_index(b) = b div D
//	data_offset(b)  = b mod D
//	parity_server(b) = stripe_index(b) mod n
//	data_server(b)   = the data_offset(b)-th element of [0..n) \ {parity_server(b)}
func Map(b, n int) (Location, error) {
	if n < 3 {
		return Location{}, fmt.Errorf("stripe: n must be >= 3, got %d", n)
	}
	if b < 0 {
		return Location{}, fmt.Errorf("stripe: block number %d out of range", b)
	}

	d := n - 1
	stripeIndex := b / d
	dataOffset := b % d
	paritySrv := stripeIndex % n

	dataSrv := -1
	pos := 0
	for i := 0; i < n; i++ {
		if i == paritySrv {
			continue
		}
		if pos == dataOffset {
			dataSrv = i
			break
		}
		pos++
	}

	return Location{
		DataServer:   dataSrv,
		StripeIndex:  stripeIndex,
		ParityServer: paritySrv,
	}, nil
}

// DataServers returns every server index in [0, n) participating in
// stripe s other than its parity server, i.e. the full data-server
// membership of that stripe, in server-index order.
func DataServers(stripeIndex, n int) []int {
	parity := stripeIndex % n
	out := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != parity {
			out = append(out, i)
		}
	}
	return out
}

// ParityServer returns the server holding parity for physical stripe s.
func ParityServer(stripeIndex, n int) int {
	return stripeIndex % n
}

// NumStripes returns the number of physical stripes needed to hold
// totalBlocks logical blocks across n servers.
func NumStripes(totalBlocks, n int) int {
	d := n - 1
	if totalBlocks <= 0 {
		return 0
	}
	return (totalBlocks + d - 1) / d
}
