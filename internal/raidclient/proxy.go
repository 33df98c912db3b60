package raidclient

import (
	"net/rpc"

	"github.com/wothmag07/distributed-raid5-filesystem/internal/blockrpc"
)

// ServerProxy is the client's view of one block server. The client treats
// any error returned as a transport failure (connection refused or socket
// timeout, per spec.md §5/§7) and fail-fast memoizes it; rpcProxy also
// returns errors the server reports for a request (such as an out-of-range
// index or a non-zero Put status), which the client handles the same
// way. Corruption is reported
// in-band via the corrupted bool, never as an error, since it is a
// per-block condition and must not mark the whole server failed.
type ServerProxy interface {
	Get(stripeIndex int) (data []byte, corrupted bool, err error)
	Put(stripeIndex int, data []byte) error
}

// rpcProxy implements ServerProxy over net/rpc-over-HTTP, the Go
// equivalent of the original's xmlrpc.client.ServerProxy.
type rpcProxy struct {
	client *rpc.Client
}

// DialHTTP connects to a block server listening at addr (host:port) via
// net/rpc's HTTP transport. The returned ServerProxy's calls surface any
// dial or RPC failure as err, which the client treats as
// ConnectionRefused per spec.md §4.1/§4.3.
func DialHTTP(addr string) (ServerProxy, error) {
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &rpcProxy{client: client}, nil
}

func (p *rpcProxy) Get(stripeIndex int) ([]byte, bool, error) {
	args := blockrpc.GetArgs{BlockIndex: stripeIndex}
	var reply blockrpc.GetReply
	if err := p.client.Call(blockrpc.ServiceName+".Get", args, &reply); err != nil {
		return nil, false, err
	}
	return reply.Data, reply.Corrupted, nil
}

func (p *rpcProxy) Put(stripeIndex int, data []byte) error {
	args := blockrpc.PutArgs{BlockIndex: stripeIndex, Data: data}
	var reply blockrpc.PutReply
	if err := p.client.Call(blockrpc.ServiceName+".Put", args, &reply); err != nil {
		return err
	}
	if reply.Status != 0 {
		return &rpcLogicalError{blockIndex: stripeIndex}
	}
	return nil
}

type rpcLogicalError struct {
	blockIndex int
}

func (e *rpcLogicalError) Error() string {
	return "raidclient: server returned a logical error for stripe index"
}
