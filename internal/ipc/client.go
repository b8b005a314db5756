package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Whorl.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats retrieves daily rollups for the requested window in days.
func (c *Client) Stats(days int) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.client.Call("Whorl.Stats", StatsRequest{Days: days}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VisitorDescribe returns details for a single visitor.
func (c *Client) VisitorDescribe(id string) (*VisitorDescribeResponse, error) {
	var resp VisitorDescribeResponse
	if err := c.client.Call("Whorl.VisitorDescribe", VisitorDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health retrieves detailed database diagnostics.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.client.Call("Whorl.Health", HealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Flush removes all visitor data.
func (c *Client) Flush() (*FlushResponse, error) {
	var resp FlushResponse
	if err := c.client.Call("Whorl.Flush", FlushRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
