package remote

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/graphir/internal/ir"
)

// Client talks to a remote rewrite server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a rewrite server at target.
func Dial(target string) (*Client, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Rewrite sends the bundle to the server and returns the rewritten form.
func (c *Client) Rewrite(ctx context.Context, b *ir.Bundle) (*ir.Bundle, error) {
	data, err := b.Serialize()
	if err != nil {
		return nil, err
	}
	req := &RewriteRequest{Bundle: data}
	resp := new(RewriteResponse)
	if err := c.conn.Invoke(ctx, rewriteMethod, req, resp); err != nil {
		return nil, err
	}
	out, err := ir.DeserializeBundle(resp.Bundle)
	if err != nil {
		return nil, fmt.Errorf("decoding server response: %w", err)
	}
	return out, nil
}
