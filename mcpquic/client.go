package mcpquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/quic-go/quic-go"
)

// HandshakeTimeout bounds the MCP initialize exchange after the QUIC dial.
const HandshakeTimeout = 10 * time.Second

// Client is an MCP session to a Listener, used by `navcontrast -mcp-call`.
type Client struct {
	addr   string
	tlsCfg *tls.Config

	conn    *quic.Conn
	stream  *quic.Stream
	session *mcp.ClientSession
}

// NewClient prepares a client for addr. A nil tlsCfg verifies the server
// certificate against the system roots.
func NewClient(addr string, tlsCfg *tls.Config) *Client {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(false)
	}
	return &Client{addr: addr, tlsCfg: tlsCfg}
}

// Dial is NewClient followed by Connect.
func Dial(ctx context.Context, addr string, tlsCfg *tls.Config) (*Client, error) {
	c := NewClient(addr, tlsCfg)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect opens the QUIC stream, sends the preamble and runs the MCP
// initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	stream, err := c.openStream(ctx)
	if err != nil {
		return err
	}

	impl := &mcp.Implementation{Name: "navcontrast-mcp-call", Version: "1.0.0"}
	hctx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()
	session, err := mcp.NewClient(impl, nil).Connect(hctx, &mcp.IOTransport{
		Reader: io.NopCloser(stream),
		Writer: streamWriteCloser{stream},
	}, nil)
	if err != nil {
		c.closeTransport()
		return fmt.Errorf("mcpquic: handshake with %s: %w", c.addr, err)
	}
	c.session = session
	return nil
}

func (c *Client) openStream(ctx context.Context) (*quic.Stream, error) {
	conn, err := quic.DialAddr(ctx, c.addr, c.tlsCfg, ProductionQUICConfig())
	if err != nil {
		return nil, fmt.Errorf("mcpquic: dial %s: %w", c.addr, err)
	}
	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
		conn.CloseWithError(ConnErrorUnsupportedALPN, "bad ALPN")
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedALPN, alpn)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err == nil {
		err = SendMagicBytes(stream)
		if err != nil {
			stream.Close()
		}
	}
	if err != nil {
		conn.CloseWithError(ConnErrorProtocolViolation, "stream setup failed")
		return nil, fmt.Errorf("mcpquic: open stream: %w", err)
	}
	c.conn, c.stream = conn, stream
	return stream, nil
}

// Tools lists the tools the server exposes.
func (c *Client) Tools(ctx context.Context) ([]*mcp.Tool, error) {
	if c.session == nil {
		return nil, ErrNotConnected
	}
	res, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, err
	}
	return res.Tools, nil
}

// Call invokes a tool and returns its text content. A result flagged as a
// tool error is returned as an error wrapping ErrToolFailed.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.session == nil {
		return "", ErrNotConnected
	}
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}
	var text strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return "", fmt.Errorf("%w: %s: %s", ErrToolFailed, name, text.String())
	}
	return text.String(), nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.session == nil {
		return ErrNotConnected
	}
	return c.session.Ping(ctx, nil)
}

// Close ends the session and the QUIC connection.
func (c *Client) Close() error {
	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	return c.closeTransport()
}

func (c *Client) closeTransport() error {
	if c.stream != nil {
		c.stream.Close()
	}
	if c.conn != nil {
		c.conn.CloseWithError(ConnErrorNoError, "client closing")
	}
	c.conn, c.stream = nil, nil
	return nil
}
