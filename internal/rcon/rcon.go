// Package rcon implements the Source engine remote console protocol
// (TCP, length-prefixed packets with an auth handshake).
package rcon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const (
	packetResponseValue = 0
	packetExecCommand   = 2
	packetAuthResponse  = 2
	packetAuth          = 3

	dialTimeout  = 5 * time.Second
	execTimeout  = 3 * time.Second
	maxPacketLen = 4096
)

// Client is a lazily connecting RCON client for a single game server.
// A send failure drops the connection so the next Exec redials; callers
// see the error and decide what to do with the command.
type Client struct {
	addr     string
	password string

	mu     sync.Mutex
	conn   net.Conn
	nextID int32
}

// NewClient creates a client for the given host:port. No connection is
// made until the first Exec.
func NewClient(addr, password string) *Client {
	return &Client{addr: addr, password: password, nextID: 1}
}

// Addr returns the server address the client talks to
func (c *Client) Addr() string {
	return c.addr
}

// Exec sends a single command and returns the server's response body.
func (c *Client) Exec(command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(); err != nil {
			return "", err
		}
	}

	c.conn.SetDeadline(time.Now().Add(execTimeout))

	id := c.nextID
	c.nextID++
	if err := c.writePacket(id, packetExecCommand, command); err != nil {
		c.drop()
		return "", fmt.Errorf("sending command: %w", err)
	}

	respID, _, body, err := c.readPacket()
	if err != nil {
		c.drop()
		return "", fmt.Errorf("reading response: %w", err)
	}
	if respID != id {
		c.drop()
		return "", fmt.Errorf("response id mismatch: got %d, want %d", respID, id)
	}

	return body, nil
}

// Close tears down the connection. Safe to call on an unconnected client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// connect dials and authenticates. Caller holds the lock.
func (c *Client) connect() error {
	conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.addr, err)
	}
	c.conn = conn

	c.conn.SetDeadline(time.Now().Add(dialTimeout))

	id := c.nextID
	c.nextID++
	if err := c.writePacket(id, packetAuth, c.password); err != nil {
		c.drop()
		return fmt.Errorf("sending auth: %w", err)
	}

	// The server answers auth with an empty RESPONSE_VALUE followed by an
	// AUTH_RESPONSE whose id is -1 on bad credentials.
	for {
		respID, respType, _, err := c.readPacket()
		if err != nil {
			c.drop()
			return fmt.Errorf("reading auth response: %w", err)
		}
		if respType == packetResponseValue {
			continue
		}
		if respID == -1 {
			c.drop()
			return fmt.Errorf("authentication rejected by %s", c.addr)
		}
		return nil
	}
}

// drop discards the connection so the next Exec redials. Caller holds the lock.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) writePacket(id, packetType int32, body string) error {
	var buf bytes.Buffer
	size := int32(len(body) + 10)
	binary.Write(&buf, binary.LittleEndian, size)
	binary.Write(&buf, binary.LittleEndian, id)
	binary.Write(&buf, binary.LittleEndian, packetType)
	buf.WriteString(body)
	buf.Write([]byte{0, 0})

	_, err := c.conn.Write(buf.Bytes())
	return err
}

func (c *Client) readPacket() (id, packetType int32, body string, err error) {
	var size int32
	if err = binary.Read(c.conn, binary.LittleEndian, &size); err != nil {
		return
	}
	if size < 10 || size > maxPacketLen {
		err = fmt.Errorf("invalid packet size %d", size)
		return
	}

	payload := make([]byte, size)
	if _, err = io.ReadFull(c.conn, payload); err != nil {
		return
	}

	id = int32(binary.LittleEndian.Uint32(payload[0:4]))
	packetType = int32(binary.LittleEndian.Uint32(payload[4:8]))
	body = string(bytes.TrimRight(payload[8:], "\x00"))
	return
}
