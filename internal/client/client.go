// Package client talks to a fast-kv server over its line protocol.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ErrServer wraps ERROR replies returned by the typed helpers.
var ErrServer = errors.New("server error")

type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout time.Duration
}

// Dial connects to addr ("host:port"). A zero timeout disables deadlines.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, 64*1024),
		writer:  bufio.NewWriterSize(conn, 64*1024),
		timeout: timeout,
	}, nil
}

func dialTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 5 * time.Second
	}
	return timeout
}

// Do sends one command line and returns its reply without the trailing newline.
func (c *Client) Do(line string) (string, error) {
	c.Send(line)
	if err := c.Flush(); err != nil {
		return "", err
	}
	return c.ReadReply()
}

// Send buffers a command line without flushing, for pipelining.
func (c *Client) Send(line string) {
	c.writer.WriteString(line)
	c.writer.WriteByte('\n')
}

func (c *Client) Flush() error {
	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}
	return c.writer.Flush()
}

// ReadReply reads one reply line.
func (c *Client) ReadReply() (string, error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return "", err
		}
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// ReadReplies reads and discards count replies.
func (c *Client) ReadReplies(count int) error {
	for i := 0; i < count; i++ {
		if _, err := c.ReadReply(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Set(key, value string) error {
	reply, err := c.Do("SET " + key + " " + value)
	if err != nil {
		return err
	}
	return expect(reply, "OK")
}

// Get returns the value and whether the key was found.
func (c *Client) Get(key string) (string, bool, error) {
	reply, err := c.Do("GET " + key)
	if err != nil {
		return "", false, err
	}
	if reply == "NOT_FOUND" {
		return "", false, nil
	}
	value, ok := strings.CutPrefix(reply, "VALUE ")
	if !ok {
		return "", false, replyError(reply)
	}
	return value, true, nil
}

// Del reports whether the key existed.
func (c *Client) Del(key string) (bool, error) {
	reply, err := c.Do("DEL " + key)
	if err != nil {
		return false, err
	}
	switch reply {
	case "DELETED":
		return true, nil
	case "NOT_FOUND":
		return false, nil
	}
	return false, replyError(reply)
}

func (c *Client) Incr(key string) (int64, error) {
	reply, err := c.Do("INCR " + key)
	if err != nil {
		return 0, err
	}
	value, ok := strings.CutPrefix(reply, "VALUE ")
	if !ok {
		return 0, replyError(reply)
	}
	return strconv.ParseInt(value, 10, 64)
}

// Stats returns the counters of a STATS reply keyed by name.
func (c *Client) Stats() (map[string]int64, error) {
	reply, err := c.Do("STATS")
	if err != nil {
		return nil, err
	}
	return ParseStats(reply)
}

// ParseStats parses "STATS name=value ..." into a map.
func ParseStats(reply string) (map[string]int64, error) {
	fields := strings.Fields(reply)
	if len(fields) == 0 || fields[0] != "STATS" {
		return nil, replyError(reply)
	}
	out := make(map[string]int64, len(fields)-1)
	for _, f := range fields[1:] {
		name, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("malformed stats field %q", f)
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed stats field %q: %w", f, err)
		}
		out[name] = n
	}
	return out, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func expect(reply, want string) error {
	if reply != want {
		return replyError(reply)
	}
	return nil
}

func replyError(reply string) error {
	if msg, ok := strings.CutPrefix(reply, "ERROR "); ok {
		return fmt.Errorf("%w: %s", ErrServer, msg)
	}
	return fmt.Errorf("unexpected reply %q", reply)
}
