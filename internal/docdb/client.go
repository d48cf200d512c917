// Package docdb is a TCP client for the document store backing the
// registration service.
//
// Wire format: [4-byte little-endian length][JSON payload] in both
// directions. The server answers {"ok": true, "data": ...} or
// {"ok": false, "error": "..."}.
//
// The client carries only the commands this service issues: document
// find/insert/update/delete/count, index creation, and blob bucket
// operations for registrant photos. Every operation runs under an I/O
// deadline; a client with timeout zero never times out.
package docdb

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Client is a single TCP connection to the store. Safe for concurrent use;
// requests are serialized on the connection.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	timeout time.Duration
}

// Connect dials the store. dialTimeout bounds the dial; opTimeout bounds
// each subsequent request/response round trip (zero disables the deadline).
func Connect(host string, port int, dialTimeout, opTimeout time.Duration) (*Client, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("docdb: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, timeout: opTimeout}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) writeFrame(data []byte) error {
	head := make([]byte, 4)
	binary.LittleEndian.PutUint32(head, uint32(len(data)))
	if _, err := c.conn.Write(head); err != nil {
		return err
	}
	_, err := c.conn.Write(data)
	return err
}

func (c *Client) readFrame() ([]byte, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(c.conn, head); err != nil {
		return nil, fmt.Errorf("docdb: read length: %w", err)
	}
	payload := make([]byte, binary.LittleEndian.Uint32(head))
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, fmt.Errorf("docdb: read payload: %w", err)
	}
	return payload, nil
}

func (c *Client) roundTrip(req map[string]any) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
		defer c.conn.SetDeadline(time.Time{})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("docdb: marshal request: %w", err)
	}
	if err := c.writeFrame(body); err != nil {
		return nil, fmt.Errorf("docdb: send: %w", err)
	}
	raw, err := c.readFrame()
	if err != nil {
		return nil, err
	}
	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("docdb: unmarshal response: %w", err)
	}
	return resp, nil
}

func (c *Client) do(req map[string]any) (any, error) {
	resp, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	if ok, _ := resp["ok"].(bool); !ok {
		msg, _ := resp["error"].(string)
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &Error{Msg: msg}
	}
	return resp["data"], nil
}

// Ping checks liveness. Returns "pong" from a healthy server.
func (c *Client) Ping() (string, error) {
	data, err := c.do(map[string]any{"cmd": "ping"})
	if err != nil {
		return "", err
	}
	s, _ := data.(string)
	return s, nil
}

// CreateCollection creates a collection. Idempotent on the server side.
func (c *Client) CreateCollection(name string) error {
	_, err := c.do(map[string]any{"cmd": "create_collection", "collection": name})
	return err
}

// Insert stores a new document and returns the raw response data.
func (c *Client) Insert(collection string, doc map[string]any) (map[string]any, error) {
	data, err := c.do(map[string]any{"cmd": "insert", "collection": collection, "doc": doc})
	if err != nil {
		return nil, err
	}
	m, _ := data.(map[string]any)
	return m, nil
}

// FindOptions holds the optional parameters for Find.
type FindOptions struct {
	Sort  map[string]any
	Skip  *int
	Limit *int
}

// Find returns all documents matching query, honoring opts when non-nil.
func (c *Client) Find(collection string, query map[string]any, opts *FindOptions) ([]map[string]any, error) {
	req := map[string]any{"cmd": "find", "collection": collection, "query": query}
	if opts != nil {
		if opts.Sort != nil {
			req["sort"] = opts.Sort
		}
		if opts.Skip != nil {
			req["skip"] = *opts.Skip
		}
		if opts.Limit != nil {
			req["limit"] = *opts.Limit
		}
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return docSlice(data), nil
}

// FindOne returns a single matching document, or nil when nothing matches.
func (c *Client) FindOne(collection string, query map[string]any) (map[string]any, error) {
	data, err := c.do(map[string]any{"cmd": "find_one", "collection": collection, "query": query})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	m, _ := data.(map[string]any)
	return m, nil
}

// UpdateOne applies update to at most one document matching query.
// The response carries a "modified" count.
func (c *Client) UpdateOne(collection string, query, update map[string]any) (map[string]any, error) {
	data, err := c.do(map[string]any{
		"cmd": "update_one", "collection": collection,
		"query": query, "update": update,
	})
	if err != nil {
		return nil, err
	}
	m, _ := data.(map[string]any)
	return m, nil
}

// DeleteOne removes at most one document matching query.
func (c *Client) DeleteOne(collection string, query map[string]any) (map[string]any, error) {
	data, err := c.do(map[string]any{"cmd": "delete_one", "collection": collection, "query": query})
	if err != nil {
		return nil, err
	}
	m, _ := data.(map[string]any)
	return m, nil
}

// Count returns the number of documents matching query.
func (c *Client) Count(collection string, query map[string]any) (int, error) {
	data, err := c.do(map[string]any{"cmd": "count", "collection": collection, "query": query})
	if err != nil {
		return 0, err
	}
	m, _ := data.(map[string]any)
	n, _ := m["count"].(float64)
	return int(n), nil
}

// CreateIndex creates a non-unique index on field.
func (c *Client) CreateIndex(collection, field string) error {
	_, err := c.do(map[string]any{"cmd": "create_index", "collection": collection, "field": field})
	return err
}

// CreateUniqueIndex creates a unique index on field.
func (c *Client) CreateUniqueIndex(collection, field string) error {
	_, err := c.do(map[string]any{"cmd": "create_unique_index", "collection": collection, "field": field})
	return err
}

// CreateBucket creates a blob storage bucket.
func (c *Client) CreateBucket(bucket string) error {
	_, err := c.do(map[string]any{"cmd": "create_bucket", "bucket": bucket})
	return err
}

// PutObject uploads a blob. Content is base64-encoded on the wire. Writing
// an existing key overwrites it.
func (c *Client) PutObject(bucket, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.do(map[string]any{
		"cmd":          "put_object",
		"bucket":       bucket,
		"key":          key,
		"data":         base64.StdEncoding.EncodeToString(data),
		"content_type": contentType,
	})
	return err
}

// GetObject downloads a blob. Returns the decoded content and the content
// type the server recorded for it.
func (c *Client) GetObject(bucket, key string) ([]byte, string, error) {
	data, err := c.do(map[string]any{"cmd": "get_object", "bucket": bucket, "key": key})
	if err != nil {
		return nil, "", err
	}
	m, _ := data.(map[string]any)
	content, _ := m["content"].(string)
	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, "", fmt.Errorf("docdb: decode base64: %w", err)
	}
	ct, _ := m["content_type"].(string)
	return decoded, ct, nil
}

// DeleteObject removes a blob.
func (c *Client) DeleteObject(bucket, key string) error {
	_, err := c.do(map[string]any{"cmd": "delete_object", "bucket": bucket, "key": key})
	return err
}

func docSlice(data any) []map[string]any {
	arr, _ := data.([]any)
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
