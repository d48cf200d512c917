// Package testutil hosts an in-memory document store speaking the same
// length-prefixed JSON protocol as the real server, so client, pool, and
// repository tests can run against a live TCP endpoint.
package testutil

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
)

type blob struct {
	data        []byte
	contentType string
}

// Store is the fake server. RejectWrites, when set, makes every insert and
// update_one fail with that message, simulating access-rule rejections.
type Store struct {
	ln net.Listener

	mu          sync.Mutex
	collections map[string][]map[string]any
	blobs       map[string]map[string]blob
	nextID      int

	RejectWrites string
	RejectBlobs  string
}

// Serve starts the fake store on a loopback port and registers cleanup.
// Returns the store and its host/port.
func Serve(t *testing.T) (*Store, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("testutil: listen: %v", err)
	}
	s := &Store{
		ln:          ln,
		collections: make(map[string][]map[string]any),
		blobs:       make(map[string]map[string]blob),
	}
	go s.acceptLoop()
	t.Cleanup(func() { ln.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return s, "127.0.0.1", addr.Port
}

// Docs returns a copy of a collection's documents, for assertions.
func (s *Store) Docs(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.collections[collection]))
	copy(out, s.collections[collection])
	return out
}

// Blob returns a stored blob's bytes, or nil when absent.
func (s *Store) Blob(bucket, key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[bucket][key]
	if !ok {
		return nil
	}
	return b.data
}

func (s *Store) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serveConn(conn)
	}
}

func (s *Store) serveConn(conn net.Conn) {
	defer conn.Close()
	for {
		req, err := readFrame(conn)
		if err != nil {
			return
		}
		var cmd map[string]any
		if err := json.Unmarshal(req, &cmd); err != nil {
			writeFrame(conn, fail("bad json"))
			continue
		}
		writeFrame(conn, s.dispatch(cmd))
	}
}

func (s *Store) dispatch(cmd map[string]any) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, _ := cmd["cmd"].(string)
	coll, _ := cmd["collection"].(string)
	query, _ := cmd["query"].(map[string]any)

	switch name {
	case "ping":
		return ok("pong")
	case "create_collection", "create_index", "create_unique_index", "create_bucket":
		if name == "create_bucket" {
			bucket, _ := cmd["bucket"].(string)
			if s.blobs[bucket] == nil {
				s.blobs[bucket] = make(map[string]blob)
			}
		}
		return ok(nil)
	case "insert":
		if s.RejectWrites != "" {
			return fail(s.RejectWrites)
		}
		doc, _ := cmd["doc"].(map[string]any)
		s.nextID++
		doc["_id"] = float64(s.nextID)
		s.collections[coll] = append(s.collections[coll], doc)
		return ok(map[string]any{"id": float64(s.nextID)})
	case "find":
		docs := s.match(coll, query)
		applySort(docs, cmd["sort"])
		docs = applyWindow(docs, cmd["skip"], cmd["limit"])
		return ok(toAnySlice(docs))
	case "find_one":
		docs := s.match(coll, query)
		if len(docs) == 0 {
			return ok(nil)
		}
		return ok(docs[0])
	case "update_one":
		if s.RejectWrites != "" {
			return fail(s.RejectWrites)
		}
		update, _ := cmd["update"].(map[string]any)
		set, _ := update["$set"].(map[string]any)
		for _, doc := range s.collections[coll] {
			if matches(doc, query) {
				for k, v := range set {
					doc[k] = v
				}
				return ok(map[string]any{"modified": float64(1)})
			}
		}
		return ok(map[string]any{"modified": float64(0)})
	case "delete_one":
		docs := s.collections[coll]
		for i, doc := range docs {
			if matches(doc, query) {
				s.collections[coll] = append(docs[:i:i], docs[i+1:]...)
				return ok(map[string]any{"deleted": float64(1)})
			}
		}
		return ok(map[string]any{"deleted": float64(0)})
	case "count":
		return ok(map[string]any{"count": float64(len(s.match(coll, query)))})
	case "put_object":
		if s.RejectBlobs != "" {
			return fail(s.RejectBlobs)
		}
		bucket, _ := cmd["bucket"].(string)
		key, _ := cmd["key"].(string)
		enc, _ := cmd["data"].(string)
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return fail("bad base64")
		}
		ct, _ := cmd["content_type"].(string)
		if s.blobs[bucket] == nil {
			s.blobs[bucket] = make(map[string]blob)
		}
		s.blobs[bucket][key] = blob{data: data, contentType: ct}
		return ok(map[string]any{"size": float64(len(data))})
	case "get_object":
		bucket, _ := cmd["bucket"].(string)
		key, _ := cmd["key"].(string)
		b, found := s.blobs[bucket][key]
		if !found {
			return fail("object not found: " + key)
		}
		return ok(map[string]any{
			"content":      base64.StdEncoding.EncodeToString(b.data),
			"content_type": b.contentType,
		})
	case "delete_object":
		bucket, _ := cmd["bucket"].(string)
		key, _ := cmd["key"].(string)
		delete(s.blobs[bucket], key)
		return ok(nil)
	default:
		return fail("unknown command: " + name)
	}
}

func (s *Store) match(coll string, query map[string]any) []map[string]any {
	var out []map[string]any
	for _, doc := range s.collections[coll] {
		if matches(doc, query) {
			out = append(out, doc)
		}
	}
	return out
}

func matches(doc, query map[string]any) bool {
	for k, want := range query {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}

func applySort(docs []map[string]any, spec any) {
	m, _ := spec.(map[string]any)
	if len(m) == 0 {
		return
	}
	var field string
	desc := false
	for k, v := range m {
		field = k
		if d, isNum := v.(float64); isNum && d < 0 {
			desc = true
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if desc {
			return lessValue(docs[j][field], docs[i][field])
		}
		return lessValue(docs[i][field], docs[j][field])
	})
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv) < 0
	default:
		return false
	}
}

func applyWindow(docs []map[string]any, skip, limit any) []map[string]any {
	if n, isNum := skip.(float64); isNum && int(n) > 0 {
		if int(n) >= len(docs) {
			return nil
		}
		docs = docs[int(n):]
	}
	if n, isNum := limit.(float64); isNum && int(n) > 0 && int(n) < len(docs) {
		docs = docs[:int(n)]
	}
	return docs
}

func toAnySlice(docs []map[string]any) []any {
	out := make([]any, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}

func ok(data any) []byte {
	b, _ := json.Marshal(map[string]any{"ok": true, "data": data})
	return b
}

func fail(msg string) []byte {
	b, _ := json.Marshal(map[string]any{"ok": false, "error": msg})
	return b
}

func readFrame(conn net.Conn) ([]byte, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(conn, head); err != nil {
		return nil, err
	}
	payload := make([]byte, binary.LittleEndian.Uint32(head))
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func writeFrame(conn net.Conn, data []byte) error {
	head := make([]byte, 4)
	binary.LittleEndian.PutUint32(head, uint32(len(data)))
	if _, err := conn.Write(head); err != nil {
		return err
	}
	if _, err := conn.Write(data); err != nil {
		return err
	}
	return nil
}
