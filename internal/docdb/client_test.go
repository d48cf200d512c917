package docdb_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/nandakv/regio/internal/docdb"
	"github.com/nandakv/regio/internal/testutil"
)

func connect(t *testing.T) (*testutil.Store, *docdb.Client) {
	t.Helper()
	store, host, port := testutil.Serve(t)
	c, err := docdb.Connect(host, port, 5*time.Second, 5*time.Second)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return store, c
}

func TestPing(t *testing.T) {
	_, c := connect(t)
	pong, err := c.Ping()
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if pong != "pong" {
		t.Fatalf("expected pong, got %q", pong)
	}
}

func TestInsertAndFind(t *testing.T) {
	_, c := connect(t)

	if _, err := c.Insert("people", map[string]any{"name": "Alice", "age": float64(30)}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := c.Insert("people", map[string]any{"name": "Bob", "age": float64(25)}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	docs, err := c.Find("people", map[string]any{"name": "Alice"}, nil)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 1 || docs[0]["name"] != "Alice" {
		t.Fatalf("unexpected result: %v", docs)
	}
}

func TestFindSortDescending(t *testing.T) {
	_, c := connect(t)
	for _, name := range []string{"a", "c", "b"} {
		if _, err := c.Insert("sorted", map[string]any{"name": name}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	docs, err := c.Find("sorted", map[string]any{}, &docdb.FindOptions{
		Sort: map[string]any{"name": -1},
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if docs[0]["name"] != "c" || docs[2]["name"] != "a" {
		t.Fatalf("not sorted descending: %v", docs)
	}
}

func TestFindOneMissing(t *testing.T) {
	_, c := connect(t)
	doc, err := c.FindOne("empty", map[string]any{"id": "nope"})
	if err != nil {
		t.Fatalf("find_one: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil, got %v", doc)
	}
}

func TestUpdateOne(t *testing.T) {
	_, c := connect(t)
	if _, err := c.Insert("people", map[string]any{"id": "x", "age": float64(30)}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	result, err := c.UpdateOne("people", map[string]any{"id": "x"}, map[string]any{"$set": map[string]any{"age": float64(31)}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if modified, _ := result["modified"].(float64); modified != 1 {
		t.Fatalf("expected modified=1, got %v", result)
	}

	result, err = c.UpdateOne("people", map[string]any{"id": "missing"}, map[string]any{"$set": map[string]any{"age": float64(1)}})
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if modified, _ := result["modified"].(float64); modified != 0 {
		t.Fatalf("expected modified=0, got %v", result)
	}
}

func TestCount(t *testing.T) {
	_, c := connect(t)
	for i := 0; i < 3; i++ {
		if _, err := c.Insert("counted", map[string]any{"kind": "x"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	n, err := c.Count("counted", map[string]any{"kind": "x"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	_, c := connect(t)
	if err := c.CreateBucket("photos"); err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	payload := []byte{0xff, 0xd8, 0xff, 0x00, 0x01}
	if err := c.PutObject("photos", "p.jpg", payload, "image/jpeg"); err != nil {
		t.Fatalf("put: %v", err)
	}
	data, ct, err := c.GetObject("photos", "p.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload corrupted: %v", data)
	}
	if ct != "image/jpeg" {
		t.Fatalf("content type lost: %q", ct)
	}
}

func TestGetMissingObject(t *testing.T) {
	_, c := connect(t)
	_, _, err := c.GetObject("photos", "missing.jpg")
	var derr *docdb.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected docdb.Error, got %v", err)
	}
}

func TestServerRejection(t *testing.T) {
	store, c := connect(t)
	store.RejectWrites = "permission denied"
	_, err := c.Insert("people", map[string]any{"name": "Eve"})
	var derr *docdb.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected docdb.Error, got %v", err)
	}
	if derr.Msg != "permission denied" {
		t.Fatalf("server message lost: %q", derr.Msg)
	}
}
