package buildcache

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), ".vmodgen", "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	id := "deadbeef"
	if _, err := c.Get(id); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get on empty cache = %v, want ErrMiss", err)
	}

	in := &Entry{
		FileID: id,
		JSON:   []byte("json"),
		Header: []byte("header"),
		CUnit:  []byte("c"),
		GoUnit: []byte("go"),
		Docs:   []byte("docs"),
	}
	if err := c.Put(in); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	out, err := c.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(out.JSON, in.JSON) || !bytes.Equal(out.GoUnit, in.GoUnit) ||
		!bytes.Equal(out.Header, in.Header) || !bytes.Equal(out.CUnit, in.CUnit) ||
		!bytes.Equal(out.Docs, in.Docs) {
		t.Error("round-tripped entry does not match")
	}
}

func TestCacheReplace(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	e := &Entry{FileID: "x", JSON: []byte("one"), Header: []byte{0}, CUnit: []byte{0}, GoUnit: []byte{0}, Docs: []byte{0}}
	if err := c.Put(e); err != nil {
		t.Fatal(err)
	}
	e.JSON = []byte("two")
	if err := c.Put(e); err != nil {
		t.Fatal(err)
	}

	out, err := c.Get("x")
	if err != nil {
		t.Fatal(err)
	}
	if string(out.JSON) != "two" {
		t.Errorf("JSON = %q, want the replacement", out.JSON)
	}
}
