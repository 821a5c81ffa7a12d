package server

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestFSDriver(t *testing.T, readOnly bool) (*FSDriver, string) {
	t.Helper()
	dir := t.TempDir()
	d, err := NewFSDriver(dir, readOnly)
	if err != nil {
		t.Fatalf("NewFSDriver() error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, dir
}

func TestFSDriverPutGetRoundTrip(t *testing.T) {
	d, _ := newTestFSDriver(t, false)

	n, err := d.Put("/hello.txt", bytes.NewReader([]byte("hello world")), false)
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if n != 11 {
		t.Fatalf("Put() wrote %d bytes, want 11", n)
	}

	rc, err := d.Get("/hello.txt", 0)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading Get() result: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("Get() content = %q, want %q", data, "hello world")
	}
}

func TestFSDriverGetWithOffset(t *testing.T) {
	d, _ := newTestFSDriver(t, false)
	d.Put("/f.txt", bytes.NewReader([]byte("0123456789")), false)

	rc, err := d.Get("/f.txt", 5)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "56789" {
		t.Fatalf("Get() with offset content = %q, want %q", data, "56789")
	}
}

func TestFSDriverPutAppend(t *testing.T) {
	d, _ := newTestFSDriver(t, false)
	d.Put("/f.txt", bytes.NewReader([]byte("abc")), false)
	d.Put("/f.txt", bytes.NewReader([]byte("def")), true)

	rc, _ := d.Get("/f.txt", 0)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "abcdef" {
		t.Fatalf("content after append = %q, want %q", data, "abcdef")
	}
}

func TestFSDriverReadOnlyRejectsWrites(t *testing.T) {
	d, _ := newTestFSDriver(t, true)

	if _, err := d.Put("/x.txt", bytes.NewReader(nil), false); err == nil {
		t.Fatal("Put() on a read-only driver succeeded, want error")
	}
	if err := d.Mkd("/newdir"); err == nil {
		t.Fatal("Mkd() on a read-only driver succeeded, want error")
	}
	if err := d.Delete("/x.txt"); err == nil {
		t.Fatal("Delete() on a read-only driver succeeded, want error")
	}
}

func TestFSDriverMkdRmd(t *testing.T) {
	d, dir := newTestFSDriver(t, false)

	if err := d.Mkd("/sub"); err != nil {
		t.Fatalf("Mkd() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sub")); err != nil {
		t.Fatalf("directory not created on disk: %v", err)
	}

	if err := d.Rmd("/sub"); err != nil {
		t.Fatalf("Rmd() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sub")); !os.IsNotExist(err) {
		t.Fatalf("directory still present after Rmd(): %v", err)
	}
}

func TestFSDriverListAndMetadata(t *testing.T) {
	d, _ := newTestFSDriver(t, false)
	d.Put("/a.txt", bytes.NewReader([]byte("123")), false)
	d.Mkd("/dir")

	entries, err := d.List("/")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(entries))
	}

	meta, err := d.Metadata("/a.txt")
	if err != nil {
		t.Fatalf("Metadata() error: %v", err)
	}
	if meta.Size != 3 || !meta.IsFile || meta.IsDir {
		t.Fatalf("Metadata() = %+v, want size 3, file", meta)
	}
}

func TestFSDriverRename(t *testing.T) {
	d, _ := newTestFSDriver(t, false)
	d.Put("/old.txt", bytes.NewReader([]byte("x")), false)

	if err := d.Rename("/old.txt", "/new.txt"); err != nil {
		t.Fatalf("Rename() error: %v", err)
	}
	if _, err := d.Metadata("/old.txt"); err == nil {
		t.Fatal("old path still exists after Rename()")
	}
	if _, err := d.Metadata("/new.txt"); err != nil {
		t.Fatalf("new path missing after Rename(): %v", err)
	}
}

func TestUniqueStoreName(t *testing.T) {
	a := uniqueStoreName(1000)
	b := uniqueStoreName(2000)
	if a == b {
		t.Fatalf("uniqueStoreName() produced the same name for different inputs: %q", a)
	}
}
