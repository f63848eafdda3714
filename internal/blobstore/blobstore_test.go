package blobstore

import (
	"encoding/base64"
	"io"
	"testing"
)

func TestSaveOpenRemove(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	id, err := store.Save([]byte("hello"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Saving the same payload again returns the same id
	id2, err := store.Save([]byte("hello"))
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if id2 != id {
		t.Errorf("expected same id for same payload, got %s and %s", id, id2)
	}

	r, err := store.Open(id)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	data, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("unexpected blob content: %q", data)
	}

	if err := store.Remove(id); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
	// Double release is a no-op
	if err := store.Remove(id); err != nil {
		t.Errorf("second Remove failed: %v", err)
	}
	if _, err := store.Open(id); err == nil {
		t.Error("Open succeeded after Remove")
	}
}

func TestDecode(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("payload"))
	if got := Decode(encoded); string(got) != "payload" {
		t.Errorf("base64 content not decoded: %q", got)
	}

	// Undecodable content falls back to plain text
	if got := Decode("just some text!"); string(got) != "just some text!" {
		t.Errorf("plain text mangled: %q", got)
	}
}

func TestSniffMime(t *testing.T) {
	// Minimal valid PNG header for h2non/filetype
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if got := SniffMime(png); got != "image/png" {
		t.Errorf("expected image/png, got %s", got)
	}
	if got := SniffMime([]byte("plain text")); got != "application/octet-stream" {
		t.Errorf("expected octet-stream fallback, got %s", got)
	}
}

func TestMimeFor(t *testing.T) {
	if got := MimeFor("report.PDF", nil); got != "application/pdf" {
		t.Errorf("extension lookup failed: %s", got)
	}

	// Unknown extension falls through to content sniffing
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if got := MimeFor("picture.img", png); got != "image/png" {
		t.Errorf("sniff fallback failed: %s", got)
	}

	if got := MimeFor("mystery.bin", []byte("data")); got != "application/octet-stream" {
		t.Errorf("expected octet-stream, got %s", got)
	}
}
