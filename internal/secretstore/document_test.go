package secretstore

import (
	"context"
	"errors"
	"testing"
)

type memoryDocument struct {
	secret  string
	failing bool
}

func (m *memoryDocument) ClientSecret() string {
	return m.secret
}

func (m *memoryDocument) SetClientSecret(_ context.Context, secret string) error {
	if m.failing {
		return errors.New("read-only filesystem")
	}
	m.secret = secret
	return nil
}

func TestDocumentStore(t *testing.T) {
	ctx := context.Background()
	doc := &memoryDocument{}

	store, err := NewDocumentStore(doc)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(ctx); err == nil {
		t.Error("Read() with empty clientSecret expected error")
	}
	if err := store.Write(ctx, ""); err == nil {
		t.Error("Write(\"\") expected error")
	}
	if err := store.Write(ctx, "s3cret"); err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	if got, err := store.Read(ctx); err != nil || got != "s3cret" {
		t.Errorf("Read() = %q, %v", got, err)
	}

	doc.failing = true
	if err := store.Write(ctx, "other"); err == nil {
		t.Error("Write() expected persistence error")
	}
	if doc.secret != "s3cret" {
		t.Errorf("secret = %q after failed write, want s3cret", doc.secret)
	}
}

func TestNewDocumentStoreRequiresDocument(t *testing.T) {
	if _, err := NewDocumentStore(nil); err == nil {
		t.Error("NewDocumentStore(nil) expected error")
	}
}
