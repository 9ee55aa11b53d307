package secretstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "client-secret")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() unexpected error: %v", err)
	}

	if _, err := store.Read(ctx); err == nil {
		t.Error("Read() before Write() expected error")
	}

	if err := store.Write(ctx, "  s3cret \n"); err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	got, err := store.Read(ctx)
	if err != nil {
		t.Fatalf("Read() unexpected error: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Read() = %q, want %q", got, "s3cret")
	}

	if err := store.Write(ctx, "   "); err == nil {
		t.Error("Write(blank) expected error")
	}
}

func TestFileStoreRejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client-secret")
	if err := os.WriteFile(path, []byte("s3cret"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(context.Background()); err == nil || !strings.Contains(err.Error(), "insecure permissions") {
		t.Errorf("Read() error = %v, want insecure permissions", err)
	}
}

func TestEnvStore(t *testing.T) {
	ctx := context.Background()

	if _, err := NewEnvStore(""); err == nil {
		t.Error("NewEnvStore(\"\") expected error")
	}

	store, err := NewEnvStore("JOLT_TEST_CLIENT_SECRET")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Read(ctx); err == nil {
		t.Error("Read() of unset variable expected error")
	}

	t.Setenv("JOLT_TEST_CLIENT_SECRET", "")
	if _, err := store.Read(ctx); err == nil {
		t.Error("Read() of empty variable expected error")
	}

	t.Setenv("JOLT_TEST_CLIENT_SECRET", "from-env")
	got, err := store.Read(ctx)
	if err != nil || got != "from-env" {
		t.Errorf("Read() = %q, %v", got, err)
	}

	if err := store.Write(ctx, "x"); err == nil {
		t.Error("Write() expected read-only error")
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()

	if _, err := NewKeyringStore("", "user"); err == nil {
		t.Error("empty service expected error")
	}
	if _, err := NewKeyringStore(KeyringService, ""); err == nil {
		t.Error("empty user expected error")
	}

	store, err := NewKeyringStore(KeyringService, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Read(ctx); err == nil {
		t.Error("Read() before Write() expected error")
	}
	if err := store.Write(ctx, "from-keyring"); err != nil {
		t.Fatalf("Write() unexpected error: %v", err)
	}
	got, err := store.Read(ctx)
	if err != nil || got != "from-keyring" {
		t.Errorf("Read() = %q, %v", got, err)
	}
}
