package commands

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/florianilch/jolt-auth/internal/account"
	"github.com/florianilch/jolt-auth/internal/app"
	"github.com/florianilch/jolt-auth/internal/credstore"
)

const testDocument = `{
  "clientId": "cid",
  "clientSecret": "secret",
  "streamer": {"active": null, "accounts": []},
  "chatBot": {
    "active": "bot1",
    "accounts": [
      {"name": "bot1", "token": "at1", "refresh": "rt1", "uid": "42", "scopes": ["chat:read"], "avatarUrl": ""},
      {"name": "bot2", "token": "at2", "refresh": "rt2", "uid": "43", "scopes": [], "avatarUrl": ""},
    ],
  },
}`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &out)
	err := cmd.Run(context.Background(), append([]string{"joltauth"}, args...))
	return out.String(), err
}

func TestAccountsCommands(t *testing.T) {
	path := writeFile(t, "twitch.json", testDocument)

	out, err := run(t, "", "--store--file", path, "accounts", "list", "--role", "chatbot")
	if err != nil {
		t.Fatalf("accounts list error = %v", err)
	}
	marked := map[string]bool{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[1:] {
		fields := strings.Fields(line)
		if fields[0] == "*" {
			marked[fields[1]] = true
		} else {
			marked[fields[0]] = false
		}
	}
	if want := map[string]bool{"bot1": true, "bot2": false}; !maps.Equal(marked, want) {
		t.Errorf("accounts list marks = %v, want %v\n%s", marked, want, out)
	}

	if _, err := run(t, "", "--store--file", path, "accounts", "use", "--role", "chatBot", "bot2"); err != nil {
		t.Fatalf("accounts use error = %v", err)
	}
	if _, err := run(t, "", "--store--file", path, "accounts", "use", "--role", "chatBot", "nobody"); err == nil {
		t.Error("accounts use of unknown account expected error")
	}
	if _, err := run(t, "", "--store--file", path, "accounts", "remove", "--role", "chatBot", "bot1"); err != nil {
		t.Fatalf("accounts remove error = %v", err)
	}

	store, err := credstore.Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	slot := store.Slot(account.ChatBot)
	if slot.ActiveName() != "bot2" || len(slot.Accounts) != 1 {
		t.Errorf("chatBot slot = %+v, want only bot2 active", slot)
	}
}

func TestAccountsCommandsGoThroughRunningServer(t *testing.T) {
	path := writeFile(t, "twitch.json", testDocument)

	cfg := &app.Config{Store: app.StoreConfig{File: path}}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}
	owner, err := app.New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = owner.Close() })

	ts := httptest.NewServer(owner.Handler())
	t.Cleanup(ts.Close)
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("JOLT_SERVER__HOST", u.Hostname())
	t.Setenv("JOLT_SERVER__PORT", u.Port())

	if _, err := run(t, "", "--store--file", path, "accounts", "use", "--role", "chatBot", "bot2"); err != nil {
		t.Fatalf("accounts use error = %v", err)
	}
	if active, _ := owner.Manager(account.ChatBot).Active(); active.Name != "bot2" {
		t.Errorf("server active account = %q, want bot2", active.Name)
	}
	if got := owner.Client(account.ChatBot).AccessToken(); got != "at2" {
		t.Errorf("server chatBot token = %q, want at2", got)
	}

	if _, err := run(t, "", "--store--file", path, "accounts", "use", "--role", "chatBot", "nobody"); err == nil {
		t.Error("accounts use of unknown account expected error")
	}

	out, err := run(t, "", "--store--file", path, "accounts", "remove", "--role", "chatBot", "bot1")
	if err != nil {
		t.Fatalf("accounts remove error = %v", err)
	}
	if !strings.Contains(out, "active chatBot account is bot2") {
		t.Errorf("accounts remove output = %q", out)
	}

	out, err = run(t, "", "--store--file", path, "accounts", "list", "--role", "chatBot")
	if err != nil {
		t.Fatalf("accounts list error = %v", err)
	}
	if strings.Contains(out, "bot1") || !strings.Contains(out, "bot2") {
		t.Errorf("accounts list output = %q", out)
	}

	// The server's next save must not bring back what the CLI removed.
	if err := owner.Manager(account.ChatBot).SetActiveAccount(context.Background(), "bot2"); err != nil {
		t.Fatal(err)
	}
	if err := owner.Close(); err != nil {
		t.Fatal(err)
	}
	store, err := credstore.Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	slot := store.Slot(account.ChatBot)
	if slot.ActiveName() != "bot2" || len(slot.Accounts) != 1 {
		t.Errorf("chatBot slot = %+v, want only bot2 active", slot)
	}
}

func TestWhoamiRefusesDocumentOwnedByServer(t *testing.T) {
	path := writeFile(t, "twitch.json", testDocument)

	store, err := credstore.Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = run(t, "", "--store--file", path, "accounts", "whoami", "--role", "chatBot")
	if !errors.Is(err, credstore.ErrLocked) {
		t.Errorf("accounts whoami error = %v, want credstore.ErrLocked", err)
	}
}

func TestAccountsRequiresRole(t *testing.T) {
	path := writeFile(t, "twitch.json", testDocument)

	if _, err := run(t, "", "--store--file", path, "accounts", "list", "--role", "moderator"); err == nil {
		t.Error("unknown role expected error")
	}
}

func TestScopesCommand(t *testing.T) {
	out, err := run(t, "", "scopes", "--role", "chatBot")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "chat:read") || strings.Contains(out, "bits:read") {
		t.Errorf("scopes output = %q", out)
	}
}

func TestSecretSetWritesDocument(t *testing.T) {
	path := writeFile(t, "twitch.json", testDocument)

	if _, err := run(t, "rotated\n", "--store--file", path, "secret", "set"); err != nil {
		t.Fatalf("secret set error = %v", err)
	}

	store, err := credstore.Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if got := store.ClientSecret(); got != "rotated" {
		t.Errorf("ClientSecret() = %q, want rotated", got)
	}
}
