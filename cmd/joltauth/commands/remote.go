package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/florianilch/jolt-auth/internal/account"
	"github.com/florianilch/jolt-auth/internal/app"
	"github.com/florianilch/jolt-auth/internal/server"
)

// serverClient drives the account API of a running joltauth server, which
// owns the credentials document while it runs.
type serverClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ accountStore = (*serverClient)(nil)

func newServerClient(cfg *app.Config) *serverClient {
	host := cfg.Server.Host
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = "127.0.0.1"
	}

	return &serverClient{
		baseURL:    "http://" + net.JoinHostPort(host, strconv.FormatUint(uint64(cfg.Server.Port), 10)),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *serverClient) rolePath(role account.Role) string {
	return c.baseURL + "/api/roles/" + strings.ToLower(role.String())
}

func (c *serverClient) Accounts(ctx context.Context, role account.Role) ([]accountRow, error) {
	var views []server.AccountView
	if err := c.do(ctx, http.MethodGet, c.rolePath(role)+"/accounts", nil, &views); err != nil {
		return nil, err
	}

	rows := make([]accountRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, accountRow{Name: v.Name, UserID: v.UserID, Scopes: v.Scopes, Active: v.Active})
	}
	return rows, nil
}

func (c *serverClient) SetActiveAccount(ctx context.Context, role account.Role, name string) error {
	body := server.SetActiveRequest{}
	if name != "" {
		body.Name = &name
	}
	return c.do(ctx, http.MethodPut, c.rolePath(role)+"/active", body, nil)
}

func (c *serverClient) RemoveAccount(ctx context.Context, role account.Role, name string) error {
	return c.do(ctx, http.MethodDelete, c.rolePath(role)+"/accounts/"+url.PathEscape(name), nil, nil)
}

func (c *serverClient) Close() error {
	return nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *serverClient) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reaching running server at %s: %w", c.baseURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		var e server.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e); err != nil || e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("server: %s", e.Error)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
