package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"noisepay/internal/domain"
)

// HTTP is a DirectoryService backed by a directory server.
type HTTP struct {
	Base string
	HTTP *http.Client
}

func NewHTTP(base string) *HTTP {
	return &HTTP{Base: strings.TrimSuffix(base, "/"), HTTP: http.DefaultClient}
}

var _ domain.DirectoryService = (*HTTP)(nil)

// Publish uploads a signed record.
func (c *HTTP) Publish(ctx context.Context, rec domain.EndpointRecord) error {
	if _, err := VerifyRecord(rec); err != nil {
		return err
	}
	return c.post(ctx, "/endpoints", rec)
}

// ResolveEndpoint fetches and verifies payee's record for method. A missing
// record is reported as ok=false with a nil error.
func (c *HTTP) ResolveEndpoint(
	ctx context.Context,
	payee domain.PublicKey,
	method domain.MethodID,
) (domain.EndpointLocator, bool, error) {
	path := "/endpoints/" + url.PathEscape(string(payee)) + "/" + url.PathEscape(string(method))
	var rec domain.EndpointRecord
	found, err := c.getJSON(ctx, path, &rec)
	if err != nil || !found {
		return domain.EndpointLocator{}, false, err
	}
	if rec.PublicKey != payee || rec.MethodID != method {
		return domain.EndpointLocator{}, false, fmt.Errorf("%w: record is for %s/%s", ErrBadRecord, rec.PublicKey.Short(), rec.MethodID)
	}
	loc, err := VerifyRecord(rec)
	if err != nil {
		return domain.EndpointLocator{}, false, err
	}
	return loc, true, nil
}

func (c *HTTP) post(ctx context.Context, path string, in any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: directory post %s: %w", domain.ErrTransport, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("directory post %s: %s", path, resp.Status)
	}
	return nil
}

func (c *HTTP) getJSON(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: directory get %s: %w", domain.ErrTransport, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode/100 != 2 {
		return false, fmt.Errorf("directory get %s: %s", path, resp.Status)
	}
	return true, json.NewDecoder(resp.Body).Decode(out)
}
