package podio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/idrk/project-data-sync/internal/transform"
	"github.com/pkg/errors"
)

// maxErrorBody bounds how much of an error body ends up in an APIError.
const maxErrorBody = 512

//go:generate moq -fmt=goimports -out zz_generated_recordstore.go . RecordStore

// RecordStore creates records in a Podio app.
type RecordStore interface {
	CreateRecord(ctx context.Context, appID int64, rec *transform.Record) (int64, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	auth    *AuthOptions
	once    sync.Once
	authErr error
}

// NewClient returns a client for the Podio API. httpClient must carry the
// authentication, see Authenticate.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// NewSessionClient returns a client that authenticates with opts on its first
// call. When authentication fails every call returns the same *AuthError.
func NewSessionClient(baseURL string, opts AuthOptions) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		auth:    &opts,
	}
}

func (c *Client) session(ctx context.Context) (*http.Client, error) {
	if c.auth == nil {
		return c.httpClient, nil
	}
	c.once.Do(func() {
		c.httpClient, c.authErr = Authenticate(ctx, *c.auth)
	})
	return c.httpClient, c.authErr
}

type itemRequest struct {
	Fields map[string]any `json:"fields"`
}

type itemResponse struct {
	ItemID int64 `json:"item_id"`
}

// CreateRecord creates one item in app appID and returns its item id.
func (c *Client) CreateRecord(ctx context.Context, appID int64, rec *transform.Record) (int64, error) {
	httpClient, err := c.session(ctx)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(itemRequest{Fields: Payload(rec)})
	if err != nil {
		return 0, errors.Wrap(err, "failed to marshal item")
	}

	url := fmt.Sprintf("%s/item/app/%d/", c.baseURL, appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to call podio")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := string(bodyBytes)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return 0, &APIError{StatusCode: resp.StatusCode, Body: text}
	}

	var item itemResponse
	if err := json.Unmarshal(bodyBytes, &item); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return item.ItemID, nil
}

// Payload converts record fields to the values the item API expects.
func Payload(rec *transform.Record) map[string]any {
	fields := make(map[string]any, len(rec.Fields))
	for _, f := range rec.Fields {
		fields[f.ID] = fieldValue(f.Value)
	}
	return fields
}

func fieldValue(v any) any {
	switch val := v.(type) {
	case transform.HTML:
		return string(val)
	case transform.Category:
		return val.ID
	case transform.Email:
		return []map[string]string{{"type": val.Type, "value": val.Value}}
	case transform.Link:
		return map[string]string{"url": val.URL}
	default:
		return val
	}
}
