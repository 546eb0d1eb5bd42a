package qualtrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	apiTokenHeader        = "X-API-TOKEN"
	exportFormat          = "json"
	defaultRequestTimeout = 60 * time.Second
	// maxErrorBody bounds how much of an error body ends up in an APIError.
	maxErrorBody = 512
)

// Client talks to the Qualtrics v3 response export API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type exportRequest struct {
	SurveyID  string `json:"surveyId"`
	Format    string `json:"format"`
	StartDate string `json:"startDate,omitempty"`
}

type exportEnvelope struct {
	Result struct {
		ID              string  `json:"id"`
		PercentComplete float64 `json:"percentComplete"`
		Status          string  `json:"status"`
		File            string  `json:"file"`
	} `json:"result"`
}

// CreateExport asks Qualtrics to materialize the responses of a survey.
// When since is set only responses recorded on or after it are exported.
func (c *Client) CreateExport(ctx context.Context, surveyID string, since *time.Time) (*ExportHandle, error) {
	req := exportRequest{SurveyID: surveyID, Format: exportFormat}
	if since != nil {
		req.StartDate = since.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal export request")
	}

	var envelope exportEnvelope
	if err := c.doJSON(ctx, "create export", http.MethodPost, c.baseURL+"/responseexports", body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Result.ID == "" {
		return nil, fmt.Errorf("create export: %w: missing export id", ErrMalformedResponse)
	}

	return &ExportHandle{
		SurveyID:  surveyID,
		ExportID:  envelope.Result.ID,
		StatusURL: fmt.Sprintf("%s/responseexports/%s", c.baseURL, envelope.Result.ID),
	}, nil
}

// ExportStatus reads the progress of an export job.
func (c *Client) ExportStatus(ctx context.Context, statusURL string) (*ExportStatus, error) {
	var envelope exportEnvelope
	if err := c.doJSON(ctx, "export status", http.MethodGet, statusURL, nil, &envelope); err != nil {
		return nil, err
	}
	return &ExportStatus{
		PercentComplete: envelope.Result.PercentComplete,
		Status:          envelope.Result.Status,
		FileURL:         envelope.Result.File,
	}, nil
}

// Download fetches the archive of a completed export.
func (c *Client) Download(ctx context.Context, fileURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to download export")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read export archive")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError("download export", resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, url string, body []byte, out any) error {
	resp, err := c.do(ctx, method, url, body)
	if err != nil {
		return errors.Wrapf(err, "failed to call qualtrics (%s)", op)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read response body (%s)", op)
	}
	if resp.StatusCode != http.StatusOK {
		return newAPIError(op, resp.StatusCode, bodyBytes)
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiTokenHeader, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func newAPIError(op string, status int, body []byte) *APIError {
	text := string(body)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &APIError{Op: op, StatusCode: status, Body: text}
}
