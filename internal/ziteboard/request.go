package ziteboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matheuscscp/ziteboard-sessions/internal/constants"
	"github.com/matheuscscp/ziteboard-sessions/internal/logging"
)

const maxResponseSize = 1 << 20

type boardPayload struct {
	BoardID string `json:"bid"`
	Token   string `json:"token"`
}

type response struct {
	Success any           `json:"success"`
	Board   *boardPayload `json:"board"`
}

// validator returns the reason a successful response is still unusable, or
// an empty string.
type validator func(*response) string

func hasBoard(resp *response) string {
	if resp.Board == nil {
		return "response has no board"
	}
	return ""
}

func hasBoardID(resp *response) string {
	if reason := hasBoard(resp); reason != "" {
		return reason
	}
	if resp.Board.BoardID == "" {
		return "response has no board id"
	}
	return ""
}

func hasToken(resp *response) string {
	if reason := hasBoard(resp); reason != "" {
		return reason
	}
	if resp.Board.Token == "" {
		return "response has no token"
	}
	return ""
}

// request posts params form-encoded to path and returns the decoded response
// only when Ziteboard reports "success": true and every validator passes.
// Every failure is logged once.
func (c *Client) request(ctx context.Context, method, path string, params url.Values,
	validators ...validator) (*response, error) {

	t := time.Now()
	result := resultSuccess
	defer func() {
		c.requests.WithLabelValues(path, result).Inc()
		c.requestDurationSecs.WithLabelValues(path).Observe(time.Since(t).Seconds())
	}()

	l := logging.FromContext(ctx).WithField("ziteboard", logrus.Fields{
		"method": method,
		"path":   path,
	})

	statusCode, body, err := c.do(ctx, method, path, params)
	if err == nil && (statusCode < 200 || statusCode > 299) {
		err = fmt.Errorf("unexpected http status: %s", http.StatusText(statusCode))
	}
	var resp response
	if err == nil {
		if uerr := json.Unmarshal(body, &resp); uerr != nil {
			err = fmt.Errorf("failed to decode response: %w", uerr)
		}
	}
	if err != nil {
		result = resultTransportError
		l.WithError(err).
			WithField("statusCode", statusCode).
			WithField("response", string(body)).
			Error("ziteboard request failed")
		return nil, &TransportError{
			Method:     method,
			Path:       path,
			StatusCode: statusCode,
			Err:        err,
		}
	}

	if success, ok := resp.Success.(bool); !ok || !success {
		result = resultVendorError
		return nil, c.unsuccessful(l, path, "success is not true", body)
	}
	for _, validate := range validators {
		if reason := validate(&resp); reason != "" {
			result = resultVendorError
			return nil, c.unsuccessful(l, path, reason, body)
		}
	}

	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", constants.ZiteboardSessions)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) unsuccessful(l logrus.FieldLogger, path, reason string, body []byte) error {
	l.WithField("response", string(body)).Errorf("ziteboard error: %s", reason)
	return &VendorError{
		Path:     path,
		Reason:   reason,
		Response: string(body),
	}
}
