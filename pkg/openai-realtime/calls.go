package openairealtime

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// ExchangeSDP posts the local SDP offer to the call-setup endpoint,
// authenticated with an ephemeral secret, and returns the SDP answer.
func (c *Client) ExchangeSDP(ctx context.Context, secret, offer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.httpURL+"/calls", strings.NewReader(offer))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Content-Type", "application/sdp")
	c.setAccountHeaders(req.Header)

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", responseError(resp.StatusCode, "sdp_exchange_failed", body)
	}

	answer := string(body)
	if !strings.HasPrefix(strings.TrimSpace(answer), "v=") {
		return "", &Error{Code: "invalid_answer", Message: "call setup returned a malformed session description", HTTPStatus: resp.StatusCode}
	}
	return answer, nil
}
