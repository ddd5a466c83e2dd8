package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultRequestTimeout = 120 * time.Second

// maxErrorBody caps how much of an upstream error body is surfaced.
const maxErrorBody = 8 << 10

// HTTPInvoker dispatches requests to the HTTP endpoint fronting the
// hosted model.
type HTTPInvoker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPInvoker builds an invoker for the given fronting endpoint.
// A timeout of zero uses the default transport timeout.
func NewHTTPInvoker(endpoint string, timeout time.Duration) (*HTTPInvoker, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("transcription endpoint is required")
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPInvoker{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// upstreamError is the error body shape returned by the fronting service.
type upstreamError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// Transcribe implements Invoker over the fronting HTTP endpoint.
func (v *HTTPInvoker) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, failure(FailureInvalidRequest, err, "%s", err.Error())
	}

	payload := map[string]string{"audioReference": req.AudioReference}
	if hint, ok := req.LanguageGuidance(); ok {
		payload["languageHint"] = hint
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, failure(FailureInvalidRequest, err, "encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, failure(FailureInvalidRequest, err, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, failure(FailureModelUnavailable, err, "transcription endpoint unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, v.upstreamFailure(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure(FailureModelUnavailable, err, "read response: %v", err)
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Error().Str("payload", string(raw)).Msg("transcription response is not valid JSON")
		return nil, failure(FailureMalformedOutput, err, "decode response: %v", err)
	}
	if err := ValidateResult(&result); err != nil {
		log.Error().Str("payload", string(raw)).Msg("transcription response violates output contract")
		return nil, failure(FailureMalformedOutput, err, "%s", err.Error())
	}
	return &result, nil
}

// upstreamFailure turns a non-200 response into a typed error, keeping
// the service's own message verbatim for diagnostics.
func (v *HTTPInvoker) upstreamFailure(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body upstreamError
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		details := body.Details
		if body.Message != "" {
			details = strings.TrimSpace(body.Message + " " + details)
		}
		return &Error{
			Kind:    FailureUpstream,
			Message: body.Error,
			Details: details,
		}
	}

	return &Error{
		Kind:    FailureUpstream,
		Message: fmt.Sprintf("transcription endpoint returned status %d", resp.StatusCode),
		Details: strings.TrimSpace(string(raw)),
	}
}
