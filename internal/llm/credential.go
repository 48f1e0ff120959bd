package llm

import (
	stderrors "errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// credentialMarkers are substrings providers use when rejecting an API key.
var credentialMarkers = []string{
	"API_KEY_ERROR",
	"API key",
	"Incorrect API key",
	"invalid_api_key",
}

// IsCredentialError reports whether err means the provider rejected the API key.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return true
		}
		if code, ok := apiErr.Code.(string); ok && code == "invalid_api_key" {
			return true
		}
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusUnauthorized {
		return true
	}

	msg := err.Error()
	for _, marker := range credentialMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
