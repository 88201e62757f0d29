package llm

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// Classify maps a raw provider failure onto a domain error kind.
// Errors that are already classified pass through unchanged.
func Classify(ctx context.Context, provider string, err error) error {
	if err == nil {
		return nil
	}

	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return domain.NewError(domain.KindTimeout, err, "%s did not reply before the deadline", provider)
	}
	if errors.Is(err, context.Canceled) {
		return domain.NewError(domain.KindTimeout, err, "%s call abandoned", provider)
	}

	// SDK status errors: the provider answered and rejected the request.
	var oaiAPIErr *openai.APIError
	if errors.As(err, &oaiAPIErr) {
		return statusError(provider, oaiAPIErr.HTTPStatusCode, err)
	}
	var oaiReqErr *openai.RequestError
	if errors.As(err, &oaiReqErr) {
		return statusError(provider, oaiReqErr.HTTPStatusCode, err)
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return statusError(provider, antErr.StatusCode, err)
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return statusError(provider, genaiErr.Code, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewError(domain.KindTimeout, err, "%s did not reply before the deadline", provider)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return domain.NewError(domain.KindConnect, err, "%s is unreachable", provider)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.NewError(domain.KindMalformed, err, "%s returned an unreadable response", provider)
	}

	return domain.NewError(domain.KindProvider, err, "%s request failed", provider)
}

func statusError(provider string, code int, err error) error {
	switch code {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return domain.NewError(domain.KindTimeout, err, "%s timed out (status %d)", provider, code)
	default:
		return domain.NewError(domain.KindProvider, err, "%s rejected the request (status %d)", provider, code)
	}
}

func malformed(provider, what string) error {
	return domain.NewError(domain.KindMalformed, nil, "%s response is missing %s", provider, what)
}
