package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hongminglow/custody-be/internal/apperr"
)

const maxResponseBytes = 4 << 20

// transportError classifies a failed round trip. Deadline errors become
// ErrDependencyTimeout, the rest ErrDependency.
func transportError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.FromContext(err, name)
	}
	return fmt.Errorf("%s: %w: %v", name, apperr.ErrDependency, err)
}

// statusError reports a non-2xx response as ErrDependency. The upstream body
// is kept for logs only.
func statusError(name string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: %w: status %d: %s", name, apperr.ErrDependency, resp.StatusCode, snippet)
}
