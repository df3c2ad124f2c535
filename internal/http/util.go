package httpx

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/target/disclosure-collector/internal/errors"
)

// parseLimit reads the "limit" query parameter and clamps it to [1, maxLimit].
// A malformed value is a validation error rather than a silent default.
func parseLimit(r *http.Request, defLimit, maxLimit int) (int, error) {
	if maxLimit < 1 {
		maxLimit = 1
	}
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return min(defLimit, maxLimit), nil
	}
	lim, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.ValidationField("limit", "limit must be an integer")
	}
	return max(1, min(lim, maxLimit)), nil
}
