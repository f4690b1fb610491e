package repository

import (
	"fmt"
	"wc3stats/internal/domain"
)

// storageErr tags backing-store failures so callers can match them with
// errors.Is and retry with backoff.
func storageErr(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}
