package api

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// GetSignedURL fetches a time-limited signed URL for a stored file key.
// entityType/entityID optionally scope the request for backend-side
// authorization (e.g. "post"/"42" for a post's cover image). Failures are
// wrapped in ErrResourceUnavailable: signed-URL fetches are non-fatal and
// consumers degrade to a placeholder.
//
// The signed URL itself is never logged: it embeds the authorization.
func (c *Client) GetSignedURL(ctx context.Context, key, entityType, entityID string) (string, time.Duration, error) {
	path := "/files/" + url.PathEscape(key) + "/signed-url"

	if entityType != "" {
		q := url.Values{}
		q.Set("entity_type", entityType)
		q.Set("entity_id", entityID)
		path += "?" + q.Encode()
	}

	var signed SignedURL
	if err := c.getJSON(ctx, path, &signed); err != nil {
		return "", 0, fmt.Errorf("%w: key %s: %v", ErrResourceUnavailable, key, err)
	}

	if signed.URL == "" || signed.ExpiresIn <= 0 {
		return "", 0, fmt.Errorf("%w: key %s: backend returned empty validity window", ErrResourceUnavailable, key)
	}

	return signed.URL, time.Duration(signed.ExpiresIn) * time.Second, nil
}
