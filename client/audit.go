package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// AuditService handles audit log operations.
type AuditService struct {
	c *Client
}

// auditQueryResponse wraps the paginated audit query response.
type auditQueryResponse struct {
	Data    []AuditEntry `json:"data"`
	HasMore bool         `json:"has_more"`
}

// Query returns audit log entries matching the given options.
func (s *AuditService) Query(ctx context.Context, opts *AuditQueryOptions) ([]AuditEntry, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.Action != "" {
			params.Set("action", opts.Action)
		}
		if opts.Actor != "" {
			params.Set("actor", opts.Actor)
		}
		if opts.Since != nil {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp auditQueryResponse
	if err := s.c.get(ctx, "/api/v1/audit", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Data, resp.HasMore, nil
}
