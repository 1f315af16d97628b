package admin

// RedirectBody is the payload for creating or updating a redirect.
type RedirectBody struct {
	Source      string `doc:"The short path segment. Generated when omitted on create." example:"docs"                    json:"source,omitempty"`
	Destination string `doc:"The absolute URL to redirect to"                            example:"https://example.com/docs" json:"destination" required:"true"`
	IsPrivate   bool   `doc:"Hide this redirect from 404 suggestions"                    json:"isPrivate,omitempty"`
}

// CreateRedirectRequest creates a new redirect.
type CreateRedirectRequest struct {
	Body RedirectBody
}

// CreateRedirectResponse reports a successful creation.
type CreateRedirectResponse struct {
	Body struct {
		Created bool   `json:"created"`
		Source  string `doc:"The short path segment, useful when it was generated" json:"source"`
	}
}

// UpdateRedirectRequest updates an existing redirect.
type UpdateRedirectRequest struct {
	Body RedirectBody
}

// UpdateRedirectResponse reports a successful update.
type UpdateRedirectResponse struct {
	Body struct {
		Updated bool `json:"updated"`
	}
}

// DeleteRedirectRequest removes an existing redirect.
type DeleteRedirectRequest struct {
	Body struct {
		Source string `doc:"The short path segment to remove" json:"source" required:"true"`
	}
}

// DeleteRedirectResponse reports a successful deletion.
type DeleteRedirectResponse struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// ListRedirectsRequest pages through the caller's redirects.
type ListRedirectsRequest struct {
	From int `default:"0"  doc:"Offset into the result set" minimum:"0" query:"from"`
	Size int `default:"10" doc:"Page size"                  minimum:"0" query:"size"`
}

// RedirectSummary is one redirect in a listing.
type RedirectSummary struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	IsPrivate   bool   `json:"isPrivate"`
	Count       int64  `json:"count"`
	Created     string `json:"created"`
}

// ListRedirectsResponse is a page of the caller's redirects.
type ListRedirectsResponse struct {
	Body struct {
		Count     int64             `doc:"Total number of redirects owned by the caller" json:"count"`
		Redirects []RedirectSummary `json:"redirects"`
	}
}

// StatusResponse reports the running application version.
type StatusResponse struct {
	Body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
}
