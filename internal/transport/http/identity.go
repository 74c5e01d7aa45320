package http

import "net/http"

// userHeader carries the caller identity established by the identity
// provider in front of this service. The core trusts it as given.
const userHeader = "X-User-ID"

func userFromRequest(r *http.Request) string {
	return r.Header.Get(userHeader)
}
