package testutil

import (
	"net/http"

	id "examsite/pkg/domain"
	"examsite/pkg/requestcontext"
)

// WithPrincipal attaches an authenticated caller to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithPrincipal(req *http.Request, p requestcontext.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}

// AsAdmin attaches an admin principal with the given user id.
func AsAdmin(req *http.Request, userID id.UserID) *http.Request {
	return WithPrincipal(req, requestcontext.Principal{UserID: userID, Role: "admin"})
}

// AsStaff attaches a staff principal with the given user id.
func AsStaff(req *http.Request, userID id.UserID) *http.Request {
	return WithPrincipal(req, requestcontext.Principal{UserID: userID, Role: "staff"})
}

// AsCandidate attaches a candidate session principal.
func AsCandidate(req *http.Request, candidateID id.CandidateID) *http.Request {
	return WithPrincipal(req, requestcontext.Principal{Role: "candidate", CandidateID: candidateID})
}

// AsInstitution attaches an institution principal scoped to instID.
func AsInstitution(req *http.Request, userID id.UserID, instID id.InstitutionID) *http.Request {
	return WithPrincipal(req, requestcontext.Principal{UserID: userID, Role: "institution", InstitutionID: instID})
}
