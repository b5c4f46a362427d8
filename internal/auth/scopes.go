package auth

// OAuth scopes accepted by the adherence service.
const (
	ScopeAdherenceWrite = "adherence:write"
	ScopeAdherenceRead  = "adherence:read"
)
