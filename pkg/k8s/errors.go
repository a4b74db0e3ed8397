package k8s

import "errors"

// Sentinel errors forming the resolver's error taxonomy. classifyErr wraps
// client-go errors with one of these so callers can branch with
// errors.Is; the Resolver treats RootFetchFailure as fatal to the whole
// request and RelationLookupFailure as swallowed-and-logged.
var (
	errNotFound  = errors.New("resource not found")
	errForbidden = errors.New("forbidden")
	errTransport = errors.New("transport error")
)

// RootFetchFailure indicates the primary resource named in the request
// could not be retrieved at all. The caller returns this to the client
// instead of a partial graph.
type RootFetchFailure struct {
	Kind      ResourceKind
	Name      string
	Namespace string
	Err       error
}

func (e *RootFetchFailure) Error() string {
	return "fetching root " + string(e.Kind) + " " + e.Namespace + "/" + e.Name + ": " + e.Err.Error()
}

func (e *RootFetchFailure) Unwrap() error { return e.Err }

// RelationLookupFailure indicates a single expansion rule failed (e.g.
// listing Services for a selector match errored). The rule that produced
// it is skipped; every other rule still contributes to the graph.
type RelationLookupFailure struct {
	Rule string
	Err  error
}

func (e *RelationLookupFailure) Error() string {
	return "relation lookup (" + e.Rule + "): " + e.Err.Error()
}

func (e *RelationLookupFailure) Unwrap() error { return e.Err }

// MalformedReference indicates a field that should have pointed at
// another object was present but not shaped as expected (wrong type,
// missing required subfield). The single reference is skipped.
type MalformedReference struct {
	Rule   string
	Detail string
}

func (e *MalformedReference) Error() string {
	return "malformed reference (" + e.Rule + "): " + e.Detail
}
