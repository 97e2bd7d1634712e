package graph

// NotFoundError is returned when a requested entity kind or identifier does
// not exist in the graph.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "unknown entity kind: " + string(e.Kind)
	}
	return string(e.Kind) + " not found: " + e.ID
}

// UpstreamError is returned when the graph store cannot be reached or a
// query times out. Callers treat it as recoverable by degrading context.
type UpstreamError struct {
	Op  string
	Err error
}

func (e UpstreamError) Error() string {
	return "graph store unavailable during " + e.Op + ": " + e.Err.Error()
}

func (e UpstreamError) Unwrap() error {
	return e.Err
}
