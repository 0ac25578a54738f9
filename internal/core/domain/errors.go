package domain

import (
	"errors"
	"strings"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DOM errors. Every one of these is a precondition failure surfaced to the
// caller; none are retried internally.
var (
	// ErrAlreadyIngested indicates the (document, extraction run) pair already has a post
	ErrAlreadyIngested = errors.New("already ingested")

	// ErrInvalidTreeShape indicates the node tree violates the type lattice
	ErrInvalidTreeShape = errors.New("invalid tree shape")

	// ErrStructuralImmutability indicates an attempt to alter a node or its provenance
	ErrStructuralImmutability = errors.New("structural immutability violation")

	// ErrOutOfOrderAdvance indicates the target stage is not exactly one past the current stage
	ErrOutOfOrderAdvance = errors.New("out of order advance")

	// ErrDuplicateStage indicates a snapshot for the stage already exists
	ErrDuplicateStage = errors.New("duplicate stage")

	// ErrImmutableSnapshot indicates a write against a snapshot that is no longer current
	ErrImmutableSnapshot = errors.New("immutable snapshot")

	// ErrNodeNotFound indicates the node does not belong to the snapshot's post
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidDedup indicates a duplicate marking that breaks dedup preconditions
	ErrInvalidDedup = errors.New("invalid dedup")

	// ErrDedupCycle indicates a dedup chain revisits a node
	ErrDedupCycle = errors.New("dedup cycle")

	// ErrAdvanceInProgress indicates another instance holds the post's advance lock
	ErrAdvanceInProgress = errors.New("advance already in progress")
)

// DomError attaches the post, snapshot, node and stage an operation was
// working on to one of the DOM sentinel errors.
type DomError struct {
	Op         string
	PostID     string
	SnapshotID string
	NodeID     string
	Stage      LifecycleStage
	Err        error
}

// NewDomError wraps err for operation op.
func NewDomError(op string, err error) *DomError {
	return &DomError{Op: op, Err: err}
}

// Post sets the post id on the error.
func (e *DomError) Post(id string) *DomError {
	e.PostID = id
	return e
}

// Snapshot sets the snapshot id on the error.
func (e *DomError) Snapshot(id string) *DomError {
	e.SnapshotID = id
	return e
}

// Node sets the node id on the error.
func (e *DomError) Node(id string) *DomError {
	e.NodeID = id
	return e
}

// AtStage sets the attempted stage on the error.
func (e *DomError) AtStage(s LifecycleStage) *DomError {
	e.Stage = s
	return e
}

func (e *DomError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.PostID != "" {
		b.WriteString(" post=")
		b.WriteString(e.PostID)
	}
	if e.SnapshotID != "" {
		b.WriteString(" snapshot=")
		b.WriteString(e.SnapshotID)
	}
	if e.NodeID != "" {
		b.WriteString(" node=")
		b.WriteString(e.NodeID)
	}
	if e.Stage.Valid() {
		b.WriteString(" stage=")
		b.WriteString(e.Stage.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DomError) Unwrap() error {
	return e.Err
}

// AsDomError extracts the DomError from err, if any.
func AsDomError(err error) (*DomError, bool) {
	var de *DomError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var domSentinels = []error{
	ErrAlreadyIngested, ErrInvalidTreeShape, ErrStructuralImmutability,
	ErrOutOfOrderAdvance, ErrDuplicateStage, ErrImmutableSnapshot,
	ErrNodeNotFound, ErrInvalidDedup, ErrDedupCycle, ErrAdvanceInProgress,
}

// IsDomRejection reports whether err is one of the DOM precondition failures.
func IsDomRejection(err error) bool {
	for _, s := range domSentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
