// Package upload owns the analysis workflow for one user: selecting and
// validating an image, submitting it to the classifier and holding the
// outcome until it is handed to the result view.
package upload

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/anvishah1/ForReal/internal/classifier"
	"github.com/anvishah1/ForReal/internal/logging"
	"github.com/anvishah1/ForReal/internal/verdict"
)

// State is a step of the upload lifecycle.
type State string

// Upload lifecycle states.
const (
	StateEmpty      State = "empty"
	StateValidating State = "validating"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Classifier is the subset of the classification client used by a session.
type Classifier interface {
	Classify(ctx context.Context, req *classifier.Request) (*classifier.Response, error)
}

// Bundle is what the result view receives after a successful analysis.
type Bundle struct {
	Result       verdict.Result `json:"result"`
	ImagePreview string         `json:"image_preview"`
	Filename     string         `json:"filename"`
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	State       State   `json:"state"`
	Filename    string  `json:"filename,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	Size        int64   `json:"size,omitempty"`
	SizeLabel   string  `json:"size_label,omitempty"`
	Preview     string  `json:"preview,omitempty"`
	Error       string  `json:"error,omitempty"`
	Result      *Bundle `json:"result,omitempty"`
}

// Loading reports whether a classification request is in flight.
func (s Snapshot) Loading() bool {
	return s.State == StateSubmitting
}

// Session sequences validation, submission and result for a single
// candidate file. At most one classification request is in flight; the lock
// is not held during the call, the Submitting state blocks re-entry.
type Session struct {
	id         string
	classifier Classifier
	logger     *zap.Logger

	mu         sync.Mutex
	state      State
	settled    State
	generation uint64
	file       *File
	preview    string
	errMsg     string
	bundle     *Bundle
}

// NewSession creates an empty session.
func NewSession(id string, c Classifier, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:         id,
		classifier: c,
		logger:     logger.Named("upload_session"),
		state:      StateEmpty,
		settled:    StateEmpty,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Select validates f and, when accepted, makes it the candidate for
// submission. A rejected file leaves the previous selection in place and
// replaces the error message. Selecting while a submission is in flight
// returns ErrInvalidTransition.
func (s *Session) Select(f *File) (Outcome, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return Outcome{}, ErrInvalidTransition
	}
	if s.state != StateValidating {
		s.settled = s.state
	}
	s.state = StateValidating
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	outcome := Validate(f)

	s.mu.Lock()
	defer s.mu.Unlock()

	// cleared or reselected meanwhile; the newer action wins
	if gen != s.generation {
		return outcome, ErrSuperseded
	}

	opLogger := logging.WithOperation(s.logger, "upload.select", s.id)
	if !outcome.Accepted() {
		s.state = s.settled
		s.errMsg = outcome.Rejection.Message()
		opLogger.Info("file rejected",
			zap.String("reason", string(outcome.Rejection)),
			zap.String("content_type", contentTypeOf(f)))
		return outcome, nil
	}

	s.file = outcome.File
	s.preview = outcome.Preview
	s.errMsg = ""
	s.bundle = nil
	s.state = StateReady
	opLogger.Debug("file selected",
		zap.String("filename", f.Name),
		zap.Int64("size", f.Size),
		zap.String("content_type", f.ContentType))
	return outcome, nil
}

// Submit sends the selected file to the classifier. It is allowed from Ready
// and from Failed, which keeps the file so the user can retry. In any other
// state it does nothing and returns ErrInvalidTransition.
func (s *Session) Submit(ctx context.Context) (Bundle, error) {
	s.mu.Lock()
	if s.state != StateReady && s.state != StateFailed {
		state := s.state
		s.mu.Unlock()
		s.logger.Debug("submit ignored", zap.String("session_id", s.id), zap.String("state", string(state)))
		return Bundle{}, ErrInvalidTransition
	}
	file, preview := s.file, s.preview
	s.state = StateSubmitting
	s.errMsg = ""
	s.mu.Unlock()

	opLogger := logging.WithOperation(s.logger, "upload.submit", s.id)
	result, err := s.classify(ctx, file)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = StateFailed
		s.errMsg = classifier.UserMessage(err)
		wrapped := logging.NewOperationError("upload.submit", s.id, err)
		opLogger.Warn("classification failed",
			zap.Error(wrapped),
			zap.String("kind", string(classifier.KindOf(err))))
		return Bundle{}, wrapped
	}

	bundle := Bundle{
		Result:       result,
		ImagePreview: preview,
		Filename:     file.Name,
	}
	s.bundle = &bundle
	s.state = StateSucceeded
	opLogger.Info("classification succeeded",
		zap.String("filename", file.Name),
		zap.String("label", string(result.Label)),
		zap.Float64("confidence", result.ConfidencePercent))
	return bundle, nil
}

func (s *Session) classify(ctx context.Context, file *File) (verdict.Result, error) {
	resp, err := s.classifier.Classify(ctx, classifier.NewRequest(file.Name, file.ContentType, file.Bytes()))
	if err != nil {
		return verdict.Result{}, err
	}
	return verdict.FromResponse(resp)
}

// Handoff releases the successful result to the caller and resets the
// session, the way navigating to the result view discards the upload form.
func (s *Session) Handoff() (Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSucceeded || s.bundle == nil {
		return Bundle{}, ErrInvalidTransition
	}
	bundle := *s.bundle
	s.reset()
	return bundle, nil
}

// Reject records a rejection decided before a File could be built, such as
// an upload body cut off at the transport limit. Like a rejected Select, it
// keeps the previous selection and replaces the error message.
func (s *Session) Reject(reason Reason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrInvalidTransition
	}
	if s.state == StateValidating {
		s.state = s.settled
	}
	s.generation++
	s.errMsg = reason.Message()
	logging.WithOperation(s.logger, "upload.reject", s.id).Info("upload rejected",
		zap.String("reason", string(reason)))
	return nil
}

// Fail moves a succeeded session to Failed with message, keeping the file so
// it can be submitted again. It is used when the result could not be handed
// to the result view.
func (s *Session) Fail(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSucceeded {
		return ErrInvalidTransition
	}
	s.state = StateFailed
	s.errMsg = message
	s.bundle = nil
	return nil
}

// Clear discards the file, preview, error and result. It is refused while a
// submission is in flight.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrInvalidTransition
	}
	s.reset()
	return nil
}

func (s *Session) reset() {
	s.generation++
	s.state = StateEmpty
	s.settled = StateEmpty
	s.file = nil
	s.preview = ""
	s.errMsg = ""
	s.bundle = nil
}

// Snapshot returns the current state for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:   s.state,
		Preview: s.preview,
		Error:   s.errMsg,
	}
	if s.file != nil {
		snap.Filename = s.file.Name
		snap.ContentType = s.file.ContentType
		snap.Size = s.file.Size
		snap.SizeLabel = s.file.SizeLabel()
	}
	if s.bundle != nil {
		bundle := *s.bundle
		snap.Result = &bundle
	}
	return snap
}

func contentTypeOf(f *File) string {
	if f == nil {
		return ""
	}
	return f.ContentType
}
