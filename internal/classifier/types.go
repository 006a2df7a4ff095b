package classifier

import "strings"

// Label is the verdict label returned by the classification service.
type Label string

// Labels defined by the classification contract.
const (
	LabelReal Label = "REAL"
	LabelFake Label = "FAKE"
)

// labelAI is what deployed versions of the service emit for the fake class.
const labelAI Label = "AI"

// ParseLabel normalizes a raw label. It reports false for anything outside
// the contract.
func ParseLabel(raw string) (Label, bool) {
	switch Label(strings.ToUpper(strings.TrimSpace(raw))) {
	case LabelReal:
		return LabelReal, true
	case LabelFake, labelAI:
		return LabelFake, true
	}
	return "", false
}

// Request wraps the raw bytes of one candidate image for transmission.
// It is never mutated after construction.
type Request struct {
	filename    string
	contentType string
	data        []byte
}

// NewRequest copies data so later changes by the caller cannot leak into an
// in-flight request.
func NewRequest(filename, contentType string, data []byte) *Request {
	return &Request{
		filename:    filename,
		contentType: contentType,
		data:        append([]byte(nil), data...),
	}
}

// Filename returns the display name sent with the upload.
func (r *Request) Filename() string { return r.filename }

// ContentType returns the declared mime type of the image.
func (r *Request) ContentType() string { return r.contentType }

// Size returns the payload length in bytes.
func (r *Request) Size() int { return len(r.data) }

// Response is the body of a successful POST /predict.
// Probabilities are ordered [probAI, probReal].
type Response struct {
	Label         Label     `json:"label"`
	Confidence    float64   `json:"confidence"`
	Probabilities []float64 `json:"probabilities"`
}

// Health is the body of GET /health.
type Health struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}
