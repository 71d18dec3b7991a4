package entity

type Detection struct {
	Box        [4]float64 `json:"box"`
	Label      string     `json:"label" validate:"required"`
	Confidence float64    `json:"confidence" validate:"gte=0,lte=1"`
}

func (d Detection) X1() float64 { return d.Box[0] }
func (d Detection) Y1() float64 { return d.Box[1] }
func (d Detection) X2() float64 { return d.Box[2] }
func (d Detection) Y2() float64 { return d.Box[3] }

type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d ImageDimensions) IsZero() bool {
	return d.Width <= 0 || d.Height <= 0
}

// ViewState is everything a viewer sees for its current image. It is replaced
// wholesale on every drop.
type ViewState struct {
	Predictions []Detection     `json:"predictions"`
	PreviewURL  *string         `json:"preview_url"`
	Loading     bool            `json:"loading"`
	Error       *string         `json:"error"`
	ImageSize   ImageDimensions `json:"image_size"`
	RequestID   uint64          `json:"request_id"`
}

func NewViewState() ViewState {
	return ViewState{Predictions: []Detection{}}
}

// Clone returns a copy that shares no mutable memory with s.
func (s ViewState) Clone() ViewState {
	out := s
	out.Predictions = make([]Detection, len(s.Predictions))
	copy(out.Predictions, s.Predictions)
	if s.PreviewURL != nil {
		url := *s.PreviewURL
		out.PreviewURL = &url
	}
	if s.Error != nil {
		msg := *s.Error
		out.Error = &msg
	}
	return out
}

type ViewPhase string

const (
	PhaseIdle    ViewPhase = "IDLE"
	PhaseLoading ViewPhase = "LOADING"
	PhaseSuccess ViewPhase = "SUCCESS"
	PhaseError   ViewPhase = "ERROR"
)

func (s ViewState) Phase() ViewPhase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Error != nil:
		return PhaseError
	case s.PreviewURL != nil:
		return PhaseSuccess
	default:
		return PhaseIdle
	}
}
