package rating

// State is the position of a session in the rating sequence.
type State string

const (
	StateIdle          State = "idle"
	StateLoading       State = "loading"
	StatePresenting    State = "presenting"
	StateSubmitting    State = "submitting"
	StateAcknowledging State = "acknowledging"
	StateAllDone       State = "all_done"
	StateExisting      State = "existing_ratings"
	StateError         State = "error"
)

// Session is the working state of one order-rating session. The worklist is
// fixed at creation; only the index and the per-item input change.
type Session struct {
	OrderID    string
	Items      []LineItem
	Images     []string
	Index      int
	Rating     int
	Comment    string
	State      State
	MessageKey string
	IsError    bool
	Submitted  int
	Failed     int
	Existing   []ExistingRating
	Recovered  bool

	generation uint64
}

// Current returns the item under the cursor.
func (s *Session) Current() (LineItem, bool) {
	if s == nil || s.Index < 0 || s.Index >= len(s.Items) {
		return LineItem{}, false
	}
	return s.Items[s.Index], true
}

func (s *Session) currentImage() string {
	if s.Index < len(s.Images) {
		return s.Images[s.Index]
	}
	return PlaceholderImage
}

// Done reports whether every item of the worklist has been resolved.
func (s *Session) Done() bool {
	return s.Index >= len(s.Items)
}

func (s *Session) resetInput() {
	s.Rating = 0
	s.Comment = ""
	s.MessageKey = ""
	s.IsError = false
}
