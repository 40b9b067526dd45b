package rating

// View kinds rendered by the modal.
const (
	ViewItem        = "item"
	ViewAcknowledge = "acknowledge"
	ViewDone        = "done"
	ViewExisting    = "existing"
	ViewError       = "error"
)

// ModalView is a snapshot of what the rating modal shows.
type ModalView struct {
	Visible   bool             `json:"visible"`
	Kind      string           `json:"kind,omitempty"`
	State     string           `json:"state"`
	OrderID   string           `json:"order_id,omitempty"`
	Index     int              `json:"index"`
	Total     int              `json:"total"`
	ItemID    string           `json:"item_id,omitempty"`
	ItemName  string           `json:"item_name,omitempty"`
	Price     float64          `json:"price,omitempty"`
	Image     string           `json:"image,omitempty"`
	Rating    int              `json:"rating"`
	Comment   string           `json:"comment,omitempty"`
	CanSubmit bool             `json:"can_submit"`
	Title     string           `json:"title,omitempty"`
	Message   string           `json:"message,omitempty"`
	IsError   bool             `json:"is_error,omitempty"`
	Submitted int              `json:"submitted"`
	Failed    int              `json:"failed"`
	Existing  []ExistingRating `json:"existing,omitempty"`
	Lang      string           `json:"lang"`
	Dir       string           `json:"dir"`
}

// Presenter shows or hides the modal for one tab.
type Presenter interface {
	Render(view ModalView)
	Hide()
}

type nopPresenter struct{}

func (nopPresenter) Render(ModalView) {}
func (nopPresenter) Hide()            {}
