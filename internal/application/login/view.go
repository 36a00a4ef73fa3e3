package login

import (
	"context"

	"horizonx-console/internal/domain"
	"horizonx-console/internal/logger"
)

// FieldView is the render model of one input.
type FieldView struct {
	Name    domain.FieldID `json:"name"`
	Label   string         `json:"label"`
	Value   string         `json:"value,omitempty"`
	Error   string         `json:"error,omitempty"`
	Invalid bool           `json:"invalid"`
	Touched bool           `json:"touched"`
}

// Snapshot is everything a renderer needs to draw the login view. CanSubmit
// is false while the form is invalid or a call is in flight; the submit
// button is disabled on it.
type Snapshot struct {
	Fields      []FieldView         `json:"fields"`
	Submittable bool                `json:"submittable"`
	CanSubmit   bool                `json:"can_submit"`
	Status      domain.SubmitStatus `json:"status"`
	Failure     string              `json:"failure,omitempty"`
	RegisterURL string              `json:"register_url"`
}

func (s Snapshot) Field(id domain.FieldID) FieldView {
	for _, f := range s.Fields {
		if f.Name == id {
			return f
		}
	}
	return FieldView{Name: id, Label: id.Label()}
}

type Deps struct {
	Auth     domain.AuthClient
	Sessions domain.SessionStore
	Nav      domain.Navigator
	Log      logger.Logger
}

// View owns the form and the submit controller of one mounted login view and
// is discarded with it.
type View struct {
	form *Form
	ctrl *Controller
}

func NewView(deps Deps) *View {
	form := NewForm()
	return &View{
		form: form,
		ctrl: NewController(form, deps.Auth, deps.Sessions, deps.Nav, deps.Log),
	}
}

func (v *View) Change(id domain.FieldID, value string) error {
	return v.form.Change(id, value)
}

func (v *View) Blur(id domain.FieldID) error {
	return v.form.Blur(id)
}

// Submit gates, calls the auth API and applies the result synchronously.
func (v *View) Submit(ctx context.Context) (domain.SubmitStatus, bool) {
	return v.ctrl.Submit(ctx)
}

func (v *View) Begin() (domain.Credentials, bool) {
	return v.ctrl.Begin()
}

func (v *View) Call(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	return v.ctrl.Call(ctx, creds)
}

func (v *View) Complete(ctx context.Context, session *domain.Session, err error) domain.SubmitStatus {
	return v.ctrl.Complete(ctx, session, err)
}

func (v *View) Field(id domain.FieldID) (domain.FieldState, bool) {
	return v.form.Field(id)
}

// Snapshot renders the current state. Errors are only exposed for touched
// fields and password values never leave the form.
func (v *View) Snapshot() Snapshot {
	snap := Snapshot{
		Fields:      make([]FieldView, 0, len(domain.LoginFields)),
		Submittable: v.form.Submittable(),
		Status:      v.ctrl.Status(),
		Failure:     v.ctrl.Failure(),
		RegisterURL: domain.DestinationRegister.Path(),
	}

	snap.CanSubmit = snap.Submittable && snap.Status != domain.SubmitSubmitting

	for _, id := range domain.LoginFields {
		state, _ := v.form.Field(id)
		fv := FieldView{
			Name:    id,
			Label:   id.Label(),
			Error:   state.VisibleError(),
			Invalid: state.VisibleError() != "",
			Touched: state.Touched,
		}
		if id != domain.FieldPassword {
			fv.Value = state.Value
		}
		snap.Fields = append(snap.Fields, fv)
	}

	return snap
}
