package terminal

import (
	"context"
	"errors"
	"fmt"

	"horizonx-console/internal/application/login"
	"horizonx-console/internal/domain"
)

var ErrAttemptsExhausted = errors.New("terminal: too many failed sign in attempts")

// Navigator remembers where the login view sent the user.
type Navigator struct {
	dest    domain.Destination
	visited bool
}

func (n *Navigator) Navigate(dest domain.Destination) {
	n.dest = dest
	n.visited = true
}

func (n *Navigator) Destination() (domain.Destination, bool) {
	return n.dest, n.visited
}

// Flow prompts for each login field, validating on every answer the way a
// blur would, and submits until the view succeeds or attempts run out.
type Flow struct {
	driver      PromptDriver
	view        *login.View
	maxAttempts int
}

func NewFlow(driver PromptDriver, view *login.View, maxAttempts int) *Flow {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Flow{
		driver:      driver,
		view:        view,
		maxAttempts: maxAttempts,
	}
}

func (f *Flow) Run(ctx context.Context) error {
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.ask(ctx); err != nil {
			return err
		}

		status, called := f.view.Submit(ctx)
		switch {
		case status == domain.SubmitSuccess:
			return nil
		case !called:
			if err := f.showErrors(ctx); err != nil {
				return err
			}
		default:
			msg := f.view.Snapshot().Failure
			if err := f.driver.Info(ctx, fmt.Sprintf("%s (attempt %d of %d)", msg, attempt, f.maxAttempts)); err != nil {
				return err
			}
		}
	}

	return ErrAttemptsExhausted
}

func (f *Flow) ask(ctx context.Context) error {
	for _, id := range domain.LoginFields {
		current, _ := f.view.Field(id)
		cfg := InputConfig{
			Message:   id.Label(),
			Validator: f.validator(id),
		}

		var (
			answer string
			err    error
		)
		if id == domain.FieldPassword {
			answer, err = f.driver.Password(ctx, cfg)
		} else {
			cfg.Default = current.Value
			answer, err = f.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}

		if err := f.view.Change(id, answer); err != nil {
			return err
		}
		if err := f.view.Blur(id); err != nil {
			return err
		}
	}
	return nil
}

// validator runs the answer through the view so the prompt shows the same
// message the form would.
func (f *Flow) validator(id domain.FieldID) func(string) error {
	return func(value string) error {
		if err := f.view.Change(id, value); err != nil {
			return err
		}
		if err := f.view.Blur(id); err != nil {
			return err
		}
		state, _ := f.view.Field(id)
		if !state.IsValid {
			return errors.New(state.Error)
		}
		return nil
	}
}

func (f *Flow) showErrors(ctx context.Context) error {
	for _, field := range f.view.Snapshot().Fields {
		if field.Error == "" {
			continue
		}
		if err := f.driver.Info(ctx, field.Error); err != nil {
			return err
		}
	}
	return nil
}
