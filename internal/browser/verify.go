package browser

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
)

var modalSelectors = []string{
	`[role="dialog"]`,
	`.modal`,
	`[class*="Modal"]`,
	`[class*="Dialog"]`,
	`[class*="Overlay"]`,
	`.overlay`,
}

// IsModalOpen reports whether a visible dialog is on screen.
func (s *Session) IsModalOpen(ctx context.Context) bool {
	return s.anyVisible(ctx, modalSelectors[:4])
}

// OpenModalSelector returns the selector of the visible dialog, if any.
func (s *Session) OpenModalSelector(ctx context.Context) (string, bool) {
	for _, sel := range modalSelectors[:4] {
		if s.visible(ctx, sel) {
			return sel, true
		}
	}
	return "", false
}

// WaitForModal polls for a dialog or overlay until timeout. It returns
// schemas.ErrNoCandidateFound when none appeared.
func (s *Session) WaitForModal(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		for _, sel := range modalSelectors {
			if s.visible(ctx, sel) {
				s.logger.Debug("Modal detected.", zap.String("selector", sel))
				return nil
			}
		}
		if time.Now().After(deadline) {
			return schemas.ErrNoCandidateFound
		}
		if err := sleep(ctx, 200*time.Millisecond); err != nil {
			return err
		}
	}
}

// IsSubmitStep reports whether a step looks like it submits a form: a click
// whose description mentions create, submit or save together with button or form.
func IsSubmitStep(step schemas.PlanStep) bool {
	if step.Action.Normalize() != schemas.ActionClick {
		return false
	}
	desc := strings.ToLower(step.Description)
	verb := strings.Contains(desc, "create") || strings.Contains(desc, "submit") || strings.Contains(desc, "save")
	noun := strings.Contains(desc, "button") || strings.Contains(desc, "form")
	return verb && noun
}

// submitSettle is how long a submitted form gets to close its modal.
const submitSettle = 2 * time.Second

// VerifySubmission waits for a submitted form to settle and reports whether its
// modal closed. The result is advisory; a still-open modal never fails a step.
func (s *Session) VerifySubmission(ctx context.Context) bool {
	if err := sleep(ctx, submitSettle); err != nil {
		return false
	}
	closed := !s.IsModalOpen(ctx)
	if closed {
		s.logger.Info("Modal closed, submission appears successful.")
	} else {
		s.logger.Warn("Modal still open, submission may have failed.")
	}
	_ = sleep(ctx, time.Second)
	return closed
}
