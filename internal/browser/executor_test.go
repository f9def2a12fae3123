package browser

import (
	"os"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uistate/api/schemas"
)

const issueForm = `
<button id="create-more-toggle" onclick="this.dataset.clicked='1'">Create more</button>
<div role="dialog">
  <form onsubmit="return false">
    <input aria-label="Issue title" id="title">
    <textarea aria-label="Description"></textarea>
    <label for="prio">Priority</label>
    <select id="prio" name="priority"><option value="low">Low</option><option value="high">High</option></select>
    <button type="submit" onclick="this.dataset.clicked='1'">Create issue</button>
  </form>
</div>`

func evalString(t *testing.T, s *Session, expr string) string {
	t.Helper()
	var out string
	require.NoError(t, chromedp.Run(s.Context(), chromedp.Evaluate(expr, &out)))
	return out
}

func TestSession_ClickNeverPicksToggle(t *testing.T) {
	s, ctx := newTestSession(t, issueForm)

	require.NoError(t, s.Click(ctx, "text=Create more"))

	assert.Equal(t, "1", evalString(t, s, `document.querySelector('button[type=submit]').dataset.clicked || ''`))
	assert.Equal(t, "", evalString(t, s, `document.getElementById('create-more-toggle').dataset.clicked || ''`))
}

func TestSession_ClickUnresolvedWritesDebugDump(t *testing.T) {
	s, ctx := newTestSession(t, issueForm)

	err := s.Click(ctx, "text=Archive workspace")

	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrAmbiguousNoResolution)
	entries, readErr := os.ReadDir(s.debugDir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1)
}

func TestSession_TypeIntoModalField(t *testing.T) {
	s, ctx := newTestSession(t, issueForm)

	require.NoError(t, s.Type(ctx, "Title", "Fix login"))

	assert.Equal(t, "Fix login", evalString(t, s, `document.getElementById('title').value`))
}

func TestSession_SelectNative(t *testing.T) {
	s, ctx := newTestSession(t, issueForm)

	require.NoError(t, s.Select(ctx, "Priority", "high"))

	assert.Equal(t, "high", evalString(t, s, `document.getElementById('prio').value`))
}

func TestSession_ConditionalAbsentIsNoop(t *testing.T) {
	s, ctx := newTestSession(t, issueForm)
	assert.NoError(t, s.Conditional(ctx, "text=Dismiss banner"))
}

func TestSession_ExecuteStepWaitNeverFails(t *testing.T) {
	s, ctx := newTestSession(t, issueForm)
	assert.NoError(t, s.ExecuteStep(ctx, schemas.PlanStep{Action: schemas.ActionWait, Target: "Nothing like this"}))
	assert.NoError(t, s.ExecuteStep(ctx, schemas.PlanStep{Action: schemas.ActionWait, Target: "body"}))
}

func TestSession_CatalogAndModal(t *testing.T) {
	s, ctx := newTestSession(t, issueForm)

	assert.True(t, s.IsModalOpen(ctx))

	elems, err := s.Catalog(ctx, schemas.ActionType)
	require.NoError(t, err)
	var labels []string
	for _, e := range elems {
		labels = append(labels, e.AriaLabel)
	}
	assert.ElementsMatch(t, []string{"Issue title", "Description"}, labels)
}

func TestSession_Screenshot(t *testing.T) {
	s, ctx := newTestSession(t, issueForm)

	png, err := s.Screenshot(ctx)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

const labelledForm = `
<form onsubmit="return false">
  <label for="project-name">Project name</label>
  <input id="project-name" name="p1">
  <span id="lead-caption">Project lead</span>
  <input id="lead" aria-labelledby="lead-caption">
  <input id="summary" placeholder="Project summary">
</form>`

func TestSession_TypeResolvesLabelForInput(t *testing.T) {
	s, ctx := newTestSession(t, labelledForm)

	require.NoError(t, s.Type(ctx, "Project name", "Roadmap"))

	assert.Equal(t, "Roadmap", evalString(t, s, `document.getElementById('project-name').value`))
	assert.Equal(t, "", evalString(t, s, `document.getElementById('summary').value`))
}

func TestSession_ExtractAccessibleLabels(t *testing.T) {
	s, ctx := newTestSession(t, labelledForm)

	labels := map[string]string{}
	for _, c := range s.Extract(ctx, PoolFillable) {
		labels[c.Identifier] = c.AccessibleLabel
	}
	assert.Equal(t, "Project name", labels["project-name"])
	assert.Equal(t, "Project lead", labels["lead"])
	assert.Equal(t, "", labels["summary"])
}

func TestSession_ExtractClassStyledModalCountsAsDialog(t *testing.T) {
	s, ctx := newTestSession(t, `<div class="IssueModal"><button>Save draft</button></div><button>Outside</button>`)

	inDialog := map[string]bool{}
	for _, c := range s.Extract(ctx, PoolClickable) {
		inDialog[c.VisibleText] = c.InFormOrDialog
	}
	assert.True(t, inDialog["Save draft"])
	assert.False(t, inDialog["Outside"])
}

func TestSession_TypeOnPlainFormDoesNotWaitForModal(t *testing.T) {
	s, ctx := newTestSession(t, labelledForm)

	start := time.Now()
	require.NoError(t, s.Type(ctx, "Project summary", "Q3 plan"))

	assert.Less(t, time.Since(start), modalGrace)
	assert.Equal(t, "Q3 plan", evalString(t, s, `document.getElementById('summary').value`))
}

func TestSession_TypeWaitsForLateModal(t *testing.T) {
	s, ctx := newTestSession(t, `<div id="host"></div>
<script>
setTimeout(function () {
  document.getElementById('host').innerHTML = '<div role="dialog"><input aria-label="Issue title" id="late"></div>';
}, 400);
</script>`)

	require.NoError(t, s.Type(ctx, "Issue title", "Crash on save"))

	assert.Equal(t, "Crash on save", evalString(t, s, `document.getElementById('late').value`))
}
