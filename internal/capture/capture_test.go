package capture

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/api/schemas"
)

type fakePage struct {
	png        []byte
	err        error
	elementErr error
	selectors  []string
}

func (f *fakePage) Screenshot(context.Context) ([]byte, error) { return f.png, f.err }

func (f *fakePage) ElementScreenshot(_ context.Context, selector string) ([]byte, error) {
	f.selectors = append(f.selectors, selector)
	if f.elementErr != nil {
		return nil, f.elementErr
	}
	return []byte("element"), nil
}

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCapturer(t *testing.T) *Capturer {
	t.Helper()
	c := NewCapturer(zap.NewNop(), filepath.Join(t.TempDir(), "screenshots"))
	c.now = func() time.Time { return fixedTime }
	return c
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "click-the-create-issue-button", Slug("Click the 'Create issue' button!"))
	assert.Equal(t, "after-login", Slug("  --After LOGIN--  "))
	assert.Len(t, Slug("a very long description that keeps going well past the fifty character limit"), 50)
	assert.Empty(t, Slug("!!!"))
}

func TestCapturer_Capture(t *testing.T) {
	c := newTestCapturer(t)
	page := &fakePage{png: []byte("\x89PNG")}

	first, err := c.Capture(context.Background(), page, "Open the new issue form", KindBefore)
	require.NoError(t, err)
	second, err := c.Capture(context.Background(), page, "Open the new issue form", KindAfter)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Counter)
	assert.Equal(t, 2, second.Counter)
	assert.Equal(t, "before-open-the-new-issue-form", first.Name)
	assert.Equal(t, KindAfter, second.Kind)
	assert.Equal(t, fixedTime, second.Timestamp)
	assert.Equal(t, "2-after-open-the-new-issue-form-1740830400000.png", filepath.Base(second.Path))

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data)

	c.Reset()
	third, err := c.Capture(context.Background(), page, "final state", KindFinal)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Counter)
}

func TestCapturer_CaptureError(t *testing.T) {
	c := newTestCapturer(t)
	_, err := c.Capture(context.Background(), &fakePage{err: errors.New("target closed")}, "x", KindAfter)
	assert.ErrorContains(t, err, "target closed")
}

func TestCapturer_CaptureElement(t *testing.T) {
	t.Run("element", func(t *testing.T) {
		c := newTestCapturer(t)
		page := &fakePage{png: []byte("page")}

		st, err := c.CaptureElement(context.Background(), page, `[role="dialog"]`, "New issue modal")
		require.NoError(t, err)
		assert.Equal(t, KindElement, st.Kind)
		assert.Equal(t, "element-new-issue-modal", st.Name)
		assert.Equal(t, "element-1-new-issue-modal-1740830400000.png", filepath.Base(st.Path))
		assert.Equal(t, []string{`[role="dialog"]`}, page.selectors)
	})

	t.Run("falls back to full page", func(t *testing.T) {
		c := newTestCapturer(t)
		page := &fakePage{png: []byte("page"), elementErr: errors.New("no node")}

		st, err := c.CaptureElement(context.Background(), page, ".modal", "Modal")
		require.NoError(t, err)
		assert.Equal(t, KindElementFallback, st.Kind)
		data, err := os.ReadFile(st.Path)
		require.NoError(t, err)
		assert.Equal(t, "page", string(data))
	})
}

func TestDataset_Save(t *testing.T) {
	c := newTestCapturer(t)
	page := &fakePage{png: []byte("png")}
	var states []schemas.CapturedState
	for _, d := range []string{"logged-in-state", "Open form", "final-state"} {
		st, err := c.Capture(context.Background(), page, d, KindAfter)
		require.NoError(t, err)
		states = append(states, st)
	}

	root := filepath.Join(t.TempDir(), "dataset")
	ds := NewDataset(zap.NewNop(), root)
	ds.now = func() time.Time { return fixedTime }
	p := schemas.Plan{App: "linear", TaskName: "create-project", Description: "Create a project"}

	dir, err := ds.Save("How do I create a project in Linear?", p, states)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "linear", "create-project"), dir)

	for _, name := range []string{"01-after-logged-in-state.png", "02-after-open-form.png", "03-after-final-state.png"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	raw, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)
	var meta Metadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "How do I create a project in Linear?", meta.Task)
	assert.Equal(t, "create-project", meta.TaskName)
	require.Len(t, meta.States, 3)
	assert.Equal(t, 3, meta.States[2].Index)
	assert.Equal(t, "after-open-form", meta.States[1].Name)
}

func TestDataset_DirStaysUnderRoot(t *testing.T) {
	ds := NewDataset(zap.NewNop(), "dataset")
	assert.Equal(t, filepath.Join("dataset", "etc", "passwd"), ds.Dir(schemas.Plan{App: "../../etc", TaskName: "passwd"}))
	assert.Equal(t, filepath.Join("dataset", "app", "task"), ds.Dir(schemas.Plan{}))
}

func TestDataset_MissingScreenshot(t *testing.T) {
	ds := NewDataset(zap.NewNop(), t.TempDir())
	_, err := ds.Save("t", schemas.Plan{App: "a", TaskName: "b"}, []schemas.CapturedState{{Path: "/nonexistent.png", Name: "x"}})
	assert.ErrorContains(t, err, "failed to open screenshot")
}
