package llmclient

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/uistate/api/schemas"
)

const planSystemPrompt = "You are a helpful assistant that creates detailed web automation plans. Always respond with valid JSON only."

const repairSystemPrompt = "You are a web automation expert that analyzes page structure and suggests correct selectors. Always respond with valid JSON only. Be precise with selectors."

const planInstructions = `You receive natural-language task requests such as:
- "How do I create a project in Linear?"
- "How do I filter a database in Notion?"
- "How do I change workspace settings in Asana?"

Generate a complete, step-by-step execution plan for performing the task in the live web
application, capturing every UI state along the way, including states without a unique URL
(modals, drawers, dropdowns, inline editors).

Return a JSON object:
{
  "app": "short lowercase app name",
  "taskName": "short-kebab-case-name",
  "description": "what the plan does",
  "startingUrl": "https://...",
  "steps": [
    {
      "description": "human readable step",
      "action": "navigate | click | type | select | wait | discover | find | extractText | conditional",
      "target": "URL, visible text (text=Label), [aria-label='Label'], name=field or CSS selector",
      "value": "text to type or option to select",
      "captureBefore": false,
      "captureAfter": true
    }
  ]
}

Rules:
1. Generalize. Infer layouts from visible text, labels, roles and ARIA attributes; never assume
   app-specific locations.
2. Use "navigate" only for the startingUrl. Navigate inside the app with discover, find and click.
3. Start with a "discover" step after the starting page loads.
4. Use the real visible UI text for click targets, e.g. "text=New issue" or "text=Create project".
5. For every field the task needs, add a "type" step with a realistic value. Use the field's
   visible label as the target (e.g. "Title", "Description", "Project name").
6. Use "select" with the field label as target and the option text as value for dropdowns.
7. Only fill optional fields (assignee, status, labels, due date, milestone) when the task
   explicitly asks for them.
8. Add "wait" steps after a modal opens, after navigation and after form submission.
9. Set captureBefore/captureAfter around meaningful state changes: opened modals, filled forms,
   submitted forms and the resulting list or detail page.
10. Exclude login steps. The user is already signed in.

Example for "How do I create an issue in Linear?":
{
  "app": "linear",
  "taskName": "create-issue",
  "description": "Create a new issue in Linear",
  "startingUrl": "https://linear.app",
  "steps": [
    {"description": "Navigate to Linear", "action": "navigate", "target": "https://linear.app", "captureAfter": true},
    {"description": "Discover available navigation", "action": "discover"},
    {"description": "Click the control to open the new-issue form", "action": "click", "target": "text=New issue", "captureAfter": true},
    {"description": "Type the title", "action": "type", "target": "Title", "value": "Bug Fix", "captureAfter": true},
    {"description": "Type the description", "action": "type", "target": "Description", "value": "Fix the bug"},
    {"description": "Submit the new issue with the Create issue button", "action": "click", "target": "text=Create issue", "captureBefore": true, "captureAfter": true},
    {"description": "Wait for the issue list to update", "action": "wait", "target": "body", "captureAfter": true}
  ]
}

The example shows the workflow shape only. Labels and selectors must match the live page.

Task: %q`

// buildPlanPrompt renders the planning instructions for task.
func buildPlanPrompt(task string) string {
	return fmt.Sprintf(planInstructions, task)
}

// buildRepairPrompt describes the failed step and the visible elements.
func buildRepairPrompt(req schemas.RepairRequest) string {
	var b strings.Builder
	action := req.Step.Action.Normalize()

	fmt.Fprintf(&b, "The current step failed:\nAction: %s\nTarget: %s\nDescription: %s\n", action, req.Step.Target, req.Step.Description)
	if req.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", req.Error)
	}
	fmt.Fprintf(&b, "\nTask goal: %s\n\nAvailable elements on the page:\n%s\n", req.Task, formatElements(req.Elements))

	fmt.Fprintf(&b, `
Find the selector among the available elements that matches the intended target. Consider
case-insensitive text matches, partial matches, aria-labels, ids and the task context.

Rules:
1. The suggested selector MUST semantically match the original target. A "Title" target only
   matches title or name fields, a "Description" target only description or body fields, an
   "Assignee" target only assignment fields.
2. Never suggest a different field type. Filling the wrong field corrupts data.
3. If no element matches, set "skip" to true and explain why in "reason".

Respond with JSON:
{
  "suggestedAction": %q,
  "target": "selector such as text=Label, [aria-label='Label'] or #id, or empty when nothing matches",
  "reason": "why this selector matches, or why nothing does",
  "confidence": "high | medium | low",
  "skip": false
}`, action)
	return b.String()
}

func formatElements(elems []schemas.ElementSummary) string {
	if len(elems) == 0 {
		return "No relevant elements found"
	}
	var b strings.Builder
	var last schemas.ElementKind
	for _, e := range elems {
		if e.Kind != last {
			fmt.Fprintf(&b, "%s:\n", kindHeading(e.Kind))
			last = e.Kind
		}
		var parts []string
		add := func(label, v string) {
			if v != "" {
				parts = append(parts, fmt.Sprintf("%s: %q", label, v))
			}
		}
		add("Text", e.Text)
		add("Aria-label", e.AriaLabel)
		add("Name", e.Name)
		add("Placeholder", e.Placeholder)
		add("ID", e.ID)
		add("Role", e.Role)
		add("Href", e.Href)
		fmt.Fprintf(&b, "  - %s\n", strings.Join(parts, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func kindHeading(k schemas.ElementKind) string {
	switch k {
	case schemas.ElementButton:
		return "Buttons"
	case schemas.ElementLink:
		return "Links"
	case schemas.ElementInput:
		return "Input fields"
	case schemas.ElementContentEditable:
		return "Contenteditable fields"
	case schemas.ElementOption:
		return "Dropdown options"
	}
	return "Elements"
}
