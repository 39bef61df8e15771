package web

import (
	_ "embed"
	"html"

	"github.com/rohanthewiz/element"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"

	"microwin/db"
	"microwin/prompts"
)

//go:embed assets/js/microwin.js
var uiJS string

//go:embed assets/css/microwin.css
var uiCSS string

// UIHandler serves the single micro-step page
func (h *TaskHandlers) UIHandler(c rweb.Context) error {
	paused, err := h.svc.Tasks(db.StatusPaused)
	if err != nil {
		logger.LogErr(err, "Failed to list paused tasks for page")
		paused = nil
	}
	return c.WriteHTML(generateMainUI(paused))
}

// PausedTasks renders the list of tasks waiting to be resumed
type PausedTasks struct {
	Tasks []*db.Task
}

// Render implements the element.Component interface
func (p PausedTasks) Render(b *element.Builder) (x any) {
	b.Div("class", "card").R(
		b.H3().T("Paused"),
		func() any {
			if len(p.Tasks) == 0 {
				b.P("class", "empty-state").T("Nothing paused.")
				return nil
			}
			element.ForEach(p.Tasks, func(t *db.Task) {
				// element writes text and attribute values verbatim
				b.Div("class", "task-item").R(
					b.Span().T(html.EscapeString(t.OriginalGoal)),
					b.Button("class", "btn-secondary", "data-resume", html.EscapeString(t.ID)).T("Resume"),
				)
			})
			return nil
		}(),
	)
	return
}

func generateMainUI(paused []*db.Task) string {
	b := element.NewBuilder()

	b.Html().R(
		b.Head().R(
			b.Title().T("MicroWin"),
			b.Meta("charset", "UTF-8"),
			b.Meta("name", "viewport", "content", "width=device-width, initial-scale=1.0"),
			b.Style().T(uiCSS),
		),
		b.Body().R(
			b.Div("id", "app").R(
				b.Header().R(
					b.H1().T("MicroWin"),
					b.P().T("One tiny step at a time."),
				),
				// Goal entry
				b.Div("id", "start-card", "class", "card").R(
					b.Label("for", "goal").T("What do you want to get done?"),
					b.TextArea("id", "goal", "rows", "2", "maxlength", "500").R(),
					b.Label("for", "energy").T("Energy right now"),
					b.Select("id", "energy").R(
						element.ForEach(prompts.EnergyLevels, func(level string) {
							if level == prompts.EnergyMedium {
								b.Option("value", level, "selected", "selected").T(level)
							} else {
								b.Option("value", level).T(level)
							}
						}),
					),
					b.Button("id", "start-btn", "class", "btn-primary").T("Give me a first step"),
				),
				// Current step
				b.Div("id", "step-card", "class", "card hidden").R(
					b.Div("id", "step-text", "class", "step-text").R(),
					b.Div("id", "step-meta", "class", "step-meta").R(),
					b.Div("class", "actions").R(
						b.Button("id", "done-btn", "class", "btn-primary").T("Done"),
						b.Button("id", "hard-btn", "class", "btn-warn").T("Too hard"),
						b.Button("id", "pause-btn", "class", "btn-secondary").T("Pause"),
						b.Button("id", "finish-btn", "class", "btn-secondary").T("Finished"),
					),
				),
				b.Div("id", "error", "class", "error").R(),
				func() any {
					element.RenderComponents(b, PausedTasks{Tasks: paused})
					return nil
				}(),
			),
			b.Script().T(uiJS),
		),
	)

	return b.String()
}
