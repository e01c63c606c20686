package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	env      *ops.Env
	renderer *Renderer
}

// HandleList handles GET /mods, listing detected mods.
// ?untracked=true limits the list to untracked mods; ?refresh=true rescans.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	input := ops.DetectInput{Refresh: parseBoolParam(r, "refresh")}
	untracked := parseBoolParam(r, "untracked")

	var (
		result *ops.DetectOutput
		err    error
	)
	if untracked {
		result, err = ops.Untracked(r.Context(), h.env, input)
	} else {
		result, err = ops.Detect(r.Context(), h.env, input)
	}
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	nav, title := "all", "Mods"
	if untracked {
		nav, title = "untracked", "Untracked mods"
	}
	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   title,
			Version: h.renderer.version,
			Nav:     nav,
		},
		Root:      result.Root,
		Mods:      result.Mods,
		Untracked: untracked,
	})
}

// HandleDetail handles GET /mods/{name}: one mod and its README.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("mod name is required"))
		return
	}

	result, err := ops.Show(r.Context(), h.env, name)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   result.Descriptor.Name,
			Version: h.renderer.version,
			Nav:     "all",
		},
		Mod:        result,
		ReadmeHTML: renderMarkdown(result.Readme),
	})
}

// HandleToggle handles POST /mods/{name}/toggle.
// The form field "enabled" carries the desired state.
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("mod name is required"))
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	enabled, err := strconv.ParseBool(r.FormValue("enabled"))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("enabled must be true or false"))
		return
	}

	result, err := ops.SetEnabled(r.Context(), h.env, ops.ToggleInput{Name: name, Enabled: enabled})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: swap the toggle button only
	if r.Header.Get("HX-Request") == "true" {
		h.renderer.renderBlock(w, http.StatusOK, "detail", "toggle", ToggleData{Name: name, Enabled: result.Enabled})
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, redirectTarget(r, "/mods/"+url.PathEscape(name)), http.StatusFound)
}

// HandleUninstall handles POST /mods/{name}/uninstall for tracked mods.
// cascade=true also removes its dependents.
func (h *Handlers) HandleUninstall(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("mod name is required"))
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	result, err := ops.Uninstall(r.Context(), h.env, ops.UninstallInput{
		Name:    name,
		Cascade: r.FormValue("cascade") == "true",
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/mods")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/mods", http.StatusFound)
}

// HandleReindex handles POST /mods/reindex: prune stale records and rescan.
func (h *Handlers) HandleReindex(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Reindex(r.Context(), h.env)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/mods", http.StatusFound)
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// redirectTarget returns the form's local "next" path, or fallback.
func redirectTarget(r *http.Request, fallback string) string {
	next := r.FormValue("next")
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}
