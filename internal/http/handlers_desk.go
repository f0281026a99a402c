package http

import (
	"bytes"
	"net/http"

	"golang.org/x/text/language"

	"feedesk/internal/core"
	"feedesk/internal/log"
	"feedesk/internal/session"
	"feedesk/internal/view"
)

// pageData is what index.html and the desk partials render.
type pageData struct {
	Locale     string
	T          map[string]string
	Flash      *view.Notification
	Tabs       []view.Tab
	Totals     core.Table
	Search     core.Table
	LastSearch core.SearchQuery
}

func (s *Server) pageData(snap view.Snapshot, flash *view.Notification) pageData {
	return pageData{
		Locale:     snap.Locale,
		T:          s.catalog.Printer(language.Make(snap.Locale)).Labels(),
		Flash:      flash,
		Tabs:       snap.Tabs,
		Totals:     snap.Totals,
		Search:     snap.Search,
		LastSearch: snap.LastSearch,
	}
}

// open resolves the session and writes its cookie. The cookie must be set
// before anything else is written.
func (s *Server) open(w http.ResponseWriter, r *http.Request) *session.Handle {
	h := s.sessions.Open(r)
	if err := h.Save(w, r); err != nil {
		s.logger.WarnContext(r.Context(), "Failed to save session cookie",
			log.FieldSessionID, h.ID,
			log.FieldError, err.Error())
	}
	return h
}

// render executes name into a buffer so a template failure never leaves a
// half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any, resp *HTMXResponseBuilder) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err.Error())
		InternalServerError("Failed to render page").Write(w)
		return
	}
	if resp == nil {
		resp = NewHTMXResponse()
	}
	resp.BodyHTML(buf.Bytes()).Write(w)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, c *view.Controller, flash *view.Notification) {
	s.render(w, r, "index.html", s.pageData(c.Snapshot(), flash), nil)
}

// handleIndex renders the full page. Loading the page refreshes the totals
// table; a failed refresh renders whatever the table held before.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}
	h := s.open(w, r)
	_ = h.Controller.RefreshTotals(r.Context())
	s.renderPage(w, r, h.Controller, nil)
}

// handleShowTab shows one tab and hides the others. Only known tabs are
// remembered in the session cookie.
func (s *Server) handleShowTab(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	tab := sanitizeInput(r.PathValue("tab"))

	h := s.sessions.Open(r)
	h.Controller.ShowTab(tab)
	if h.Controller.HasTab(tab) {
		h.SetTab(tab)
	}
	if err := h.Save(w, r); err != nil {
		s.logger.WarnContext(r.Context(), "Failed to save session cookie",
			log.FieldSessionID, h.ID,
			log.FieldError, err.Error())
	}

	if !isHTMX(r) {
		s.renderPage(w, r, h.Controller, nil)
		return
	}
	s.render(w, r, "desk", s.pageData(h.Controller.Snapshot(), nil),
		NewHTMXResponse().TriggerTabChanged(tab))
}

// handleTotals refreshes and returns the totals table.
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	h := s.open(w, r)
	_ = h.Controller.RefreshTotals(r.Context())
	s.render(w, r, "table", h.Controller.Snapshot().Totals, nil)
}

// handleAddMember submits the add form. The outcome is always a 200 carrying
// the notification; htmx shows it through the show-notification event.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	name, err := ParseAddForm(r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}
	h := s.open(w, r)
	s.writeOutcome(w, r, h.Controller, h.Controller.SubmitAdd(r.Context(), name))
}

// handleUpdateMember submits the modify form.
func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	id, name, err := ParseModifyForm(r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}
	h := s.open(w, r)
	s.writeOutcome(w, r, h.Controller, h.Controller.SubmitUpdate(r.Context(), id, name))
}

// handleSearch runs a transaction search and returns the results table.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	q, err := ParseSearchForm(r)
	if err != nil {
		s.badForm(w, r, err)
		return
	}
	h := s.open(w, r)
	_ = h.Controller.SubmitSearch(r.Context(), q)

	if !isHTMX(r) {
		s.renderPage(w, r, h.Controller, nil)
		return
	}
	s.render(w, r, "table", h.Controller.Snapshot().Search, nil)
}

func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, c *view.Controller, n view.Notification) {
	if !isHTMX(r) {
		s.renderPage(w, r, c, &n)
		return
	}
	NewHTMXResponse().TriggerOutcome(n).Write(w)
}

func (s *Server) badForm(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WarnContext(r.Context(), "Invalid form submission",
		log.FieldPath, r.URL.Path,
		log.FieldErrorKind, log.ErrorTypeValidation,
		log.FieldError, err.Error())
	BadRequestError("Invalid request format").Write(w)
}
