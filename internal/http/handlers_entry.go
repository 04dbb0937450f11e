package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"budgetwatch/internal/core"
	"budgetwatch/internal/entry"
)

func entryInputFromForm(r *http.Request) entry.Input {
	return entry.Input{
		Item:     sanitizeInput(r.Form.Get("item")),
		Category: sanitizeInput(r.Form.Get("category")),
		Price:    sanitizeInput(r.Form.Get("price")),
		Location: sanitizeInput(r.Form.Get("location")),
		Date:     sanitizeInput(r.Form.Get("date")),
	}
}

// entryInputError turns validation failures into a user-facing notice.
func entryInputError(err error) (string, bool) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return "The " + verr.Field + " " + verr.Message + ".", true
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid non-negative price.", true
	case errors.Is(err, core.ErrEmptyItem):
		return "Please enter an item.", true
	case errors.Is(err, core.ErrEmptyCategory):
		return "Please enter a category.", true
	case errors.Is(err, core.ErrEmptyLocation):
		return "Please enter a location.", true
	}
	return "", false
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "home.html", "Add Entry", nil)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	user := currentUser(r.Context())

	created, err := s.entries.Create(r.Context(), user, entryInputFromForm(r))
	if err != nil {
		if msg, ok := entryInputError(err); ok {
			s.setFlash(w, "danger", msg)
		} else {
			slog.ErrorContext(r.Context(), "Failed to create entry", "error", err, "user_id", user.ID)
			s.setFlash(w, "danger", "Something went wrong. Please try again.")
		}
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}

	s.invalidateSummary(user.ID, created.DatePosted.Year(), int(created.DatePosted.Month()))
	s.setFlash(w, "success", "Entry added!")
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// entryFromPath resolves {id} to an owned entry, writing the error
// response itself when that fails.
func (s *Server) entryFromPath(w http.ResponseWriter, r *http.Request) (*core.Entry, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	user := currentUser(r.Context())
	e, err := s.entries.Get(r.Context(), user, id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		http.NotFound(w, r)
		return nil, false
	case errors.Is(err, core.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to load entry", "error", err, "entry_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return e, true
}

func (s *Server) handleUpdateEntryForm(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entryFromPath(w, r)
	if !ok {
		return
	}
	s.render(w, r, "update.html", "Update Entry", e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entryFromPath(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	user := currentUser(r.Context())

	updated, err := s.entries.Update(r.Context(), user, e.ID, entryInputFromForm(r))
	if err != nil {
		if msg, ok := entryInputError(err); ok {
			s.setFlash(w, "danger", msg)
			http.Redirect(w, r, "/entries/"+strconv.FormatInt(e.ID, 10)+"/update", http.StatusSeeOther)
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update entry", "error", err, "entry_id", e.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Editing the date can move the entry to a different month, so both
	// the old and new summaries are stale.
	s.invalidateSummary(user.ID, e.DatePosted.Year(), int(e.DatePosted.Month()))
	s.invalidateSummary(user.ID, updated.DatePosted.Year(), int(updated.DatePosted.Month()))
	s.setFlash(w, "success", "Entry updated!")
	http.Redirect(w, r, "/summary", http.StatusSeeOther)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entryFromPath(w, r)
	if !ok {
		return
	}
	user := currentUser(r.Context())

	if err := s.entries.Delete(r.Context(), user, e.ID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete entry", "error", err, "entry_id", e.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.invalidateSummary(user.ID, e.DatePosted.Year(), int(e.DatePosted.Month()))
	s.setFlash(w, "success", "Entry deleted!")
	http.Redirect(w, r, "/summary", http.StatusSeeOther)
}
