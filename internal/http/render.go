package http

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"budgetwatch/internal/core"
)

// pacific is used for display only; storage stays UTC.
var pacific = func() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		slog.Warn("Failed to load Pacific timezone, falling back to UTC", "error", err)
		return time.UTC
	}
	return loc
}()

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"dollars":     formatDollars,
		"dollarsBare": formatDollarsBare,
		"displayDate": formatDisplayDate,
		"isoDate":     formatISODate,
		"monthName":   func(m int) string { return time.Month(m).String() },
	}
}

// formatDollars renders cents as a dollar string, e.g. "$12.34".
func formatDollars(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := "$" + strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// formatDollarsBare renders cents without the currency sign, for form
// prefill values.
func formatDollarsBare(m core.Money) string {
	return strconv.FormatInt(m.Cents/100, 10) + "." + fmt.Sprintf("%02d", m.Cents%100)
}

// formatDisplayDate renders a timestamp as MM/DD/YYYY in US Pacific time.
func formatDisplayDate(t time.Time) string {
	return t.In(pacific).Format("01/02/2006")
}

// formatISODate renders a timestamp as YYYY-MM-DD for date inputs.
func formatISODate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// page is the data every template receives.
type page struct {
	Title string
	User  *core.User
	Flash *flash
	Data  any
}

// render executes the named template with the current user and any
// pending flash notice attached.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	p := page{
		Title: title,
		User:  currentUser(r.Context()),
		Flash: s.popFlash(w, r),
		Data:  data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, p); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseYearMonth extracts year and month from query parameters, defaulting
// to the current UTC year and month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now().UTC()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	return year, month
}
