package http

import (
	"log/slog"
	"net/http"
	"strconv"
)

// summaryCacheKey scopes cached summaries per user and month.
func summaryCacheKey(userID int64, year, month int) string {
	return strconv.FormatInt(userID, 10) + "-" + strconv.Itoa(year) + "-" + strconv.Itoa(month)
}

// invalidateSummary drops the cached summary touched by an entry write.
func (s *Server) invalidateSummary(userID int64, year, month int) {
	s.summaryCache.Delete(summaryCacheKey(userID, year, month))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	year, month := parseYearMonth(r)

	key := summaryCacheKey(user.ID, year, month)
	sum, found := s.summaryCache.Get(key)
	if !found {
		var err error
		sum, err = s.summaries.Monthly(r.Context(), user, year, month)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to build summary",
				"error", err, "user_id", user.ID, "year", year, "month", month)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		s.summaryCache.Set(key, sum)
	}

	s.render(w, r, "summary.html", "Summary", sum)
}
