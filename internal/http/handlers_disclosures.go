package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/service"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// DisclosureHandlers lists collected disclosures and issues download grants for them.
type DisclosureHandlers struct {
	Records *service.RecordStore
	Grants  *service.GrantIssuer
	Clock   data.TimeProvider
}

// DisclosureList is the response body of GET /api/disclosures.
type DisclosureList struct {
	Items     []*model.Disclosure `json:"items"`
	Count     int                 `json:"count"`
	StartDate string              `json:"start_date"`
	EndDate   string              `json:"end_date"`
}

// Download handles GET /api/disclosures/{record_id}/download?expiration=<seconds>.
func (h *DisclosureHandlers) Download(w http.ResponseWriter, r *http.Request) {
	ttl, err := service.ParseTTLSeconds(r.URL.Query().Get("expiration"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	grant, err := h.Grants.Issue(r.Context(), r.PathValue("record_id"), ttl)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, grant)
}

// List handles GET /api/disclosures?start_date&end_date&company_code&limit.
func (h *DisclosureHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := model.ParseDateRange(q.Get("start_date"), q.Get("end_date"), h.now(), 0)
	if err != nil {
		WriteError(w, r, apperrors.Validation(err.Error()))
		return
	}
	limit, err := parseLimit(r, defaultListLimit, maxListLimit)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	items, err := h.Records.ListByDateRange(r.Context(), model.DisclosureQuery{
		Range:       rng,
		CompanyCode: strings.ToUpper(strings.TrimSpace(q.Get("company_code"))),
		Limit:       limit,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if items == nil {
		items = []*model.Disclosure{}
	}

	WriteJSON(w, http.StatusOK, DisclosureList{
		Items:     items,
		Count:     len(items),
		StartDate: rng.StartKey(),
		EndDate:   rng.EndKey(),
	})
}

func (h *DisclosureHandlers) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock.Now()
}
