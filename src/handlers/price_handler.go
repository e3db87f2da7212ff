package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/pricefolio/src/config"
	"github.com/username/pricefolio/src/database"
	"github.com/username/pricefolio/src/logger"
	"github.com/username/pricefolio/src/models"
	"github.com/username/pricefolio/src/services"
	"github.com/username/pricefolio/src/utils"
)

type PriceHandler struct {
	pricingService services.PricingService
}

func NewPriceHandler(service services.PricingService) *PriceHandler {
	return &PriceHandler{
		pricingService: service,
	}
}

// calculateRequest is the body of the calculate and export endpoints.
type calculateRequest struct {
	Manufacturer  string               `json:"manufacturer"`
	Series        string               `json:"series"`
	ArticleNr     string               `json:"article_nr"`
	Configuration models.Configuration `json:"configuration"`
	Date          string               `json:"date,omitempty"` // YYYY-MM-DD, empty means today
	Taxes         []models.TaxScheme   `json:"taxes,omitempty"`
}

func (h *PriceHandler) parseRequest(w http.ResponseWriter, r *http.Request) (*services.CalculationInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxRequestBytes)

	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return nil, false
	}
	if req.Manufacturer == "" || req.Series == "" || req.ArticleNr == "" {
		utils.SendJSONError(w, "manufacturer, series and article_nr are required", http.StatusBadRequest)
		return nil, false
	}

	date, err := utils.ParseQueryDate(req.Date)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	cfg := req.Configuration
	if cfg == nil {
		cfg = models.Configuration{}
	}

	return &services.CalculationInput{
		Manufacturer:  req.Manufacturer,
		Series:        req.Series,
		ArticleNr:     req.ArticleNr,
		Configuration: cfg,
		Date:          date,
		Taxes:         req.Taxes,
	}, true
}

func (h *PriceHandler) HandleCalculatePrice(w http.ResponseWriter, r *http.Request) {
	input, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	result, err := h.pricingService.Calculate(*input)
	if err != nil {
		h.sendServiceError(w, input.ArticleNr, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for price result", "article", input.ArticleNr, "error", err)
	}
}

func (h *PriceHandler) HandleExportPrice(w http.ResponseWriter, r *http.Request) {
	input, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	doc, err := h.pricingService.Export(*input)
	if err != nil {
		h.sendServiceError(w, input.ArticleNr, err)
		return
	}

	data, err := services.MarshalExportDocument(doc)
	if err != nil {
		logger.L.Error("Error marshalling export document", "article", input.ArticleNr, "error", err)
		utils.SendJSONError(w, "failed to serialize export document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *PriceHandler) HandleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	logger.L.Info("Catalog reload requested")
	if err := h.pricingService.Reload(r.Context()); err != nil {
		logger.L.Error("Catalog reload failed", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("catalog reload failed: %v", err), http.StatusInternalServerError)
		return
	}

	snap := h.pricingService.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"series_count":  snap.SeriesCount(),
		"warning_count": len(snap.Warnings()),
		"loaded_at":     snap.LoadedAt(),
	})
}

// HandleGetWarnings serves the persisted diagnostics stream, newest first,
// with ETag support so pollers avoid re-downloading an unchanged list.
func (h *PriceHandler) HandleGetWarnings(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			utils.SendJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	warnings, err := database.RecentWarnings(limit)
	if err != nil {
		logger.L.Error("Error reading warnings from diagnostics store", "error", err)
		utils.SendJSONError(w, "failed to read warnings", http.StatusInternalServerError)
		return
	}
	if warnings == nil {
		warnings = []database.StoredWarning{}
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	currentETag, etagErr := utils.GenerateETag(warnings)
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check due to ETag generation error", "error", etagErr)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(warnings); err != nil {
		logger.L.Error("Error encoding warnings response", "error", err)
	}
}

func (h *PriceHandler) sendServiceError(w http.ResponseWriter, articleNr string, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogNotLoaded):
		logger.L.Warn("Price query before catalog load", "article", articleNr)
		utils.SendJSONError(w, "catalog not loaded yet, try again later", http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrUnknownSeries):
		logger.L.Warn("Price query for unknown series", "article", articleNr, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	default:
		logger.L.Error("Internal error calculating price", "article", articleNr, "error", err)
		utils.SendJSONError(w, "an internal error occurred while calculating the price", http.StatusInternalServerError)
	}
}
