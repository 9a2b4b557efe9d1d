package controllers

import (
	"net/http"

	"github.com/thriftline/thriftline-backend/api/responses"
	"github.com/thriftline/thriftline-backend/api/validators"
	dashboardsvc "github.com/thriftline/thriftline-backend/internal/dashboard"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/logger"
)

// DashboardBuyer assembles the buyer overview panels.
func DashboardBuyer(svc dashboardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		buyerID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.BuyerOverview(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

// DashboardSeller assembles the seller overview panels with optional
// listing search.
func DashboardSeller(svc dashboardsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		sellerID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		term := validators.SanitizeString(r.URL.Query().Get("term"), maxSearchTermLen)

		overview, err := svc.SellerOverview(r.Context(), sellerID, term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}
