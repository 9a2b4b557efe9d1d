package controllers

import (
	"net/http"
	"strings"

	"github.com/thriftline/thriftline-backend/api/responses"
	"github.com/thriftline/thriftline-backend/api/validators"
	productsvc "github.com/thriftline/thriftline-backend/internal/products"
	pkgerrors "github.com/thriftline/thriftline-backend/pkg/errors"
	"github.com/thriftline/thriftline-backend/pkg/logger"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxSearchTermLen = 120
)

// ProductsList serves the public approved catalog with optional filters.
func ProductsList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultPageLimit, 1, maxPageLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := productsvc.ListApprovedInput{
			Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
			Limit:    limit,
			Category: validators.SanitizeString(r.URL.Query().Get("category"), 80),
			Size:     validators.SanitizeString(r.URL.Query().Get("size"), 40),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("min_price_cents")); raw != "" {
			value, err := validators.ParseQueryInt(r, "min_price_cents", 0, 0, 1<<30)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.MinPriceCents = &value
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("max_price_cents")); raw != "" {
			value, err := validators.ParseQueryInt(r, "max_price_cents", 0, 0, 1<<30)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.MaxPriceCents = &value
		}

		page, err := svc.ListApproved(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ProductsSearch serves case-insensitive name search over the approved catalog.
func ProductsSearch(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		term := validators.SanitizeString(r.URL.Query().Get("term"), maxSearchTermLen)
		limit, err := validators.ParseQueryInt(r, "limit", defaultPageLimit, 1, maxPageLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Search(r.Context(), term, strings.TrimSpace(r.URL.Query().Get("cursor")), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ProductsFilters returns the distinct filterable values of the catalog.
func ProductsFilters(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		filters, err := svc.Filters(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, filters)
	}
}

// ProductsDetail returns one publicly visible product.
func ProductsDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Detail(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
