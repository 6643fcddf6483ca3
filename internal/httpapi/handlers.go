package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/apperr"
	"github.com/marketbasket/pricewatch/internal/catalog"
	"github.com/marketbasket/pricewatch/internal/domain"
	apimw "github.com/marketbasket/pricewatch/internal/httpapi/middleware"
	"github.com/marketbasket/pricewatch/internal/recommend"
	"github.com/marketbasket/pricewatch/internal/repo"
	"github.com/marketbasket/pricewatch/internal/scheduler"
	"github.com/marketbasket/pricewatch/internal/validate"
)

func writeValidation(w http.ResponseWriter, err error) bool {
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Reason, Field: ve.Field})
	return true
}

func (s *Server) lookupCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.LookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.LookupTimeout)
}

func (s *Server) handleCreateTrigger(w http.ResponseWriter, r *http.Request) {
	owner, _ := apimw.Subject(r.Context())

	var p validate.TriggerPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	nt, err := validate.Payload(p)
	if err != nil {
		if !writeValidation(w, err) {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	ctx, cancel := s.lookupCtx(r.Context())
	items, err := s.Catalog.Search(ctx, nt.Name, nt.Zip)
	cancel()
	if err != nil {
		s.Logger.Warn("create_trigger_lookup_failed", zap.String("name", nt.Name), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to set trigger: "+err.Error())
		return
	}

	t := &domain.Trigger{
		Name:         nt.Name,
		TargetPrice:  nt.TargetPrice,
		Zip:          nt.Zip,
		CurrentPrice: catalog.FirstPrice(items),
		Owner:        owner,
	}
	if err := s.Triggers.Add(r.Context(), t); err != nil {
		s.Logger.Error("create_trigger_store_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save trigger")
		return
	}

	s.Logger.Info("trigger_created",
		zap.String("trigger_id", string(t.ID)),
		zap.String("owner", owner),
		zap.String("name", t.Name),
		zap.String("target", t.TargetPrice.String()),
	)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTriggers(w http.ResponseWriter, r *http.Request) {
	zip, err := validate.Zip(r.URL.Query().Get("zip"))
	if err != nil {
		writeValidation(w, err)
		return
	}
	owner, ok := apimw.Subject(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, []domain.Trigger{})
		return
	}
	ts, err := s.Triggers.List(r.Context(), owner)
	if err != nil {
		s.Logger.Error("list_triggers_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	ts = scheduler.RefreshPrices(r.Context(), s.Triggers, s.Catalog, ts, zip, s.MaxLookups, s.LookupTimeout, s.Logger)
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleDeleteTrigger(w http.ResponseWriter, r *http.Request) {
	owner, _ := apimw.Subject(r.Context())
	id := domain.TriggerID(chi.URLParam(r, "id"))

	err := s.Triggers.Delete(r.Context(), owner, id)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "trigger not found")
		return
	case err != nil:
		s.Logger.Error("delete_trigger_failed", zap.String("trigger_id", string(id)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not delete trigger")
		return
	}
	s.Logger.Info("trigger_deleted", zap.String("trigger_id", string(id)), zap.String("owner", owner))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleItemPrices(w http.ResponseWriter, r *http.Request) {
	term, zip, err := validate.Search(r.URL.Query().Get("term"), r.URL.Query().Get("zip"))
	if err != nil {
		writeValidation(w, err)
		return
	}

	ctx, cancel := s.lookupCtx(r.Context())
	defer cancel()
	items, err := s.Catalog.Search(ctx, term, zip)
	if err != nil {
		s.Logger.Warn("item_prices_failed", zap.String("term", term), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Kroger API error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type termPayload struct {
	Term string `json:"term"`
}

func (s *Server) handleRecordTerm(w http.ResponseWriter, r *http.Request) {
	owner, _ := apimw.Subject(r.Context())

	var p termPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	term, _, err := validate.Search(p.Term, "")
	if err != nil {
		writeValidation(w, err)
		return
	}

	st := &domain.SearchTerm{Owner: owner, Term: term}
	if err := s.Terms.Record(r.Context(), st); err != nil {
		s.Logger.Error("record_term_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not record term")
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var ts []domain.Trigger
	if owner, ok := apimw.Subject(r.Context()); ok {
		var err error
		ts, err = s.Triggers.List(r.Context(), owner)
		if err != nil {
			s.Logger.Error("recommendations_list_failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list error")
			return
		}
	}
	writeJSON(w, http.StatusOK, recommend.Build(r.Context(), s.Catalog, ts, s.Logger))
}
