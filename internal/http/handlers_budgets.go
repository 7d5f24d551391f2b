package http

import (
	"net/http"

	"fintrack/internal/log"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	b, err := req.toBudget()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.deps.Budgets.Create(r.Context(), b)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/v1/budgets/"+created.ID).
		Body(toBudgetResponse(created, nil)).
		Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := ParsePage(q)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	withProgress, err := queryBool(q, "include_progress", true)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	budgets, err := s.deps.Budgets.List(r.Context(), page, withProgress)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetWithProgress(b))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	withProgress, err := queryBool(r.URL.Query(), "include_progress", false)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	b, err := s.deps.Budgets.Get(r.Context(), r.PathValue("id"), withProgress)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toBudgetWithProgress(b)).Write(w)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Budgets.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toProgressResponse(p)).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	b, err := s.deps.Budgets.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(toBudgetResponse(b, nil)).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Budgets.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
