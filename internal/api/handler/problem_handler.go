package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"algoverse/internal/api/middleware"
	"algoverse/internal/app/service"
	"algoverse/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(public chi.Router) {
		public.Use(middleware.OptionalAuthenticator)
		public.Get("/", h.listProblems)
		public.Get("/{idOrSlug}", h.getProblem)
	})
	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator)
		admin.Use(middleware.AdminOnly)
		admin.Post("/", h.createProblem)
	})
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	result, err := h.problemService.ListProblems(r.Context(), limit, offset, q.Get("difficulty"), q.Get("tag"), q.Get("search"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "idOrSlug")

	problem, err := h.problemService.GetProblem(r.Context(), idOrSlug, middleware.IsAdmin(r.Context()))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "User identity missing")
		return
	}

	var req service.CreateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	problem, err := h.problemService.CreateProblem(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

// LanguageHandler exposes the judge language catalog.
type LanguageHandler struct {
	problemService *service.ProblemService
}

func NewLanguageHandler(ps *service.ProblemService) *LanguageHandler {
	return &LanguageHandler{problemService: ps}
}

func (h *LanguageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listLanguages)
}

func (h *LanguageHandler) listLanguages(w http.ResponseWriter, r *http.Request) {
	languages, err := h.problemService.ListLanguages(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, languages)
}
