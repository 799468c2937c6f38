package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/orienta/orienta/internal/middleware"
	"github.com/orienta/orienta/internal/models"
)

func nowUTC() time.Time { return time.Now().UTC() }

// registerPortal mounts the unversioned routes the web client has always used.
func (rt *Router) registerPortal(r *mux.Router) {
	r.HandleFunc("/users", rt.handleLookupUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", rt.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/questions", rt.handleQuestions).Methods(http.MethodGet)

	r.Handle("/answers", authed(rt.handleSubmitAnswers)).Methods(http.MethodPost)
	r.Handle("/recommendations", authed(rt.handleRecommendations)).Methods(http.MethodGet)
	r.Handle("/students/{id}/aptitudes", authed(rt.handleAptitudes)).Methods(http.MethodGet)
	r.Handle("/students/{id}/lastCareer", authed(rt.handleLastCareer)).Methods(http.MethodGet)
}

func authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(h)
}

func withRole(h http.HandlerFunc, roles ...string) http.Handler {
	return middleware.RequireRole(roles...)(h)
}

func (rt *Router) handleQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := rt.questionnaire.Questions()
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (rt *Router) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitAnswersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	res, err := rt.questionnaire.Submit(actorFrom(r), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (rt *Router) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := rt.questionnaire.Recommendations(actorFrom(r), r.URL.Query().Get("studentId"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (rt *Router) handleAptitudes(w http.ResponseWriter, r *http.Request) {
	apts, err := rt.questionnaire.Aptitudes(actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apts)
}

func (rt *Router) handleLastCareer(w http.ResponseWriter, r *http.Request) {
	last, err := rt.questionnaire.LastCareer(actorFrom(r), mux.Vars(r)["id"])
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, last)
}
