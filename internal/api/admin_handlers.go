package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/orienta/orienta/internal/models"
)

func (rt *Router) registerCatalog(r *mux.Router) {
	r.HandleFunc("/careers", rt.handleCareers).Methods(http.MethodGet)
	r.Handle("/careers", withRole(rt.handleCreateCareer, models.RoleAdmin, models.RoleInstitution)).Methods(http.MethodPost)
	r.Handle("/careers/{id}", withRole(rt.handleDeleteCareer, models.RoleAdmin)).Methods(http.MethodDelete)
	r.HandleFunc("/universities", rt.handleUniversities).Methods(http.MethodGet)
	r.Handle("/universities", withRole(rt.handleCreateUniversity, models.RoleAdmin, models.RoleInstitution)).Methods(http.MethodPost)
}

func (rt *Router) registerAdmin(r *mux.Router) {
	admin := func(h http.HandlerFunc) http.Handler { return withRole(h, models.RoleAdmin) }
	r.Handle("/backup", admin(rt.handleGetBackupConfig)).Methods(http.MethodGet)
	r.Handle("/backup", admin(rt.handleUpdateBackupConfig)).Methods(http.MethodPost)
	r.Handle("/backup/files", admin(rt.handleBackupFiles)).Methods(http.MethodGet)
	r.Handle("/backup/files", admin(rt.handleRestoreBackup)).Methods(http.MethodPost)
	r.Handle("/backup/manual", admin(rt.handleManualBackup)).Methods(http.MethodPost)
	r.Handle("/stats", admin(rt.handleStats)).Methods(http.MethodGet)
	r.Handle("/stats/export", admin(rt.handleStatsExport)).Methods(http.MethodGet)
}

func (rt *Router) handleCareers(w http.ResponseWriter, r *http.Request) {
	cs, err := rt.catalog.Careers()
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (rt *Router) handleCreateCareer(w http.ResponseWriter, r *http.Request) {
	var in models.Career
	if err := decodeJSON(w, r, &in); err != nil {
		rt.writeError(w, r, err)
		return
	}
	c, err := rt.catalog.CreateCareer(actorFrom(r), in)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (rt *Router) handleDeleteCareer(w http.ResponseWriter, r *http.Request) {
	if err := rt.catalog.DeleteCareer(actorFrom(r), mux.Vars(r)["id"]); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeMessage(w, r, http.StatusOK, "catalog.career.delete")
}

func (rt *Router) handleUniversities(w http.ResponseWriter, r *http.Request) {
	us, err := rt.catalog.Universities()
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

func (rt *Router) handleCreateUniversity(w http.ResponseWriter, r *http.Request) {
	var in models.University
	if err := decodeJSON(w, r, &in); err != nil {
		rt.writeError(w, r, err)
		return
	}
	u, err := rt.catalog.CreateUniversity(actorFrom(r), in)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (rt *Router) handleGetBackupConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := rt.backup.Config()
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (rt *Router) handleUpdateBackupConfig(w http.ResponseWriter, r *http.Request) {
	var in models.BackupConfig
	if err := decodeJSON(w, r, &in); err != nil {
		rt.writeError(w, r, err)
		return
	}
	cfg, err := rt.backup.UpdateConfig(actorFrom(r), in)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (rt *Router) handleBackupFiles(w http.ResponseWriter, r *http.Request) {
	files, err := rt.backup.Files(actorFrom(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (rt *Router) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req models.RestoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.backup.Restore(r.Context(), actorFrom(r), req.ID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.logger.Info("backup restored", zap.String("id", req.ID), zap.String("by", actorFrom(r).ID))
	rt.writeMessage(w, r, http.StatusOK, "backup.restore.done")
}

func (rt *Router) handleManualBackup(w http.ResponseWriter, r *http.Request) {
	f, err := rt.backup.CreateManual(r.Context(), actorFrom(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.logger.Info("manual backup created", zap.String("id", f.ID), zap.Int64("size", f.Size))
	writeJSON(w, http.StatusCreated, f)
}

func (rt *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := rt.stats.Summary(actorFrom(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (rt *Router) handleStatsExport(w http.ResponseWriter, r *http.Request) {
	b, err := rt.stats.ExportCSV(actorFrom(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=submissions.csv")
	_, _ = w.Write(b)
}
