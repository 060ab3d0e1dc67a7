package db

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/treevolume/internal/httputil"
	"github.com/banshee-data/treevolume/internal/monitoring"
)

// AttachAdminRoutes mounts the debug index on mux with a live SQL console,
// run listings and an on-demand backup of the results database.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Tree volumes DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("runs", "Stored volume runs (JSON, ?run=<id> for per-tree rows)", http.HandlerFunc(db.handleRuns))
	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.handleBackup))
	return nil
}

func (db *DB) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	id := r.URL.Query().Get("run")
	if id == "" {
		runs, err := db.Runs()
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, runs)
		return
	}

	vols, err := db.TreeVolumes(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if len(vols) == 0 {
		httputil.NotFound(w, fmt.Sprintf("no results for run %q", id))
		return
	}
	httputil.WriteJSONOK(w, vols)
}

func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "treevolume-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, backupFile); err != nil {
		monitoring.Logf("Failed to write backup: %v", err)
	}
}
