package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wordhaven/vocab-cli/internal/model"
	"github.com/wordhaven/vocab-cli/internal/store"
)

// uploadExts are the file types the import endpoint accepts.
var uploadExts = map[string]bool{
	".txt":  true,
	".xlsx": true,
	".xlsm": true,
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	folder, err := s.store.CreateFolder(r.Context(), req.Name)
	if err != nil {
		zap.L().Error("create folder failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "folder not created")
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (s *Server) getFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := s.store.GetFolder(r.Context(), chi.URLParam(r, "folderID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "folder not found")
			return
		}
		zap.L().Error("get folder failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "folder lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (s *Server) listWords(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	if _, err := s.store.GetFolder(r.Context(), folderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "folder not found")
			return
		}
		zap.L().Error("get folder failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "folder lookup failed")
		return
	}

	words, err := s.store.ListWords(r.Context(), folderID)
	if err != nil {
		zap.L().Error("list words failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "words not listed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"folder_id": folderID,
		"count":     len(words),
		"words":     words,
	})
}

// createImport accepts a multipart upload, stages it, creates the pending
// job, and hands it to the queue. The response is 202 with the job id; the
// caller polls the job endpoints for progress.
func (s *Server) createImport(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	if _, err := s.store.GetFolder(r.Context(), folderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "folder not found")
			return
		}
		zap.L().Error("get folder failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "folder lookup failed")
		return
	}

	maxBytes := int64(s.cfg.Storage.MaxFileSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20)) // multipart framing overhead

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds size limit")
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadExts[ext] {
		writeError(w, http.StatusBadRequest, "unsupported file type: txt, xlsx, or xlsm expected")
		return
	}

	stagedPath, err := s.blob.Stage(file, header.Filename)
	if err != nil {
		zap.L().Error("upload staging failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "upload not stored")
		return
	}

	now := time.Now().UTC()
	job := &model.Job{
		ID:       uuid.New().String(),
		FolderID: folderID,
		Status:   model.JobStatusPending,
		Metadata: model.JobMetadata{
			FileName: header.Filename,
			Options: model.ImportOptions{
				AllowUpdate: r.FormValue("allow_update") == "true",
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	finalPath, err := s.blob.Promote(stagedPath, job.ID, header.Filename)
	if err != nil {
		zap.L().Error("upload promotion failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "upload not stored")
		return
	}
	job.Metadata.FilePath = finalPath

	if err := s.store.CreateJob(r.Context(), job); err != nil {
		s.blob.Purge(job.ID)
		zap.L().Error("create job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job not created")
		return
	}

	if err := s.queue.Enqueue(job.ID); err != nil {
		zap.L().Warn("job not scheduled", zap.String("job_id", job.ID), zap.Error(err))
		status := model.JobStatusFailed
		if uerr := s.store.UpdateJob(r.Context(), job.ID, store.JobUpdate{Status: &status}); uerr != nil {
			zap.L().Error("job not marked failed", zap.String("job_id", job.ID), zap.Error(uerr))
		}
		s.blob.Purge(job.ID)
		writeError(w, http.StatusServiceUnavailable, "import queue is full, try again later")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// jobView is the externally visible shape of a job. The stored file path
// stays internal.
type jobView struct {
	ID          string            `json:"id"`
	FolderID    string            `json:"folder_id"`
	Status      model.JobStatus   `json:"status"`
	Counters    model.JobCounters `json:"counters"`
	Progress    model.JobProgress `json:"progress"`
	Report      model.JobReport   `json:"report"`
	Provider    string            `json:"provider,omitempty"`
	FileName    string            `json:"file_name,omitempty"`
	AllowUpdate bool              `json:"allow_update"`
	RetryCount  int               `json:"retry_count"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func viewOf(job *model.Job) jobView {
	return jobView{
		ID:          job.ID,
		FolderID:    job.FolderID,
		Status:      job.Status,
		Counters:    job.Counters,
		Progress:    job.Progress,
		Report:      job.Report,
		Provider:    job.Metadata.Provider,
		FileName:    job.Metadata.FileName,
		AllowUpdate: job.Metadata.Options.AllowUpdate,
		RetryCount:  job.Metadata.RetryCount,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

func (s *Server) fetchJob(w http.ResponseWriter, r *http.Request) *model.Job {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return nil
		}
		zap.L().Error("get job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job lookup failed")
		return nil
	}
	return job
}

func (s *Server) getImport(w http.ResponseWriter, r *http.Request) {
	job := s.fetchJob(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(job))
}

func (s *Server) getImportReport(w http.ResponseWriter, r *http.Request) {
	job := s.fetchJob(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       job.ID,
		"status":   job.Status,
		"counters": job.Counters,
		"report":   job.Report,
	})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.JobFilter{
		Status:   model.JobStatus(q.Get("status")),
		FolderID: q.Get("folder_id"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		zap.L().Error("list jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "jobs not listed")
		return
	}

	views := make([]jobView, 0, len(jobs))
	for i := range jobs {
		views = append(views, viewOf(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(views),
		"jobs":  views,
	})
}
