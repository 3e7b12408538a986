package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"narrative_engine/internal/engine"
	"narrative_engine/internal/ingest"
	"narrative_engine/internal/report"
	"narrative_engine/internal/segment"
	"narrative_engine/internal/store"
	"narrative_engine/internal/templates"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, report.Fail("invalid multipart form: "+err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, report.Fail("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, report.Fail("failed to read file"))
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, report.Fail(fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)))
		return
	}

	parsed, err := ingest.Parse(header.Filename, data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, report.Fail(err.Error()))
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = parsed.Title
	}

	chapters := ingest.SplitChapters(parsed.Text)
	project, err := s.store.CreateProject(title, chapters)
	if err != nil {
		s.log.Error("create project", "error", err)
		writeJSON(w, http.StatusInternalServerError, report.Fail("failed to store project"))
		return
	}

	// Analyze up front so default-parameter reads hit the cache.
	params := s.fillDuplicateDefaults(engine.DuplicateParams{})
	minConfidence := s.fillMinConfidence(0)
	if full, err := s.engine.Full(chapters, params, minConfidence); err != nil {
		s.log.Error("initial analysis", "project", project.ID, "error", err)
	} else {
		s.cacheFull(project.ID, params, minConfidence, full)
	}

	writeJSON(w, http.StatusCreated, report.OK(map[string]any{
		"project":       project,
		"chapter_count": len(chapters),
	}))
}

func (s *Server) cacheFull(projectID string, p engine.DuplicateParams, minConfidence float64, full engine.FullReport) {
	saves := []struct {
		kind    string
		params  string
		payload any
	}{
		{"duplicates", duplicateParamsKey(p), full.Duplicates},
		{"structure", structureParamsKey(minConfidence), full.Structure},
		{"templates", "v1", full.Templates},
	}
	for _, sv := range saves {
		if err := s.store.SaveReport(projectID, sv.kind, sv.params, sv.payload); err != nil {
			s.log.Error("cache report", "project", projectID, "kind", sv.kind, "error", err)
		}
	}
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects()
	if err != nil {
		s.log.Error("list projects", "error", err)
		writeJSON(w, http.StatusInternalServerError, report.Fail("failed to list projects"))
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeJSON(w, http.StatusOK, report.OK(projects))
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	chapters, ok := s.projectChapters(w, r)
	if !ok {
		return
	}

	params := engine.DuplicateParams{}
	var err error
	if params.SentenceThreshold, err = floatParam(r, "sentence_threshold"); err != nil {
		writeJSON(w, http.StatusBadRequest, report.Fail(err.Error()))
		return
	}
	if params.ParagraphThreshold, err = floatParam(r, "paragraph_threshold"); err != nil {
		writeJSON(w, http.StatusBadRequest, report.Fail(err.Error()))
		return
	}
	if params.MinSentenceLength, err = intParam(r, "min_sentence_length"); err != nil {
		writeJSON(w, http.StatusBadRequest, report.Fail(err.Error()))
		return
	}

	params = s.fillDuplicateDefaults(params)
	projectID := chi.URLParam(r, "projectID")
	key := duplicateParamsKey(params)

	var cached report.DuplicatesReport
	if err := s.store.CachedReport(projectID, "duplicates", key, &cached); err == nil {
		writeJSON(w, http.StatusOK, report.OK(cached))
		return
	}

	rep, err := s.engine.Duplicates(chapters, params)
	if err != nil {
		s.analysisError(w, err)
		return
	}
	if err := s.store.SaveReport(projectID, "duplicates", key, rep); err != nil {
		s.log.Error("cache report", "project", projectID, "kind", "duplicates", "error", err)
	}
	writeJSON(w, http.StatusOK, report.OK(rep))
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	chapters, ok := s.projectChapters(w, r)
	if !ok {
		return
	}

	minConfidence, err := floatParam(r, "min_confidence")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, report.Fail(err.Error()))
		return
	}

	minConfidence = s.fillMinConfidence(minConfidence)
	projectID := chi.URLParam(r, "projectID")
	key := structureParamsKey(minConfidence)

	var cached report.StructureReport
	if err := s.store.CachedReport(projectID, "structure", key, &cached); err == nil {
		writeJSON(w, http.StatusOK, report.OK(cached))
		return
	}

	rep, err := s.engine.Structure(chapters, minConfidence)
	if err != nil {
		s.analysisError(w, err)
		return
	}
	if err := s.store.SaveReport(projectID, "structure", key, rep); err != nil {
		s.log.Error("cache report", "project", projectID, "kind", "structure", "error", err)
	}
	writeJSON(w, http.StatusOK, report.OK(rep))
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	chapters, ok := s.projectChapters(w, r)
	if !ok {
		return
	}

	projectID := chi.URLParam(r, "projectID")

	var cached templates.Analysis
	if err := s.store.CachedReport(projectID, "templates", "v1", &cached); err == nil {
		writeJSON(w, http.StatusOK, report.OK(cached))
		return
	}

	rep, err := s.engine.Templates(chapters)
	if err != nil {
		s.analysisError(w, err)
		return
	}
	if err := s.store.SaveReport(projectID, "templates", "v1", rep); err != nil {
		s.log.Error("cache report", "project", projectID, "kind", "templates", "error", err)
	}
	writeJSON(w, http.StatusOK, report.OK(rep))
}

// projectChapters loads the project's chapters, writing the 404 itself when
// the project does not exist.
func (s *Server) projectChapters(w http.ResponseWriter, r *http.Request) ([]segment.Chapter, bool) {
	projectID := chi.URLParam(r, "projectID")
	chapters, err := s.store.Chapters(projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, report.Fail("project not found: "+projectID))
			return nil, false
		}
		s.log.Error("load chapters", "project", projectID, "error", err)
		writeJSON(w, http.StatusInternalServerError, report.Fail("failed to load project"))
		return nil, false
	}
	return chapters, true
}

func (s *Server) analysisError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrInvalidInput) {
		writeJSON(w, http.StatusBadRequest, report.Fail(err.Error()))
		return
	}
	s.log.Error("analysis", "error", err)
	writeJSON(w, http.StatusInternalServerError, report.Fail(err.Error()))
}

// fillDuplicateDefaults resolves omitted parameters to the configured
// defaults before the engine runs, so the cache key and the computation
// always describe the same values.
func (s *Server) fillDuplicateDefaults(p engine.DuplicateParams) engine.DuplicateParams {
	if p.SentenceThreshold == 0 {
		p.SentenceThreshold = s.cfg.SentenceThreshold
	}
	if p.ParagraphThreshold == 0 {
		p.ParagraphThreshold = s.cfg.ParagraphThreshold
	}
	if p.MinSentenceLength == 0 {
		p.MinSentenceLength = s.cfg.MinSentenceLength
	}
	return p
}

func (s *Server) fillMinConfidence(minConfidence float64) float64 {
	if minConfidence == 0 {
		return s.cfg.MinConfidence
	}
	return minConfidence
}

// Cache keys carry the effective parameter values, so a request that spells
// out the defaults shares the entry written at ingest time.
func duplicateParamsKey(p engine.DuplicateParams) string {
	return fmt.Sprintf("st=%.2f;pt=%.2f;ml=%d", p.SentenceThreshold, p.ParagraphThreshold, p.MinSentenceLength)
}

func structureParamsKey(minConfidence float64) string {
	return fmt.Sprintf("mc=%.2f", minConfidence)
}

func floatParam(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, v)
	}
	return f, nil
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, body report.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
