package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"narrative_engine/internal/config"
	"narrative_engine/internal/engine"
	"narrative_engine/internal/store"
)

const manuscript = `Capítulo 1

El cielo estaba oscuro esa noche sobre los tejados del pueblo. Años después recordaría aquella tormenta con miedo.

Capítulo 2

Nada especial ocurrió durante el deshielo de primavera.

Capítulo 3

El cielo estaba oscuro esa noche sobre los tejados del pueblo. La tormenta llegó con el deshielo.
`

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWith(t, config.Config{
		Port:               "0",
		SentenceThreshold:  0.90,
		ParagraphThreshold: 0.85,
		MinSentenceLength:  30,
		MinConfidence:      0.7,
		MaxUploadBytes:     1 << 20,
	})
}

func newTestServerWith(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := discardLogger()
	return NewServer(engine.New(log, 2), st, log, cfg)
}

func uploadManuscript(t *testing.T, srv *Server) string {
	t.Helper()
	return uploadText(t, srv, manuscript, 3)
}

func uploadText(t *testing.T, srv *Server, text string, wantChapters int) string {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "novela.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(text))
	mw.WriteField("title", "La tormenta")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/projects", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if !env.Success || env.Error != nil {
		t.Fatalf("upload failed: %s", rec.Body.String())
	}
	var data struct {
		Project struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"project"`
		ChapterCount int `json:"chapter_count"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Project.Title != "La tormenta" || data.ChapterCount != wantChapters {
		t.Fatalf("unexpected project payload: %+v", data)
	}
	return data.Project.ID
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("health check failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateProjectAndDuplicates(t *testing.T) {
	srv := newTestServer(t)
	id := uploadManuscript(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+id+"/duplicates", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicates status %d: %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	var rep struct {
		TotalDuplicates int            `json:"total_duplicates"`
		BySeverity      map[string]int `json:"by_severity"`
	}
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		t.Fatal(err)
	}
	if rep.TotalDuplicates == 0 || rep.BySeverity["critical"] == 0 {
		t.Fatalf("expected the repeated sentence in the report: %s", env.Data)
	}
}

func TestStructureEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := uploadManuscript(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+id+"/narrative-structure?min_confidence=0.7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("structure status %d: %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	var rep struct {
		ChaptersAnalyzed int `json:"chapters_analyzed"`
		ProlepsisCount   int `json:"prolepsis_count"`
	}
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		t.Fatal(err)
	}
	if rep.ChaptersAnalyzed != 3 {
		t.Fatalf("expected 3 chapters analyzed: %s", env.Data)
	}
	if rep.ProlepsisCount == 0 {
		t.Fatalf("expected the chapter 1 anticipation to be reported: %s", env.Data)
	}
}

func TestTemplatesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	id := uploadManuscript(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+id+"/narrative-templates", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("templates status %d: %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	var rep struct {
		Matches   []json.RawMessage `json:"matches"`
		BestMatch struct {
			TemplateType string `json:"template_type"`
			TotalBeats   int    `json:"total_beats"`
		} `json:"best_match"`
		TotalChapters int `json:"total_chapters"`
	}
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		t.Fatal(err)
	}
	if len(rep.Matches) != 5 || rep.BestMatch.TemplateType == "" || rep.BestMatch.TotalBeats == 0 || rep.TotalChapters != 3 {
		t.Fatalf("unexpected templates payload: %s", env.Data)
	}
}

func TestInvalidThresholdIs400(t *testing.T) {
	srv := newTestServer(t)
	id := uploadManuscript(t, srv)

	for _, q := range []string{
		"sentence_threshold=0.2",
		"sentence_threshold=abc",
		"paragraph_threshold=2",
		"min_sentence_length=x",
	} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+id+"/duplicates?"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d: %s", q, rec.Code, rec.Body.String())
		}
		var env envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatal(err)
		}
		if env.Success || env.Error == nil {
			t.Fatalf("query %q: expected failure envelope: %s", q, rec.Body.String())
		}
	}
}

// A manuscript whose repeated sentence scores exactly 0.90: visible at a
// 0.90 sentence threshold, invisible at 0.95.
const borderlineManuscript = `Capítulo 1

uno dos tres cuatro cinco seis siete ocho nueve diez. Otra frase totalmente distinta sobre barcos y mareas del sur.

Capítulo 2

uno dos tres cuatro cinco seis siete ocho nueve murciélago. Una frase diferente que habla de montañas nevadas y viento frío.
`

func TestConfiguredThresholdsReachEngine(t *testing.T) {
	srv := newTestServerWith(t, config.Config{
		Port:               "0",
		SentenceThreshold:  0.95,
		ParagraphThreshold: 0.95,
		MinSentenceLength:  30,
		MinConfidence:      0.7,
		MaxUploadBytes:     1 << 20,
	})
	id := uploadText(t, srv, borderlineManuscript, 2)

	duplicateTotal := func(query string) int {
		t.Helper()
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+id+"/duplicates"+query, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("duplicates%s status %d: %s", query, rec.Code, rec.Body.String())
		}
		var env envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatal(err)
		}
		var rep struct {
			TotalDuplicates int `json:"total_duplicates"`
		}
		if err := json.Unmarshal(env.Data, &rep); err != nil {
			t.Fatal(err)
		}
		return rep.TotalDuplicates
	}

	if got := duplicateTotal(""); got != 0 {
		t.Fatalf("configured 0.95 threshold must hide the 0.90 pair, got %d duplicates", got)
	}
	if got := duplicateTotal("?sentence_threshold=0.9&paragraph_threshold=0.9"); got == 0 {
		t.Fatalf("explicit 0.90 threshold must surface the pair, got none")
	}
}

func TestUnknownProjectIs404(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/no-such-id/duplicates", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListProjects(t *testing.T) {
	srv := newTestServer(t)
	uploadManuscript(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	var list []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 project, got %d", len(list))
	}
}
