// Package report assembles analyzer results into the response payloads.
// Span text is clipped here so the analyzers keep full offsets internally
// while payloads stay bounded.
package report

import (
	"fmt"

	"narrative_engine/internal/duplicates"
	"narrative_engine/internal/segment"
	"narrative_engine/internal/temporal"
)

const clipLen = 200

// Envelope is the uniform API response wrapper. Error is null on success.
type Envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func Fail(msg string) Envelope {
	return Envelope{Success: false, Error: &msg}
}

type DuplicatesReport struct {
	Duplicates         []duplicates.Pair `json:"duplicates"`
	TotalDuplicates    int               `json:"total_duplicates"`
	BySeverity         map[string]int    `json:"by_severity"`
	ByType             map[string]int    `json:"by_type"`
	SentencesAnalyzed  int               `json:"sentences_analyzed"`
	ParagraphsAnalyzed int               `json:"paragraphs_analyzed"`
	Recommendations    []string          `json:"recommendations"`
}

func Duplicates(res duplicates.Result) DuplicatesReport {
	rep := DuplicatesReport{
		Duplicates:         make([]duplicates.Pair, len(res.Pairs)),
		TotalDuplicates:    len(res.Pairs),
		BySeverity:         map[string]int{},
		ByType:             map[string]int{},
		SentencesAnalyzed:  res.SentencesAnalyzed,
		ParagraphsAnalyzed: res.ParagraphsAnalyzed,
	}
	for i, p := range res.Pairs {
		p.Location1 = clipSpan(p.Location1)
		p.Location2 = clipSpan(p.Location2)
		rep.Duplicates[i] = p
		rep.BySeverity[string(p.Severity)]++
		rep.ByType[string(p.Type)]++
	}
	rep.Recommendations = duplicateRecommendations(rep)
	return rep
}

func duplicateRecommendations(rep DuplicatesReport) []string {
	var recs []string
	if rep.TotalDuplicates == 0 {
		return []string{"No se detectaron pasajes duplicados. El manuscrito no requiere cambios en este aspecto."}
	}
	if n := rep.BySeverity[string(duplicates.Critical)]; n > 0 {
		recs = append(recs, fmt.Sprintf("Hay %d duplicados exactos. Revisa si son repeticiones accidentales de copiar y pegar.", n))
	}
	if n := rep.ByType[string(duplicates.SemanticParagraph)]; n > 0 {
		recs = append(recs, fmt.Sprintf("Hay %d párrafos que narran el mismo contenido con palabras distintas. Considera fusionarlos o diferenciarlos.", n))
	}
	recs = append(recs, fmt.Sprintf("Se encontraron %d pasajes duplicados en total. Prioriza los marcados como críticos.", rep.TotalDuplicates))
	return recs
}

type StructureReport struct {
	Prolepsis        []temporal.Anomaly `json:"prolepsis"`
	Analepsis        []temporal.Anomaly `json:"analepsis"`
	TotalAnomalies   int                `json:"total_anomalies"`
	ProlepsisCount   int                `json:"prolepsis_count"`
	AnalepsisCount   int                `json:"analepsis_count"`
	ChaptersAnalyzed int                `json:"chapters_analyzed"`
	BySeverity       map[string]int     `json:"by_severity"`
	Recommendations  []string           `json:"recommendations"`
}

func Structure(res temporal.Result) StructureReport {
	rep := StructureReport{
		Prolepsis:        clipAnomalies(res.Prolepsis),
		Analepsis:        clipAnomalies(res.Analepsis),
		ProlepsisCount:   len(res.Prolepsis),
		AnalepsisCount:   len(res.Analepsis),
		ChaptersAnalyzed: res.ChaptersAnalyzed,
		BySeverity:       map[string]int{},
	}
	rep.TotalAnomalies = rep.ProlepsisCount + rep.AnalepsisCount
	for _, a := range res.Prolepsis {
		rep.BySeverity[string(a.Severity)]++
	}
	for _, a := range res.Analepsis {
		rep.BySeverity[string(a.Severity)]++
	}
	rep.Recommendations = structureRecommendations(rep)
	return rep
}

func structureRecommendations(rep StructureReport) []string {
	if rep.TotalAnomalies == 0 {
		return []string{"No se detectaron anomalías temporales. La cronología del manuscrito parece consistente."}
	}
	var recs []string
	unresolved := 0
	for _, a := range rep.Prolepsis {
		if a.ResolvedEventChapter == nil {
			unresolved++
		}
	}
	if unresolved > 0 {
		recs = append(recs, fmt.Sprintf("Hay %d anticipaciones cuyo evento no aparece después en el manuscrito. Verifica que esas promesas al lector se cumplan.", unresolved))
	}
	if rep.AnalepsisCount > 0 {
		recs = append(recs, fmt.Sprintf("Se detectaron %d saltos al pasado. Comprueba que cada retrospección vuelva con claridad al presente narrativo.", rep.AnalepsisCount))
	}
	if n := rep.BySeverity[string(temporal.SeverityHigh)]; n > 0 {
		recs = append(recs, fmt.Sprintf("%d anomalías tienen severidad alta. Revísalas primero: pueden desorientar al lector.", n))
	}
	recs = append(recs, fmt.Sprintf("Total de anomalías temporales: %d en %d capítulos.", rep.TotalAnomalies, rep.ChaptersAnalyzed))
	return recs
}

func clipSpan(s segment.Span) segment.Span {
	s.Text = s.Clip(clipLen)
	return s
}

func clipAnomalies(list []temporal.Anomaly) []temporal.Anomaly {
	out := make([]temporal.Anomaly, len(list))
	for i, a := range list {
		a.Location = clipSpan(a.Location)
		out[i] = a
	}
	return out
}
