package service

import (
	"strings"

	"github.com/pmarques/hemiciclo/internal/model"
)

// ExpectedDeputies is the number of seats in the chamber. An attendance
// export that does not name exactly this many distinct deputies is rejected.
const ExpectedDeputies = 230

// RequiredColumns is the column set an attendance upload must carry.
var RequiredColumns = []string{
	"LEGISLATURA", "DATA", "NUMERO", "SESSAO", "ID_LEGIS_SESSAO",
	"DEPUTADO", "PARTIDO", "ASSIDUIDADE", "MOTIVO",
}

// validReasons is the official justification vocabulary, pre-normalized.
// Matching is by prefix on the normalized input, which is deliberately
// permissive: "doença crónica" is accepted because it starts with "doenca".
var validReasons = []string{
	"doenca",
	"casamento",
	"maternidade e paternidade",
	"luto",
	"forca maior",
	"missao parlamentar",
	"trabalho parlamentar",
	"trabalho politico",
	"participacao em atividades parlamentares",
	"dificuldades de transporte",
	"razao de consciencia",
	"assistencia a familia",
	"motivo justificado",
}

// Violation flags one attendance row whose justification fails validation.
// Line numbers are 1-based and account for the header row.
type Violation struct {
	Line   int    `json:"linha"`
	Deputy string `json:"deputado"`
	Status string `json:"assiduidade"`
	Reason string `json:"motivo,omitempty"`
	Kind   string `json:"erro"`
}

// Violation kinds, verbatim from the operator-facing contract.
const (
	ViolationReasonMissing = "Motivo em falta"
	ViolationReasonInvalid = "Motivo inválido (não consta da lista oficial)"
)

// MissingColumns returns the required columns absent from the header, in
// the canonical column order.
func MissingColumns(header []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, col := range header {
		present[col] = struct{}{}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// ReasonRequired reports whether a status code must come with a
// justification. Any presence never requires one. A quorum absence is
// penalizing rather than excused, so it never requires one either. The
// parliamentary-mission absence only requires a reason when the caller
// opted in via includeMission.
func ReasonRequired(status string, includeMission bool) bool {
	status = CleanField(status)
	if strings.HasPrefix(status, model.StatusPresentPrefix) {
		return false
	}
	if status == model.StatusJustified {
		return true
	}
	if status == model.StatusMission {
		return includeMission
	}
	return false
}

// ValidReason reports whether a justification matches the official
// vocabulary, comparing the normalized input against each normalized
// prefix.
func ValidReason(reason string) bool {
	normalized := NormalizeName(reason)
	if normalized == "" {
		return false
	}
	for _, prefix := range validReasons {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}
