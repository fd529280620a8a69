package service

import (
	"strings"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// Веса составляющих процента совпадения.
const (
	keywordsWeight = 50
	jobTypeWeight  = 20
	contractWeight = 15
	locationWeight = 15
)

// contractCodes — коды typeContrat France Travail по типу договора.
var contractCodes = map[wizard.ContractType]string{
	wizard.ContractCDI:       "CDI",
	wizard.ContractCDD:       "CDD",
	wizard.ContractInterim:   "MIS",
	wizard.ContractFreelance: "LIB",
}

// MatchScore оценивает соответствие оффера критериям в процентах (0–100).
// Критерий без предпочтения засчитывается полностью.
func MatchScore(criteria wizard.Criteria, offer francetravail.JobOffer) int {
	text := strings.ToLower(offer.Title + " " + offer.PlainDescription())

	score := 0

	keywords := nonEmpty(criteria.Keywords)
	if len(keywords) == 0 {
		score += keywordsWeight
	} else {
		found := 0
		for _, k := range keywords {
			if strings.Contains(text, strings.ToLower(k)) {
				found++
			}
		}
		score += keywordsWeight * found / len(keywords)
	}

	jobType := strings.ToLower(strings.TrimSpace(criteria.JobType))
	if jobType == "" || strings.Contains(text, jobType) {
		score += jobTypeWeight
	}

	if criteria.ContractType == wizard.ContractAny {
		score += contractWeight
	} else if code, ok := contractCodes[criteria.ContractType]; ok && strings.EqualFold(code, offer.ContractType) {
		score += contractWeight
	} else if !ok && strings.Contains(text, string(criteria.ContractType)) {
		score += contractWeight
	}

	location := strings.ToLower(strings.TrimSpace(criteria.Location))
	if location == "" || locationMatches(location, offer.Workplace) {
		score += locationWeight
	}

	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

func locationMatches(location string, w francetravail.Workplace) bool {
	if strings.Contains(strings.ToLower(w.Label), location) {
		return true
	}
	return location == strings.ToLower(w.Commune) || location == strings.ToLower(w.PostalCode)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
