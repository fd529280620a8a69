package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/jobautomate-backend/internal/wizard"
)

// validate кэширует разобранные теги структур; безопасен для конкурентного использования.
var validate = validator.New()

type criteriaRules struct {
	JobType      string   `validate:"max=120"`
	Location     string   `validate:"max=100"`
	Distance     int      `validate:"min=0,max=100"`
	ContractType string   `validate:"omitempty,oneof=cdi cdd interim freelance apprentissage stage"`
	WorkSchedule string   `validate:"omitempty,oneof=fulltime parttime flexible any"`
	Experience   string   `validate:"omitempty,oneof=debutant junior intermediaire senior expert any"`
	Keywords     []string `validate:"max=30,dive,required,max=50"`
}

type automationRules struct {
	Frequency             string `validate:"required,oneof=daily weekly"`
	MaxApplicationsPerDay int    `validate:"min=1,max=50"`
}

// ValidateCriteria проверяет критерии поиска перед сохранением.
func ValidateCriteria(c wizard.Criteria) error {
	return translate(validate.Struct(criteriaRules{
		JobType:      c.JobType,
		Location:     c.Location,
		Distance:     c.Distance,
		ContractType: string(c.ContractType),
		WorkSchedule: string(c.WorkSchedule),
		Experience:   string(c.Experience),
		Keywords:     c.Keywords,
	}))
}

// ValidateAutomationSettings проверяет частоту и дневной лимит автоматизации.
func ValidateAutomationSettings(frequency string, maxPerDay int) error {
	return translate(validate.Struct(automationRules{
		Frequency:             frequency,
		MaxApplicationsPerDay: maxPerDay,
	}))
}

var fieldNames = map[string]string{
	"JobType":               "тип должности",
	"Location":              "местоположение",
	"Distance":              "радиус",
	"ContractType":          "тип договора",
	"WorkSchedule":          "график работы",
	"Experience":            "опыт",
	"Keywords":              "ключевые слова",
	"Frequency":             "частота",
	"MaxApplicationsPerDay": "лимит откликов в день",
}

func translate(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name, ok := fieldNames[fe.StructField()]
		if !ok {
			name = fe.Field()
		}
		if strings.HasPrefix(fe.Namespace(), "criteriaRules.Keywords[") {
			name = "ключевое слово"
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s обязательно", name))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: недопустимое значение %q", name, fe.Value()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s: минимум %s", name, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s: максимум %s", name, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: нарушено правило %s", name, fe.Tag()))
		}
	}

	return errors.New(strings.Join(msgs, "; "))
}
