package models

// Идентификаторы тарифных планов. Перечисление закрыто и не расширяется
// пользователями.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// Plan описывает тарифный план с фиксированной ценой в USD.
// Price хранится строкой в формате платежного провайдера ("0.10", "299").
type Plan struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	Interval      string `json:"interval"`
	PriceLabel    string `json:"price_label"`
	IntervalLabel string `json:"interval_label"`
	Badge         string `json:"badge,omitempty"`
}

// Plans — таблица тарифов. Месячный тариф оставлен с тестовой ценой,
// как в продуктовой конфигурации.
var Plans = []Plan{
	{
		ID:            PlanMonthly,
		Name:          "Monthly",
		Price:         "0.10",
		Interval:      "month",
		PriceLabel:    "$0.10",
		IntervalLabel: "per month",
	},
	{
		ID:            PlanYearly,
		Name:          "Yearly",
		Price:         "299",
		Interval:      "year",
		PriceLabel:    "$299",
		IntervalLabel: "per year",
		Badge:         "Save 14%",
	},
}

// PlanByID возвращает план по идентификатору из закрытой таблицы тарифов.
func PlanByID(id string) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
