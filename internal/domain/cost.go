package domain

import "time"

// CostEntry — дневная стоимость сервиса. Натуральный ключ (Date, GroupID,
// ServiceID) делает повторную запись идемпотентной.
type CostEntry struct {
	Date      string    `json:"date"` // YYYY-MM-DD, как отдает каталог
	GroupID   string    `json:"group_id"`
	ServiceID string    `json:"service_id"`
	Amount    float64   `json:"amount"`
	FetchedAt time.Time `json:"fetched_at"`
}

type CostTrend string

const (
	TrendIncreasing CostTrend = "increasing"
	TrendDecreasing CostTrend = "decreasing"
	TrendStable     CostTrend = "stable"
)

type CostPoint struct {
	Date      string  `json:"date"`
	Amount    float64 `json:"amount"`
	Projected bool    `json:"projected"` // false — факт, true — прогнозная точка
}

// CostForecast — результат линейной регрессии по дневным суммам
type CostForecast struct {
	Slope          float64     `json:"slope"`            // Прирост $/день
	Intercept      float64     `json:"intercept"`
	RSquared       float64     `json:"r_squared"`
	Trend          CostTrend   `json:"trend"`
	Confidence     int         `json:"confidence"`       // max(0, R^2) * 100, округлено
	Predicted7Day  float64     `json:"predicted_7_day"`  // Сумма ближайших 7 прогнозных дней
	Predicted30Day float64     `json:"predicted_30_day"` // Сумма ближайших 30 прогнозных дней
	Points         []CostPoint `json:"points"`           // История + прогноз (30 дней вперед)
	GeneratedAt    time.Time   `json:"generated_at"`
}
