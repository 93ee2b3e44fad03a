package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// deadlineInput is the calculateDeadline contract.
type deadlineInput struct {
	StartDate    string `json:"start_date"` // YYYY-MM-DD
	Days         int    `json:"days"`
	BusinessDays bool   `json:"business_days"`
}

// deadlineResult is what the model receives back.
type deadlineResult struct {
	Deadline     string `json:"deadline"` // YYYY-MM-DD
	Weekday      string `json:"weekday"`
	DaysCounted  int    `json:"days_counted"`
	BusinessDays bool   `json:"business_days"`
}

// nationalHolidays are fixed-date Spanish national holidays (month, day).
// Regional and movable holidays are out of scope for the calculator.
var nationalHolidays = map[[2]int]bool{
	{1, 1}:   true, // Año Nuevo
	{1, 6}:   true, // Epifanía
	{5, 1}:   true, // Día del Trabajo
	{8, 15}:  true, // Asunción
	{10, 12}: true, // Fiesta Nacional
	{11, 1}:  true, // Todos los Santos
	{12, 6}:  true, // Constitución
	{12, 8}:  true, // Inmaculada
	{12, 25}: true, // Navidad
}

// NewDeadlineTool builds the calculateDeadline deterministic tool.
func NewDeadlineTool() *DeterministicTool {
	return &DeterministicTool{
		ToolName:    "calculateDeadline",
		Description: "Calcula la fecha límite a partir de una fecha de inicio y un número de días, hábiles o naturales.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"start_date":    map[string]any{"type": "string", "description": "Fecha de inicio, formato YYYY-MM-DD"},
				"days":          map[string]any{"type": "integer", "description": "Número de días a contar"},
				"business_days": map[string]any{"type": "boolean", "description": "true para días hábiles, false para naturales"},
			},
			"required": []string{"start_date", "days"},
		},
		Run: func(ctx context.Context, input json.RawMessage) (any, error) {
			var in deadlineInput
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("invalid calculateDeadline input: %w", err)
			}
			if in.Days <= 0 {
				return nil, fmt.Errorf("days must be positive, got %d", in.Days)
			}

			start, err := time.Parse("2006-01-02", in.StartDate)
			if err != nil {
				return nil, fmt.Errorf("invalid start_date %q: %w", in.StartDate, err)
			}

			deadline := addDays(start, in.Days, in.BusinessDays)
			return &deadlineResult{
				Deadline:     deadline.Format("2006-01-02"),
				Weekday:      deadline.Weekday().String(),
				DaysCounted:  in.Days,
				BusinessDays: in.BusinessDays,
			}, nil
		},
	}
}

// addDays advances start by n days. In business-days mode weekends and
// national holidays do not count; the result also never lands on one.
func addDays(start time.Time, n int, business bool) time.Time {
	if !business {
		return start.AddDate(0, 0, n)
	}

	d := start
	for counted := 0; counted < n; {
		d = d.AddDate(0, 0, 1)
		if isBusinessDay(d) {
			counted++
		}
	}
	return d
}

func isBusinessDay(d time.Time) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	return !nationalHolidays[[2]int{int(d.Month()), d.Day()}]
}
