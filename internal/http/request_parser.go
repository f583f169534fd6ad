// Package http provides the JSON API server and its handlers.
//
// This file implements request body parsing and the boundary
// normalization of record fields: numbers may arrive as JSON numbers or
// strings, and anything unparsable becomes 0 before it reaches the core.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trackit/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// ErrMalformedBody is returned for bodies that are neither a JSON object
// nor form data.
var ErrMalformedBody = errors.New("malformed request body")

// RequestBodyParser reads a JSON object or form-encoded body once and
// exposes its fields by name.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the request body, capped at maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse parses the body as a JSON object, falling back to form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = errors.Join(ErrMalformedBody, err)
		}
		return p.err
	}
	if trimmed[0] == '[' {
		p.err = ErrMalformedBody
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = errors.Join(ErrMalformedBody, p.err)
	}
	return p.err
}

// Has reports whether the field was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a sanitized string value.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Amount returns a finite number; unparsable input yields 0.
func (p *RequestBodyParser) Amount(key string) float64 {
	return core.ParseAmount(p.Get(key))
}

// Int returns an integer field such as a day of month; unparsable input
// yields 0.
func (p *RequestBodyParser) Int(key string) int {
	return core.ParseDayOfMonth(p.Get(key))
}

// Bool reads a boolean, falling back to def when the field is absent.
func (p *RequestBodyParser) Bool(key string, def bool) bool {
	if !p.Has(key) {
		return def
	}
	switch strings.ToLower(p.Get(key)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

// Date returns the field, or today when it is absent or blank.
func (p *RequestBodyParser) Date(key string, now time.Time) string {
	if v := p.Get(key); v != "" {
		return v
	}
	return now.Format(core.DateLayout)
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// The parse* functions build records from a parsed body. Ids are never
// taken from the body.

func parseIncome(p *RequestBodyParser, now time.Time) core.Income {
	return core.Income{
		Name:        p.Get("name"),
		Amount:      p.Amount("amount"),
		Frequency:   core.Frequency(p.Get("frequency")),
		Category:    p.Get("category"),
		Date:        p.Date("date", now),
		Description: p.Get("description"),
	}
}

func parseExpense(p *RequestBodyParser, now time.Time) core.Expense {
	e := core.Expense{
		Name:        p.Get("name"),
		Amount:      p.Amount("amount"),
		Type:        core.ExpenseType(p.Get("type")),
		Category:    p.Get("category"),
		Date:        p.Date("date", now),
		Description: p.Get("description"),
		IsRecurring: p.Bool("isRecurring", false),
	}
	if e.IsRecurring {
		e.Frequency = core.Frequency(p.Get("frequency"))
	}
	return e
}

func parseCategory(p *RequestBodyParser, _ time.Time) core.Category {
	return core.Category{
		Name:  p.Get("name"),
		Type:  core.CategoryType(p.Get("type")),
		Color: p.Get("color"),
		Icon:  p.Get("icon"),
	}
}

func parseCreditCard(p *RequestBodyParser, _ time.Time) core.CreditCard {
	c := core.CreditCard{
		Name:           p.Get("name"),
		Bank:           p.Get("bank"),
		Type:           core.CardType(p.Get("type")),
		Limit:          p.Amount("limit"),
		CurrentBalance: p.Amount("currentBalance"),
		CutOffDate:     p.Int("cutOffDate"),
		DueDate:        p.Int("dueDate"),
		InterestRate:   p.Amount("interestRate"),
		Color:          p.Get("color"),
		Icon:           p.Get("icon"),
		IsActive:       p.Bool("isActive", true),
		Description:    p.Get("description"),
	}
	if p.Has("availableCredit") {
		c.AvailableCredit = p.Amount("availableCredit")
	} else {
		c.AvailableCredit = c.Limit - c.CurrentBalance
	}
	return c
}

func parseCardTransaction(p *RequestBodyParser, now time.Time) core.CardTransaction {
	return core.CardTransaction{
		CardID:             p.Get("cardId"),
		Description:        p.Get("description"),
		Amount:             p.Amount("amount"),
		Type:               core.TransactionType(p.Get("type")),
		Date:               p.Date("date", now),
		Category:           p.Get("category"),
		Installments:       p.Int("installments"),
		CurrentInstallment: p.Int("currentInstallment"),
	}
}

func parseFinancialGoal(p *RequestBodyParser, now time.Time) core.FinancialGoal {
	g := core.FinancialGoal{
		Name:                p.Get("name"),
		Description:         p.Get("description"),
		TargetAmount:        p.Amount("targetAmount"),
		StartDate:           p.Date("startDate", now),
		TargetDate:          p.Get("targetDate"),
		Category:            core.GoalCategory(p.Get("category")),
		Priority:            core.Priority(p.Get("priority")),
		Status:              core.GoalStatus(p.Get("status")),
		Color:               p.Get("color"),
		Icon:                p.Get("icon"),
		MonthlyContribution: p.Amount("monthlyContribution"),
	}
	if g.Priority == "" {
		g.Priority = core.PriorityMedium
	}
	if g.Status == "" {
		g.Status = core.GoalActive
	}
	return g
}

func parseGoalContribution(p *RequestBodyParser, now time.Time) core.GoalContribution {
	return core.GoalContribution{
		GoalID:      p.Get("goalId"),
		Amount:      p.Amount("amount"),
		Date:        p.Date("date", now),
		Description: p.Get("description"),
	}
}
