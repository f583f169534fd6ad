package core

import (
	"math"
	"time"
)

// UtilizationWarning is the utilization percentage from which a card is
// flagged as heavily used.
const UtilizationWarning = 80.0

// Utilization is balance over limit as a percentage, 0 for a zero limit.
func (c CreditCard) Utilization() float64 {
	if c.Limit == 0 {
		return 0
	}
	return c.CurrentBalance / c.Limit * 100
}

// DaysUntilDay counts the days from now to the next occurrence of the given
// day of the month. Today or a day already past wraps into next month by
// adding the number of days in the current month.
func DaysUntilDay(day int, now time.Time) int {
	days := day - now.Day()
	if days <= 0 {
		days += daysInMonth(now)
	}
	return days
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// CardStatement totals a card's transactions by type.
type CardStatement struct {
	CardID       string  `json:"cardId"`
	Purchases    float64 `json:"purchases"`
	Payments     float64 `json:"payments"`
	Fees         float64 `json:"fees"`
	Interest     float64 `json:"interest"`
	Transactions int     `json:"transactions"`
}

// Net is what the transactions add to the balance.
func (s CardStatement) Net() float64 {
	return s.Purchases + s.Fees + s.Interest - s.Payments
}

// CardSnapshot is a card with its derived figures.
type CardSnapshot struct {
	CreditCard
	Utilization     float64       `json:"utilization"`
	DaysUntilCutOff int           `json:"daysUntilCutOff"`
	DaysUntilDue    int           `json:"daysUntilDue"`
	Statement       CardStatement `json:"statement"`
}

// CardPortfolio aggregates every card of a state.
type CardPortfolio struct {
	TotalLimit         float64        `json:"totalCreditLimit"`
	TotalBalance       float64        `json:"totalCurrentBalance"`
	TotalAvailable     float64        `json:"totalAvailableCredit"`
	OverallUtilization float64        `json:"overallUtilization"`
	ActiveCards        int            `json:"activeCards"`
	Cards              []CardSnapshot `json:"cards"`
}

// NewCardPortfolio builds the portfolio view as of now. Transactions whose
// card does not exist are left out.
func NewCardPortfolio(cards []CreditCard, txs []CardTransaction, now time.Time) CardPortfolio {
	statements := make(map[string]*CardStatement, len(cards))
	for _, c := range cards {
		statements[c.ID] = &CardStatement{CardID: c.ID}
	}
	for _, tx := range txs {
		st, ok := statements[tx.CardID]
		if !ok {
			continue
		}
		st.Transactions++
		switch tx.Type {
		case TransactionPurchase:
			st.Purchases += tx.Amount
		case TransactionPayment:
			st.Payments += tx.Amount
		case TransactionFee:
			st.Fees += tx.Amount
		case TransactionInterest:
			st.Interest += tx.Amount
		}
	}

	p := CardPortfolio{Cards: make([]CardSnapshot, 0, len(cards))}
	for _, c := range cards {
		p.TotalLimit += c.Limit
		p.TotalBalance += c.CurrentBalance
		if c.IsActive {
			p.ActiveCards++
		}
		p.Cards = append(p.Cards, CardSnapshot{
			CreditCard:      c,
			Utilization:     c.Utilization(),
			DaysUntilCutOff: DaysUntilDay(c.CutOffDate, now),
			DaysUntilDue:    DaysUntilDay(c.DueDate, now),
			Statement:       *statements[c.ID],
		})
	}
	p.TotalAvailable = math.Max(p.TotalLimit-p.TotalBalance, 0)
	if p.TotalLimit > 0 {
		p.OverallUtilization = p.TotalBalance / p.TotalLimit * 100
	}
	return p
}
