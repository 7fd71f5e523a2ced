package adaptive

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// Model pricing in cents per million tokens. Rates for the default parsing
// model; close enough for budgeting across the family.
const (
	inputCentsPerMTok  = 300
	outputCentsPerMTok = 1500

	// Estimation assumptions for the pre-flight check. Chinese quiz text runs
	// roughly one token per character; the response is bounded by max_tokens.
	estimatedOutputTokens = 1024
)

// CostOptimizer is the budget gate for AI parsing. All amounts are integer
// cents; spend is tracked per calendar day and month and persisted so limits
// survive restarts.
type CostOptimizer struct {
	mu    sync.Mutex
	usage models.BudgetUsage
	store *BudgetStore

	dailyLimitCents      int
	monthlyLimitCents    int
	perRequestLimitCents int

	now func() time.Time
}

// NewCostOptimizer reads limits from the environment. A zero limit means
// unlimited. store may be nil (in-memory only).
func NewCostOptimizer(store *BudgetStore) *CostOptimizer {
	c := &CostOptimizer{
		store:                store,
		dailyLimitCents:      envInt("AI_DAILY_BUDGET_CENTS", 200),
		monthlyLimitCents:    envInt("AI_MONTHLY_BUDGET_CENTS", 3000),
		perRequestLimitCents: envInt("AI_REQUEST_LIMIT_CENTS", 10),
		now:                  time.Now,
	}
	c.usage = models.BudgetUsage{Day: c.dayKey(), Month: c.monthKey()}

	if store != nil {
		usage, err := store.Load(c.usage.Day, c.usage.Month)
		if err != nil {
			log.Printf("WARN: could not load budget usage: %v", err)
		} else {
			c.usage = usage
		}
	}
	return c
}

// NewCostOptimizerWith sets explicit limits; used by tests.
func NewCostOptimizerWith(dailyCents, monthlyCents, perRequestCents int) *CostOptimizer {
	c := &CostOptimizer{
		dailyLimitCents:      dailyCents,
		monthlyLimitCents:    monthlyCents,
		perRequestLimitCents: perRequestCents,
		now:                  time.Now,
	}
	c.usage = models.BudgetUsage{Day: c.dayKey(), Month: c.monthKey()}
	return c
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		log.Printf("WARN: invalid %s=%q, using %d", key, os.Getenv(key), fallback)
	}
	return fallback
}

func (c *CostOptimizer) dayKey() string   { return c.now().Format("2006-01-02") }
func (c *CostOptimizer) monthKey() string { return c.now().Format("2006-01") }

// rollover resets the counters when the calendar day or month has changed.
// Callers hold the lock.
func (c *CostOptimizer) rollover() {
	if day := c.dayKey(); day != c.usage.Day {
		c.usage.Day = day
		c.usage.DayCents = 0
	}
	if month := c.monthKey(); month != c.usage.Month {
		c.usage.Month = month
		c.usage.MonthCents = 0
	}
}

// EstimateCents predicts the cost of one AI call from the input length,
// rounding up so the gate errs on the side of caution.
func (c *CostOptimizer) EstimateCents(inputChars int) int {
	inputTokens := inputChars
	cents := (inputTokens*inputCentsPerMTok + estimatedOutputTokens*outputCentsPerMTok) / 1_000_000
	return cents + 1
}

// ActualCents converts reported token usage to cents, rounding up with a
// 1-cent floor so repeated small calls still count against the budget.
func (c *CostOptimizer) ActualCents(promptTokens, outputTokens int) int {
	raw := promptTokens*inputCentsPerMTok + outputTokens*outputCentsPerMTok
	cents := raw / 1_000_000
	if raw%1_000_000 != 0 || cents == 0 {
		cents++
	}
	return cents
}

// CanUseAI reports whether a call with the given estimate fits every limit.
func (c *CostOptimizer) CanUseAI(estimatedCents int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()

	if c.perRequestLimitCents > 0 && estimatedCents > c.perRequestLimitCents {
		return false
	}
	if c.dailyLimitCents > 0 && c.usage.DayCents+estimatedCents > c.dailyLimitCents {
		return false
	}
	if c.monthlyLimitCents > 0 && c.usage.MonthCents+estimatedCents > c.monthlyLimitCents {
		return false
	}
	return true
}

// RecordSpend adds actual spend to the running totals and persists them.
func (c *CostOptimizer) RecordSpend(cents int) {
	if cents <= 0 {
		return
	}
	c.mu.Lock()
	c.rollover()
	c.usage.DayCents += cents
	c.usage.MonthCents += cents
	usage := c.usage
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(usage); err != nil {
			log.Printf("WARN: persist budget usage: %v", err)
		}
	}
}

// Status snapshots the limits and current spend for the settings UI.
func (c *CostOptimizer) Status() models.BudgetStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()

	return models.BudgetStatus{
		DailyLimitCents:      c.dailyLimitCents,
		MonthlyLimitCents:    c.monthlyLimitCents,
		PerRequestLimitCents: c.perRequestLimitCents,
		DayUsedCents:         c.usage.DayCents,
		MonthUsedCents:       c.usage.MonthCents,
		AIEnabled:            os.Getenv("AI_PARSER_ENABLED") != "false",
	}
}
