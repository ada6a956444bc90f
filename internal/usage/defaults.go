package usage

import "time"

// Policy is the plan applied to users without a stored usage row.
type Policy struct {
	Plan   string
	Limit  int
	Window time.Duration
}

// DefaultPolicy allows ten scored analyses per week.
func DefaultPolicy() Policy {
	return Policy{Plan: "Starter", Limit: 10, Window: 7 * 24 * time.Hour}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.Plan == "" {
		p.Plan = d.Plan
	}
	if p.Limit <= 0 {
		p.Limit = d.Limit
	}
	if p.Window <= 0 {
		p.Window = d.Window
	}
	return p
}

func (p Policy) fresh(now time.Time) Usage {
	return Usage{
		Plan:     p.Plan,
		Limit:    p.Limit,
		Used:     0,
		ResetsAt: now.Add(p.Window),
	}
}

// expired reports whether the window has elapsed at now.
func expired(u Usage, now time.Time) bool {
	return !now.Before(u.ResetsAt)
}
