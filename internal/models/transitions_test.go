package models

import "testing"

func TestVisitAllowedTransitions(t *testing.T) {
	cases := []struct {
		from    VisitStatus
		to      VisitStatus
		allowed bool
	}{
		{VisitStatusWaiting, VisitStatusInConsultation, true},
		{VisitStatusWaiting, VisitStatusAdmitted, true},
		{VisitStatusWaiting, VisitStatusCompleted, false},
		{VisitStatusInConsultation, VisitStatusCompleted, true},
		{VisitStatusInConsultation, VisitStatusAdmitted, true},
		{VisitStatusInConsultation, VisitStatusWaiting, false},
		{VisitStatusAdmitted, VisitStatusDischarged, true},
		{VisitStatusAdmitted, VisitStatusCompleted, false},
		{VisitStatusCompleted, VisitStatusInConsultation, false},
		// cancellation from non-terminal states only
		{VisitStatusWaiting, VisitStatusCancelled, true},
		{VisitStatusAdmitted, VisitStatusCancelled, true},
		{VisitStatusCompleted, VisitStatusCancelled, false},
		{VisitStatusDischarged, VisitStatusCancelled, false},
		{VisitStatusCancelled, VisitStatusCancelled, false},
	}
	for _, c := range cases {
		v := Visit{Status: c.from}
		if got := v.AllowedTransition(c.to); got != c.allowed {
			t.Errorf("visit %s -> %s = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestLeadAllowedTransitions(t *testing.T) {
	cases := []struct {
		from    LeadStatus
		to      LeadStatus
		allowed bool
	}{
		{LeadStatusNew, LeadStatusContacted, true},
		{LeadStatusNew, LeadStatusQualified, false},
		{LeadStatusContacted, LeadStatusQualified, true},
		{LeadStatusQualified, LeadStatusConverted, true},
		{LeadStatusQualified, LeadStatusContacted, false},
		{LeadStatusConverted, LeadStatusLost, false},
		{LeadStatusNew, LeadStatusLost, true},
		{LeadStatusQualified, LeadStatusLost, true},
		// a lost lead can be reopened
		{LeadStatusLost, LeadStatusContacted, true},
		{LeadStatusLost, LeadStatusQualified, false},
	}
	for _, c := range cases {
		l := Lead{Status: c.from}
		if got := l.AllowedTransition(c.to); got != c.allowed {
			t.Errorf("lead %s -> %s = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}
