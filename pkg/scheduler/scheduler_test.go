package scheduler

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

func TestAssignSimple(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	plan := s.Assign(Input{
		TenantID:    tenant,
		Jobs:        []models.Job{job("j1", win(9, 0, 11, 0))},
		Technicians: []models.Technician{tech("t1"), tech("t2")},
	})

	if len(plan.Entries) != 1 {
		t.Fatalf("Expected 1 assignment, got %d", len(plan.Entries))
	}
	if plan.Entries[0].TechnicianID != "t1" {
		t.Errorf("Expected tie to break on technician ID, got %s", plan.Entries[0].TechnicianID)
	}
	if len(plan.UnassignedJobIDs) != 0 {
		t.Errorf("Expected no unassigned jobs, got %v", plan.UnassignedJobIDs)
	}
}

func TestAssign_Overlap(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	plan := s.Assign(Input{
		TenantID: tenant,
		Jobs: []models.Job{
			job("late", win(10, 0, 12, 0), "termite-cert"),
			job("early", win(9, 0, 11, 0), "termite-cert"),
		},
		Technicians: []models.Technician{tech("t1", "termite-cert"), tech("t2", "rodent")},
	})

	if len(plan.Entries) != 1 || plan.Entries[0].JobID != "early" || plan.Entries[0].TechnicianID != "t1" {
		t.Fatalf("Expected the earlier job to go to t1, got %+v", plan.Entries)
	}
	if !reflect.DeepEqual(plan.UnassignedJobIDs, []string{"late"}) {
		t.Errorf("Expected [late] unassigned, got %v", plan.UnassignedJobIDs)
	}
	if plan.Reasons["late"] != ReasonNoEligibleTechnician {
		t.Errorf("unexpected reason %q", plan.Reasons["late"])
	}
}

func TestAssign_SpecificJobsFirst(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	plan := s.Assign(Input{
		TenantID: tenant,
		Jobs: []models.Job{
			job("general", win(9, 0, 10, 0), "inspection"),
			job("specific", win(9, 0, 10, 0), "inspection", "fumigation"),
		},
		Technicians: []models.Technician{tech("t1", "inspection", "fumigation"), tech("t2", "inspection")},
	})

	got := map[string]string{}
	for _, e := range plan.Entries {
		got[e.JobID] = e.TechnicianID
	}
	if got["specific"] != "t1" || got["general"] != "t2" {
		t.Errorf("Expected specific->t1 and general->t2, got %v", got)
	}
}

func TestAssign_SpreadsLoad(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	plan := s.Assign(Input{
		TenantID: tenant,
		Jobs: []models.Job{
			job("j1", win(9, 0, 10, 0)),
			job("j2", win(10, 0, 11, 0)),
			job("j3", win(11, 0, 12, 0)),
		},
		Technicians: []models.Technician{tech("t1"), tech("t2")},
	})

	want := []string{"t1", "t2", "t1"}
	if len(plan.Entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(plan.Entries))
	}
	for i, e := range plan.Entries {
		if e.TechnicianID != want[i] {
			t.Errorf("entry %d (%s): got %s, want %s", i, e.JobID, e.TechnicianID, want[i])
		}
	}
}

func TestAssign_ExistingCommitments(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	existing := map[string][]models.Commitment{
		"t1": {commit("old", win(9, 0, 12, 0))},
	}
	assignedTo := "t2"
	prior := job("prior", win(13, 0, 14, 0))
	prior.AssignedTechnicianID = &assignedTo
	prior.Status = models.JobScheduled

	plan := s.Assign(Input{
		TenantID: tenant,
		Jobs: []models.Job{
			prior,
			job("morning", win(10, 0, 11, 0)),
			job("afternoon", win(13, 30, 14, 30)),
		},
		Technicians: []models.Technician{tech("t1"), tech("t2")},
		Commitments: existing,
	})

	got := map[string]string{}
	for _, e := range plan.Entries {
		got[e.JobID] = e.TechnicianID
	}
	if got["morning"] != "t2" {
		t.Errorf("t1 is busy in the morning, got %v", got)
	}
	if got["afternoon"] != "t1" {
		t.Errorf("t2 holds the prior job in the afternoon, got %v", got)
	}
	if _, ok := got["prior"]; ok {
		t.Error("already assigned jobs must not be re-planned")
	}
	if len(existing["t1"]) != 1 {
		t.Error("input commitments were mutated")
	}
}

func TestAssign_ReportsUnplaceableJobs(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	foreign := job("foreign", win(9, 0, 10, 0))
	foreign.TenantID = "other"
	broken := models.Job{ID: "broken", TenantID: tenant}

	plan := s.Assign(Input{
		TenantID:    tenant,
		Jobs:        []models.Job{foreign, broken, job("bees", win(9, 0, 10, 0), "beekeeping")},
		Technicians: []models.Technician{tech("t1")},
	})

	if len(plan.Entries) != 0 {
		t.Fatalf("Expected no entries, got %+v", plan.Entries)
	}
	want := map[string]string{
		"foreign": ReasonOtherTenant,
		"broken":  ReasonInvalidWindow,
		"bees":    ReasonNoEligibleTechnician,
	}
	if !reflect.DeepEqual(plan.Reasons, want) {
		t.Errorf("reasons = %v, want %v", plan.Reasons, want)
	}
	if len(plan.UnassignedJobIDs) != 3 {
		t.Errorf("every job must be reported, got %v", plan.UnassignedJobIDs)
	}
}

func TestAssign_BalanceScore(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	even := s.Assign(Input{
		TenantID:    tenant,
		Jobs:        []models.Job{job("j1", win(9, 0, 11, 0)), job("j2", win(9, 0, 11, 0))},
		Technicians: []models.Technician{tech("t1"), tech("t2")},
	})
	if even.BalanceScore != 100 {
		t.Errorf("Expected 100 for an even plan, got %f", even.BalanceScore)
	}

	uneven := s.Assign(Input{
		TenantID:    tenant,
		Jobs:        []models.Job{job("j1", win(9, 0, 11, 0))},
		Technicians: []models.Technician{tech("t1"), tech("t2")},
	})
	if uneven.BalanceScore != 0 {
		t.Errorf("Expected 0 when one of two technicians takes all hours, got %f", uneven.BalanceScore)
	}
}

func randomInput(r *rand.Rand) Input {
	skills := []string{"termite-cert", "rodent", "fumigation"}
	in := Input{TenantID: tenant, Commitments: map[string][]models.Commitment{}}
	for i := 0; i < 6; i++ {
		var ts []string
		for _, s := range skills {
			if r.Intn(2) == 0 {
				ts = append(ts, s)
			}
		}
		tc := tech(fmt.Sprintf("t%d", i), ts...)
		if r.Intn(8) == 0 {
			tc.Status = models.TechnicianOnLeave
		}
		in.Technicians = append(in.Technicians, tc)
		if r.Intn(3) == 0 {
			start := day.Add(time.Duration(6+r.Intn(10)) * time.Hour)
			in.Commitments[tc.ID] = []models.Commitment{commit(fmt.Sprintf("c%d", i), timewindow.MustNew(start, start.Add(90*time.Minute)))}
		}
	}
	for i := 0; i < 25; i++ {
		start := day.Add(time.Duration(6*4+r.Intn(12*4)) * 15 * time.Minute)
		w := timewindow.MustNew(start, start.Add(time.Duration(2+r.Intn(10))*15*time.Minute))
		var req []string
		if r.Intn(2) == 0 {
			req = append(req, skills[r.Intn(len(skills))])
		}
		in.Jobs = append(in.Jobs, job(fmt.Sprintf("j%02d", i), w, req...))
	}
	return in
}

func TestAssign_Deterministic(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	for seed := int64(1); seed <= 20; seed++ {
		first := s.Assign(randomInput(rand.New(rand.NewSource(seed))))
		second := s.Assign(randomInput(rand.New(rand.NewSource(seed))))
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("seed %d: plans differ\n%+v\n%+v", seed, first, second)
		}
	}
}

func TestAssign_NeverDoubleBooks(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	for seed := int64(1); seed <= 50; seed++ {
		in := randomInput(rand.New(rand.NewSource(seed)))
		plan := s.Assign(in)

		jobs := map[string]models.Job{}
		for _, j := range in.Jobs {
			jobs[j.ID] = j
		}
		byTech := map[string][]timewindow.TimeWindow{}
		for techID, list := range in.Commitments {
			for _, c := range list {
				byTech[techID] = append(byTech[techID], c.Window)
			}
		}
		for _, e := range plan.Entries {
			j := jobs[e.JobID]
			var tc models.Technician
			for _, cand := range in.Technicians {
				if cand.ID == e.TechnicianID {
					tc = cand
				}
			}
			if tc.Status != models.TechnicianActive {
				t.Fatalf("seed %d: job %s went to non-active technician %s", seed, e.JobID, tc.ID)
			}
			if !tc.HasSkills(j.RequiredSkills) {
				t.Fatalf("seed %d: technician %s lacks skills for %s", seed, tc.ID, e.JobID)
			}
			for _, w := range byTech[e.TechnicianID] {
				if w.Overlaps(e.Window) {
					t.Fatalf("seed %d: technician %s double-booked at %s", seed, e.TechnicianID, e.Window)
				}
			}
			byTech[e.TechnicianID] = append(byTech[e.TechnicianID], e.Window)
		}
		if len(plan.Entries)+len(plan.UnassignedJobIDs) != len(in.Jobs) {
			t.Fatalf("seed %d: %d entries + %d unassigned != %d jobs", seed,
				len(plan.Entries), len(plan.UnassignedJobIDs), len(in.Jobs))
		}
	}
}
