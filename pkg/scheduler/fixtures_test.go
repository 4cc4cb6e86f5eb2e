package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fieldops/dispatch-api/pkg/models"
	"github.com/fieldops/dispatch-api/pkg/timewindow"
)

const tenant = "acme-pest"

var day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func win(startH, startM, endH, endM int) timewindow.TimeWindow {
	return timewindow.MustNew(
		day.Add(time.Duration(startH)*time.Hour+time.Duration(startM)*time.Minute),
		day.Add(time.Duration(endH)*time.Hour+time.Duration(endM)*time.Minute),
	)
}

func tech(id string, skills ...string) models.Technician {
	t := models.Technician{ID: id, TenantID: tenant, Name: id, Status: models.TechnicianActive}
	for _, s := range skills {
		t.Skills = append(t.Skills, models.Skill{Name: s})
	}
	return t
}

func job(id string, w timewindow.TimeWindow, skills ...string) models.Job {
	j := models.Job{ID: id, TenantID: tenant, Location: "site-" + id, Window: w, Status: models.JobUnassigned}
	for _, s := range skills {
		j.RequiredSkills = append(j.RequiredSkills, models.Skill{Name: s})
	}
	return j
}

func commit(jobID string, w timewindow.TimeWindow) models.Commitment {
	return models.Commitment{JobID: jobID, Window: w}
}

// memStore is an in-memory TechnicianDirectory, JobStore and
// ScheduleRepository.
type memStore struct {
	mu          sync.Mutex
	technicians []models.Technician
	jobs        map[string]models.Job
	saved       []models.PlanEntry
	saveErr     map[string]error
}

func newMemStore() *memStore {
	return &memStore{jobs: map[string]models.Job{}, saveErr: map[string]error{}}
}

func (m *memStore) addJob(j models.Job) { m.jobs[j.ID] = j }

func (m *memStore) ListActive(_ context.Context, tenantID string) ([]models.Technician, error) {
	var out []models.Technician
	for _, t := range m.technicians {
		if t.TenantID == tenantID && t.Status == models.TechnicianActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) Technician(_ context.Context, tenantID, id string) (models.Technician, error) {
	for _, t := range m.technicians {
		if t.TenantID == tenantID && t.ID == id {
			return t, nil
		}
	}
	return models.Technician{}, ErrTechnicianNotFound
}

func (m *memStore) Job(_ context.Context, tenantID, id string) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.TenantID != tenantID {
		return models.Job{}, ErrJobNotFound
	}
	return j, nil
}

func (m *memStore) UnassignedJobs(_ context.Context, tenantID string, rng timewindow.TimeWindow) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Job
	for _, j := range m.jobs {
		if j.TenantID == tenantID && j.Unassigned() && j.Window.Overlaps(rng) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (m *memStore) CommittedWindows(_ context.Context, tenantID, techID string, rng timewindow.TimeWindow) ([]models.Commitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Commitment
	for _, j := range m.jobs {
		if j.TenantID != tenantID || j.AssignedTechnicianID == nil || *j.AssignedTechnicianID != techID {
			continue
		}
		if j.Status.Committed() && j.Window.Overlaps(rng) {
			out = append(out, models.Commitment{JobID: j.ID, Location: j.Location, Window: j.Window})
		}
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, tenantID string, e models.PlanEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.saveErr[e.JobID]; err != nil {
		return err
	}
	j, ok := m.jobs[e.JobID]
	if !ok || j.TenantID != tenantID {
		return ErrJobNotFound
	}
	techID := e.TechnicianID
	j.AssignedTechnicianID = &techID
	j.Window = e.Window
	j.Status = models.JobScheduled
	m.jobs[e.JobID] = j
	m.saved = append(m.saved, e)
	return nil
}
