package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

// dueSoonWindow is how far ahead a task counts as upcoming.
const dueSoonWindow = 7 * 24 * time.Hour

const maxActivityEntries = 5

// Backend is the slice of the upstream client the aggregator needs.
type Backend interface {
	DashboardAnalytics(ctx context.Context, token string) (*upstream.AnalyticsSummary, error)
	ListTasks(ctx context.Context, token string) ([]upstream.Task, error)
	MyTasks(ctx context.Context, token string) ([]upstream.Task, error)
	ListUsers(ctx context.Context, token string) ([]upstream.User, error)
}

// Service loads the dashboard summary for a principal.
type Service struct {
	backend Backend
	cache   *Cache
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires the aggregator.
func NewService(backend Backend, cache *Cache, logger *slog.Logger) *Service {
	return &Service{backend: backend, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the aggregator clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Load produces the canonical summary. The analytics endpoint is preferred;
// when it fails the statistics are recomputed from the role-appropriate raw
// task list. Only a 401 propagates without a fallback attempt.
func (s *Service) Load(ctx context.Context, token string, principal *rbac.Principal) (*Summary, error) {
	if principal == nil {
		return nil, fmt.Errorf("dashboard: principal required")
	}
	if cached, ok := s.cache.Get(ctx, principal.ID); ok {
		return cached, nil
	}

	analytics, err := s.backend.DashboardAnalytics(ctx, token)
	if err == nil {
		summary := s.fromAnalytics(principal, analytics)
		s.cache.Set(ctx, principal.ID, summary)
		return summary, nil
	}
	if upstream.IsUnauthorized(err) {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Warn("analytics endpoint failed, recomputing client-side",
			slog.String("role", string(principal.Role)), slog.Any("error", err))
	}

	summary, err := s.recompute(ctx, token, principal)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, principal.ID, summary)
	return summary, nil
}

// fromAnalytics normalizes the role-shaped backend aggregate.
func (s *Service) fromAnalytics(principal *rbac.Principal, in *upstream.AnalyticsSummary) *Summary {
	summary := &Summary{
		Tasks: TaskStats{
			Total:      value(in.TotalTasks),
			Pending:    value(in.PendingTasks),
			InProgress: value(in.InProgressTasks),
			Completed:  value(in.CompletedTasks),
			Overdue:    value(in.OverdueTasks),
		},
	}
	if in.TotalUsers != nil {
		summary.Users = &UserStats{Total: *in.TotalUsers, Active: value(in.ActiveUsers)}
	}
	if principal.Role == rbac.RoleSuperAdmin && in.TotalCompanies != nil {
		summary.Companies = &CompanyStats{Total: *in.TotalCompanies, Active: value(in.ActiveCompanies)}
	}
	summary.AssignedToMe = in.AssignedToMe
	if rbac.HasPermission(principal, rbac.PermAssignTasks) {
		summary.AssignedByMe = in.AssignedByMe
	}
	summary.RecentActivity = ensureActivity(nil, principal)
	return summary
}

// recompute rebuilds every statistic from raw listings. Super admins have no
// fallback task data, so their summary degrades to zero counts plus an
// explanatory activity entry.
func (s *Service) recompute(ctx context.Context, token string, principal *rbac.Principal) (*Summary, error) {
	if principal.Role == rbac.RoleSuperAdmin {
		return &Summary{
			Companies:      &CompanyStats{},
			RecentActivity: []string{"Analytics are temporarily unavailable; platform totals will return shortly."},
		}, nil
	}

	var (
		tasksList []upstream.Task
		users     []upstream.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if principal.Role == rbac.RoleUser {
			tasksList, err = s.backend.MyTasks(gctx, token)
		} else {
			tasksList, err = s.backend.ListTasks(gctx, token)
		}
		return err
	})
	if principal.Role == rbac.RoleCompany || principal.Role == rbac.RoleAdmin {
		g.Go(func() error {
			var err error
			users, err = s.backend.ListUsers(gctx, token)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	summary := &Summary{Tasks: computeTaskStats(tasksList, now)}
	if users != nil {
		stats := UserStats{Total: int64(len(users))}
		for _, u := range users {
			if u.IsActive {
				stats.Active++
			}
		}
		summary.Users = &stats
	}
	if rbac.HasPermission(principal, rbac.PermAssignTasks) && principal.Role != rbac.RoleUser {
		var byMe int64
		for _, task := range tasksList {
			if task.AssignedByID == principal.ID {
				byMe++
			}
		}
		summary.AssignedByMe = &byMe
	}
	summary.RecentActivity = ensureActivity(deriveActivity(tasksList, now), principal)
	return summary, nil
}

func computeTaskStats(tasksList []upstream.Task, now time.Time) TaskStats {
	stats := TaskStats{Total: int64(len(tasksList))}
	for _, task := range tasksList {
		switch task.Status {
		case upstream.StatusPending:
			stats.Pending++
		case upstream.StatusInProgress:
			stats.InProgress++
		case upstream.StatusCompleted:
			stats.Completed++
		}
		if task.Status == upstream.StatusCompleted {
			continue
		}
		if task.DueDate.Before(now) {
			stats.Overdue++
		} else if task.DueDate.Before(now.Add(dueSoonWindow)) {
			stats.DueSoon++
		}
	}
	return stats
}

// deriveActivity turns the freshest tasks into short human-readable lines.
func deriveActivity(tasksList []upstream.Task, now time.Time) []string {
	if len(tasksList) == 0 {
		return nil
	}
	sorted := make([]upstream.Task, len(tasksList))
	copy(sorted, tasksList)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if len(sorted) > maxActivityEntries {
		sorted = sorted[:maxActivityEntries]
	}
	lines := make([]string, 0, len(sorted))
	for _, task := range sorted {
		switch {
		case task.Status == upstream.StatusCompleted:
			lines = append(lines, fmt.Sprintf("%q was completed", task.Title))
		case task.Status != upstream.StatusCompleted && task.DueDate.Before(now):
			lines = append(lines, fmt.Sprintf("%q is overdue", task.Title))
		default:
			lines = append(lines, fmt.Sprintf("%q is %s, due %s", task.Title, task.Status, task.DueDate.Format("Jan 2")))
		}
	}
	return lines
}

// ensureActivity guarantees the activity list is never empty.
func ensureActivity(lines []string, principal *rbac.Principal) []string {
	if len(lines) > 0 {
		return lines
	}
	switch principal.Role {
	case rbac.RoleSuperAdmin:
		return []string{"Welcome back. Platform activity will appear here."}
	case rbac.RoleCompany, rbac.RoleAdmin:
		return []string{"Welcome back. Your team's task activity will appear here."}
	default:
		return []string{"Welcome back. Tasks assigned to you will appear here."}
	}
}

func value(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
