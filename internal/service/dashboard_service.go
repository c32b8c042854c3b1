package service

import (
	"sort"

	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
)

const (
	dashboardNotificationLimit = 10
	dashboardTopPerformers     = 5
	dashboardTrendDays         = 30
)

// DashboardService assembles role-dependent dashboard payloads. It only
// scopes and combines what the stats engine already computes.
type DashboardService struct {
	stats            *StatsService
	statsRepo        *repository.StatsRepository
	assessmentRepo   *repository.AssessmentRepository
	notificationRepo *repository.NotificationRepository
	deptRepo         *repository.DepartmentRepository
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	stats *StatsService,
	statsRepo *repository.StatsRepository,
	assessmentRepo *repository.AssessmentRepository,
	notificationRepo *repository.NotificationRepository,
	deptRepo *repository.DepartmentRepository,
) *DashboardService {
	return &DashboardService{
		stats:            stats,
		statsRepo:        statsRepo,
		assessmentRepo:   assessmentRepo,
		notificationRepo: notificationRepo,
		deptRepo:         deptRepo,
	}
}

// ForActor assembles the dashboard matching the actor's role
func (s *DashboardService) ForActor(actorID uint) (any, error) {
	actor, err := s.stats.getUser(actorID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role.IsElevated():
		return s.adminDashboard()
	case actor.Role == models.RoleManager:
		return s.managerDashboard(actor)
	default:
		return s.employeeDashboard(actor)
	}
}

func (s *DashboardService) employeeDashboard(actor *models.User) (*models.EmployeeDashboard, error) {
	stats, err := s.stats.userStats(actor.ID)
	if err != nil {
		return nil, err
	}

	notifications, err := s.notificationRepo.ListByUser(actor.ID, false, dashboardNotificationLimit)
	if err != nil {
		return nil, err
	}

	recommended, err := s.statsRepo.RecommendedSkills(actor.ID)
	if err != nil {
		return nil, err
	}

	return &models.EmployeeDashboard{
		Stats:             *stats,
		Notifications:     notifications,
		RecommendedSkills: recommended,
	}, nil
}

func (s *DashboardService) managerDashboard(actor *models.User) (*models.ManagerDashboard, error) {
	stats, err := s.stats.departmentStats(actor.DepartmentID)
	if err != nil {
		return nil, err
	}

	gaps, err := s.stats.skillGaps(actor.DepartmentID)
	if err != nil {
		return nil, err
	}

	pending := models.StatusPending
	queue, err := s.assessmentRepo.List(repository.AssessmentFilters{
		DepartmentID: &actor.DepartmentID,
		Status:       &pending,
	})
	if err != nil {
		return nil, err
	}
	// Oldest submissions first, so the queue drains in arrival order.
	sort.Slice(queue, func(i, j int) bool {
		return queue[i].AssessedAt.Before(queue[j].AssessedAt)
	})

	performers, err := s.statsRepo.TopPerformers(actor.DepartmentID, dashboardTopPerformers)
	if err != nil {
		return nil, err
	}

	return &models.ManagerDashboard{
		Stats:         *stats,
		SkillGaps:     gaps,
		PendingQueue:  queue,
		TopPerformers: performers,
	}, nil
}

func (s *DashboardService) adminDashboard() (*models.AdminDashboard, error) {
	totals, err := s.statsRepo.CompanyTotals()
	if err != nil {
		return nil, err
	}

	departments, err := s.deptRepo.List()
	if err != nil {
		return nil, err
	}

	deptStats := make([]models.DepartmentStats, 0, len(departments))
	for _, dept := range departments {
		stats, err := s.stats.departmentStats(dept.ID)
		if err != nil {
			return nil, err
		}
		deptStats = append(deptStats, *stats)
	}

	categories, err := s.statsRepo.CategoryStats(nil)
	if err != nil {
		return nil, err
	}

	trend, err := s.stats.trend(dashboardTrendDays)
	if err != nil {
		return nil, err
	}

	return &models.AdminDashboard{
		Totals:          *totals,
		DepartmentStats: deptStats,
		CategoryStats:   categories,
		ActivityTrend:   trend,
	}, nil
}
