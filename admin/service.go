package admin

import "context"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Dashboard assembles the admin landing view: headline counts, the financial
// snapshot, and the placeholder activity feed.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	stats, err := s.repo.Counts(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	money, err := s.repo.Money(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Stats:            stats,
		Financial:        money,
		RecentActivities: recentActivities(),
	}, nil
}

func recentActivities() []Activity {
	return []Activity{
		{Label: "System", Detail: "Dashboard refreshed"},
		{Label: "Workers", Detail: "Approval queue up to date"},
		{Label: "Rewards", Detail: "Threshold checks running on every payment"},
	}
}
