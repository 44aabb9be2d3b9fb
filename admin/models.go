package admin

// Stats are the dashboard headline counts.
type Stats struct {
	TotalCustomers   int
	TotalWorkers     int
	TotalServices    int
	ActiveWorkers    int
	PendingApprovals int
	TotalRequests    int
	TotalOrders      int
	CompletedOrders  int
}

// Financial summarizes money movement. All amounts are integer cents.
type Financial struct {
	IncomeCents            int64
	CompletedJobValueCents int64
	OutstandingRewards     int
	RedeemedRewards        int
}

// Activity is a dashboard feed line. The feed is a static placeholder; there
// is no activity-log subsystem behind it.
type Activity struct {
	Label  string
	Detail string
}

type Dashboard struct {
	Stats            Stats
	Financial        Financial
	RecentActivities []Activity
}
