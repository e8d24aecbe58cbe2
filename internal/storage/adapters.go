package storage

// PostgresRepo satisfies every repository interface directly; the method sets
// were named to line up. Keep these assertions so an interface drift fails the
// build instead of surfacing at wiring time.
var _ WorkItemRepo = (*PostgresRepo)(nil)
var _ PartnerRepo = (*PostgresRepo)(nil)
var _ MetricRepo = (*PostgresRepo)(nil)
var _ ActivityLogRepo = (*PostgresRepo)(nil)
var _ AgentRepo = (*PostgresRepo)(nil)
