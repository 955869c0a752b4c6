package domainintel

import "time"

// Status is the terminal state of a registry lookup.
type Status string

const (
	StatusResolved       Status = "resolved"
	StatusTimedOut       Status = "timed_out"
	StatusNotFound       Status = "not_found"
	StatusRateLimited    Status = "rate_limited"
	StatusTransientError Status = "transient_error"
)

// Failed reports whether the lookup produced no registration data.
func (s Status) Failed() bool {
	return s != StatusResolved
}

// Unknown marks an age or lifespan the registry did not provide.
const Unknown = -1

// DomainRecord is the cached outcome of resolving one hostname.
// Records are never mutated after they enter the cache.
type DomainRecord struct {
	Hostname     string     `json:"hostname"`
	Status       Status     `json:"status"`
	AgeDays      int        `json:"age_days"`
	LifespanDays int        `json:"lifespan_days"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Registrar    string     `json:"registrar,omitempty"`
	ResolvedAt   time.Time  `json:"resolved_at"`
	Attempts     int        `json:"attempts"`
}

// Sentinel returns a record carrying no registration data.
func Sentinel(hostname string, status Status, attempts int, at time.Time) DomainRecord {
	return DomainRecord{
		Hostname:     hostname,
		Status:       status,
		AgeDays:      Unknown,
		LifespanDays: Unknown,
		ResolvedAt:   at,
		Attempts:     attempts,
	}
}

// Registration is what a registry returns for a domain. Zero times mean the
// field was absent from the response.
type Registration struct {
	CreatedAt time.Time
	ExpiresAt time.Time
	Registrar string
}

// recordFrom turns a successful registration into a Resolved record.
func recordFrom(hostname string, reg Registration, attempts int, now time.Time) DomainRecord {
	rec := Sentinel(hostname, StatusResolved, attempts, now)
	rec.Registrar = reg.Registrar

	if !reg.CreatedAt.IsZero() {
		created := reg.CreatedAt.UTC()
		rec.CreatedAt = &created
		rec.AgeDays = daysBetween(created, now)
	}
	if !reg.ExpiresAt.IsZero() {
		expires := reg.ExpiresAt.UTC()
		rec.ExpiresAt = &expires
		if rec.CreatedAt != nil {
			rec.LifespanDays = daysBetween(*rec.CreatedAt, expires)
		}
	}
	return rec
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
