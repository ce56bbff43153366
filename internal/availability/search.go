package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nmoretto/turnero/internal/calendar"
	"github.com/nmoretto/turnero/internal/professionals"
	"github.com/nmoretto/turnero/pkg/logging"
)

// ErrAmbiguousFilter is returned when a filter carries neither a specific
// time nor an hour range. The engine refuses before touching the gateway.
var ErrAmbiguousFilter = errors.New("availability: filter requires a specific time or an hour range")

// HourRange is a half-open clock-hour window [Start, End).
type HourRange struct {
	Start int
	End   int
}

// Filter is a fuzzy time request extracted from a tool call. Date is
// optional; SpecificTime ("15:04") and Range are mutually exclusive, with
// SpecificTime taking precedence when both arrive.
type Filter struct {
	Date         string // "2006-01-02", empty rolls forward day by day
	SpecificTime string
	Range        *HourRange
}

// Options tunes the search engine.
type Options struct {
	HorizonDays    int // days to roll forward when no date is given
	WorkHoursStart int
	WorkHoursEnd   int
	Now            func() time.Time
}

// Searcher finds concrete free slots for fuzzy time requests by probing the
// calendar gateway across a professional pool.
type Searcher struct {
	gateway   calendar.Gateway
	logger    *logging.Logger
	loc       *time.Location
	horizon   int
	workStart int
	workEnd   int
	now       func() time.Time
}

// NewSearcher builds a search engine over the given gateway.
func NewSearcher(gateway calendar.Gateway, loc *time.Location, logger *logging.Logger, opts Options) *Searcher {
	if gateway == nil {
		panic("availability: gateway required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 7
	}
	if opts.WorkHoursEnd <= opts.WorkHoursStart {
		opts.WorkHoursStart, opts.WorkHoursEnd = 9, 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Searcher{
		gateway:   gateway,
		logger:    logger,
		loc:       loc,
		horizon:   opts.HorizonDays,
		workStart: opts.WorkHoursStart,
		workEnd:   opts.WorkHoursEnd,
		now:       opts.Now,
	}
}

// FindSlots resolves one filter against the pool and returns human-readable
// slot descriptions. The first day that yields anything wins; later days are
// not probed even if they might offer better slots.
func (s *Searcher) FindSlots(ctx context.Context, pool []professionals.Professional, duration time.Duration, f Filter) ([]string, error) {
	if f.SpecificTime == "" && f.Range == nil {
		return nil, ErrAmbiguousFilter
	}

	dates, err := s.candidateDates(f.Date)
	if err != nil {
		return nil, err
	}

	var results []string
	found := false

	for _, day := range dates {
		if f.SpecificTime != "" {
			opts, ok, err := s.searchSpecificTime(ctx, pool, day, f.SpecificTime, duration)
			if err != nil {
				return nil, err
			}
			if ok {
				results = append(results, opts...)
				found = true
				break
			}
			continue
		}

		slots := s.searchRange(ctx, pool, day, *f.Range, duration)
		if len(slots) > 0 {
			results = append(results, fmt.Sprintf("%s %s: %s",
				spanishWeekday(day), day.Format("02/01"), strings.Join(slots, ", ")))
			found = true
			break
		}
	}

	if !found {
		results = append(results, "No encontré disponibilidad para ese criterio en los próximos días.")
	}
	return results, nil
}

func (s *Searcher) candidateDates(dateStr string) ([]time.Time, error) {
	if dateStr != "" {
		d, err := time.ParseInLocation("2006-01-02", dateStr, s.loc)
		if err != nil {
			return nil, fmt.Errorf("availability: bad date %q: %w", dateStr, err)
		}
		return []time.Time{d}, nil
	}

	today := s.now().In(s.loc)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc)
	dates := make([]time.Time, 0, s.horizon)
	for i := 0; i < s.horizon; i++ {
		dates = append(dates, today.AddDate(0, 0, i))
	}
	return dates, nil
}

// searchSpecificTime runs the exact -> near offsets -> next days strategy.
func (s *Searcher) searchSpecificTime(ctx context.Context, pool []professionals.Professional, day time.Time, clock string, duration time.Duration) ([]string, bool, error) {
	t, err := time.ParseInLocation("15:04", clock, s.loc)
	if err != nil {
		return nil, false, fmt.Errorf("availability: bad time %q: %w", clock, err)
	}
	target := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, s.loc)

	if free, name := s.checkSlot(ctx, pool, target, duration); free {
		return []string{fmt.Sprintf("Exacto: %s a las %s con %s", target.Format("02/01"), clock, name)}, true, nil
	}

	var alternatives []string

	// Same day, nudged by one then two slot lengths either side.
	offsets := []time.Duration{-duration, duration, -2 * duration, 2 * duration}
	for _, off := range offsets {
		alt := target.Add(off)
		if alt.Hour() < s.workStart || alt.Hour() >= s.workEnd {
			continue
		}
		if free, name := s.checkSlot(ctx, pool, alt, duration); free {
			alternatives = append(alternatives, fmt.Sprintf("Cercano: %s con %s", alt.Format("15:04"), name))
			if len(alternatives) >= 2 {
				break
			}
		}
	}

	// Same clock time over the next three days.
	for i := 1; i <= 3; i++ {
		next := target.AddDate(0, 0, i)
		if free, name := s.checkSlot(ctx, pool, next, duration); free {
			alternatives = append(alternatives, fmt.Sprintf("Otro día: %s a las %s con %s", next.Format("02/01"), clock, name))
			if len(alternatives) >= 3 {
				break
			}
		}
	}

	if len(alternatives) == 0 {
		return nil, false, nil
	}

	out := append([]string{fmt.Sprintf("Las %s está ocupado. Opciones:", clock)}, alternatives...)
	return out, true, nil
}

// searchRange enumerates every slot boundary in the window and down-samples
// the free ones to at most three representative options.
func (s *Searcher) searchRange(ctx context.Context, pool []professionals.Professional, day time.Time, hr HourRange, duration time.Duration) []string {
	cur := time.Date(day.Year(), day.Month(), day.Day(), hr.Start, 0, 0, 0, s.loc)
	limit := time.Date(day.Year(), day.Month(), day.Day(), hr.End, 0, 0, 0, s.loc)

	var free []string
	for !cur.Add(duration).After(limit) {
		if ok, name := s.checkSlot(ctx, pool, cur, duration); ok {
			free = append(free, fmt.Sprintf("%s (%s)", cur.Format("15:04"), name))
		}
		cur = cur.Add(duration)
	}

	return downsample(free)
}

// downsample keeps the first, middle and last options so the reply conveys
// the spread of the day (open, mid, near close) without a wall of times.
func downsample(slots []string) []string {
	if len(slots) <= 3 {
		return slots
	}

	picks := map[string]struct{}{
		slots[0]:            {},
		slots[len(slots)/2]: {},
		slots[len(slots)-1]: {},
	}

	out := make([]string, 0, len(picks))
	for s := range picks {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// checkSlot reports whether at least one professional in the pool is free at
// the exact span. First free professional by pool order wins; a gateway
// error just skips that professional (fail closed).
func (s *Searcher) checkSlot(ctx context.Context, pool []professionals.Professional, start time.Time, duration time.Duration) (bool, string) {
	for _, prof := range pool {
		if prof.CalendarID == "" {
			continue
		}
		free, err := s.gateway.IsFree(ctx, prof.CalendarID, start, duration)
		if err != nil {
			s.logger.Warn("availability probe failed, skipping professional",
				"professional", prof.Name, "start", start, "error", err)
			continue
		}
		if free {
			return true, prof.Name
		}
	}
	return false, ""
}

var spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

func spanishWeekday(t time.Time) string {
	return spanishWeekdays[int(t.Weekday())]
}
