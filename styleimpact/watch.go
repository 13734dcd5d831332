package styleimpact

import (
	"context"
	"database/sql"
	"time"

	"github.com/hazyhaar/styleimpact/styleimpact/internal/jobwatch"
)

// WatchJobs runs the active jobs of db's impact_jobs table now, again
// whenever the table changes (polled every interval), and every `every` if
// non-zero. It blocks until ctx is cancelled.
func (s *Service) WatchJobs(ctx context.Context, db *sql.DB, interval, every time.Duration) {
	w := jobwatch.New(db, jobwatch.Options{
		Interval: interval,
		Debounce: interval,
		Every:    every,
		Logger:   s.logger,
	})
	w.Run(ctx, s.RunJobs)
}
