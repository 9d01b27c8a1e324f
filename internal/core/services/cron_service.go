package services

import (
	"context"
	"time"

	"cmcs-claims/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// sessionPurgeSpec runs the in-process session purge every five minutes
const sessionPurgeSpec = "@every 5m"

// SweepOptions configures the orphaned document sweep
type SweepOptions struct {
	Spec   string        // cron spec
	Grace  time.Duration // files younger than this are never orphans
	Remove bool          // delete orphans instead of only reporting them
}

// SweepResult summarises one sweep
type SweepResult struct {
	Scanned int      `json:"scanned"`
	Orphans []string `json:"orphans"`
	Removed int      `json:"removed"`
}

// CronService runs scheduled maintenance
type CronService struct {
	cron      *cron.Cron
	claimRepo repositories.ClaimRepository
	docs      DocumentStore
	purger    SessionPurger
	opts      SweepOptions
	log       *logrus.Entry
	now       func() time.Time
}

// NewCronService creates a new cron service. purger may be nil when the
// session store expires entries itself.
func NewCronService(
	claimRepo repositories.ClaimRepository,
	docs DocumentStore,
	purger SessionPurger,
	opts SweepOptions,
	log *logrus.Entry,
) *CronService {
	return &CronService{
		cron:      cron.New(),
		claimRepo: claimRepo,
		docs:      docs,
		purger:    purger,
		opts:      opts,
		log:       log.WithField("component", "cron-service"),
		now:       time.Now,
	}
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() error {
	_, err := s.cron.AddFunc(s.opts.Spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.SweepDocuments(ctx); err != nil {
			s.log.WithError(err).Error("Document sweep failed")
		}
	})
	if err != nil {
		return err
	}

	if s.purger != nil {
		if _, err := s.cron.AddFunc(sessionPurgeSpec, func() {
			if n := s.purger.PurgeExpired(); n > 0 {
				s.log.WithField("sessions", n).Debug("Expired sessions purged")
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.log.WithField("spec", s.opts.Spec).Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("Cron service stopped")
}

// SweepDocuments finds stored documents no claim references. Orphans are
// removed only when the sweep is configured to.
func (s *CronService) SweepDocuments(ctx context.Context) (*SweepResult, error) {
	refs, err := s.claimRepo.ListDocumentPaths(ctx)
	if err != nil {
		return nil, err
	}
	referenced := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		referenced[ref] = struct{}{}
	}

	stored, err := s.docs.List()
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Scanned: len(stored), Orphans: []string{}}
	cutoff := s.now().Add(-s.opts.Grace)

	for _, doc := range stored {
		if _, ok := referenced[doc.Ref]; ok {
			continue
		}
		// an upload may be waiting on its claim insert
		if doc.ModTime.After(cutoff) {
			continue
		}

		result.Orphans = append(result.Orphans, doc.Ref)
		entry := s.log.WithFields(logrus.Fields{"document": doc.Ref, "size": doc.Size})
		if !s.opts.Remove {
			entry.Warn("Orphaned document")
			continue
		}
		if err := s.docs.Remove(doc.Ref); err != nil {
			entry.WithError(err).Error("Failed to remove orphaned document")
			continue
		}
		result.Removed++
		entry.Info("Orphaned document removed")
	}

	s.log.WithFields(logrus.Fields{
		"scanned": result.Scanned,
		"orphans": len(result.Orphans),
		"removed": result.Removed,
	}).Info("Document sweep finished")

	return result, nil
}
