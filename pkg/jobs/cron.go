package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/modelforge/modelforge/pkg/cache"
	"github.com/robfig/cron/v3"
)

// CronManager manages scheduled jobs
type CronManager struct {
	cron   *cron.Cron
	cache  *cache.Client
	logger *log.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(cache *cache.Client, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:   cron.New(),
		cache:  cache,
		logger: logger,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	cm.logger.Println("Setting up cron jobs...")

	// Daily at 00:10 UTC: log yesterday's generation outcomes.
	_, err := cm.cron.AddFunc("10 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		day := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
		success := cm.counter(ctx, fmt.Sprintf("stats:gen:%s:success", day))
		placeholder := cm.counter(ctx, fmt.Sprintf("stats:gen:%s:placeholder", day))

		cm.logger.Printf("📊 Generation summary for %s: %d succeeded, %d fell back to placeholder", day, success, placeholder)
	})
	if err != nil {
		return err
	}

	// Hourly: report checkout intents still pending. Redis TTL expires
	// them; this only surfaces how many never completed.
	_, err = cm.cron.AddFunc("0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		keys, err := cm.cache.Keys(ctx, "checkout:intent:*")
		if err != nil {
			cm.logger.Printf("⚠️  Failed to scan pending checkout intents: %v", err)
			return
		}
		if len(keys) > 0 {
			cm.logger.Printf("🕐 %d checkout intents still pending", len(keys))
		}
	})
	if err != nil {
		return err
	}

	// Weekly on Sunday at 01:00 UTC: drop generation stats older than 30 days.
	_, err = cm.cron.AddFunc("0 1 * * 0", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		cutoff := time.Now().UTC().AddDate(0, 0, -30)
		keys, err := cm.cache.Keys(ctx, "stats:gen:*")
		if err != nil {
			cm.logger.Printf("⚠️  Failed to scan stats keys: %v", err)
			return
		}

		var stale []string
		for _, key := range keys {
			// stats:gen:<yyyy-mm-dd>:<outcome>
			var day string
			if _, err := fmt.Sscanf(key, "stats:gen:%10s", &day); err != nil {
				continue
			}
			t, err := time.Parse("2006-01-02", day)
			if err != nil || !t.Before(cutoff) {
				continue
			}
			stale = append(stale, key)
		}

		if len(stale) == 0 {
			return
		}
		if err := cm.cache.Delete(ctx, stale...); err != nil {
			cm.logger.Printf("⚠️  Failed to delete stale stats keys: %v", err)
			return
		}
		cm.logger.Printf("🗑️  Deleted %d stale generation stats keys", len(stale))
	})
	if err != nil {
		return err
	}

	cm.logger.Println("✅ Cron jobs configured")
	return nil
}

// Start begins running scheduled jobs
func (cm *CronManager) Start() {
	cm.cron.Start()
}

// Stop halts the scheduler, waiting for running jobs to finish.
func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
}

func (cm *CronManager) counter(ctx context.Context, key string) int64 {
	raw, err := cm.cache.Get(ctx, key)
	if err != nil {
		return 0
	}
	var n int64
	fmt.Sscanf(raw, "%d", &n)
	return n
}
