package background

import (
	"context"
	"log"
	"sync"
	"time"

	"inventory-service/internal/config"
	"inventory-service/internal/models"
	"inventory-service/internal/services"
)

// OrganizationLister exposes the organizations the low stock scan
// walks.
type OrganizationLister interface {
	GetAll(ctx context.Context) ([]models.Organization, error)
}

// Runner manages background jobs: the trial expiry sweep and the low
// stock scan.
type Runner struct {
	subscriptions *services.SubscriptionService
	products      *services.ProductService
	orgs          OrganizationLister
	config        config.JobsConfig
	stopCh        chan struct{}
	wg            sync.WaitGroup
	trialTicker   *time.Ticker
	stockTicker   *time.Ticker
}

// NewRunner creates a new background runner
func NewRunner(subscriptions *services.SubscriptionService, products *services.ProductService, orgs OrganizationLister, cfg config.JobsConfig) *Runner {
	return &Runner{
		subscriptions: subscriptions,
		products:      products,
		orgs:          orgs,
		config:        cfg,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the background job processing
func (r *Runner) Start() {
	log.Println("Starting background job runner...")

	trialInterval := time.Duration(r.config.TrialSweepInterval) * time.Minute
	r.trialTicker = time.NewTicker(trialInterval)
	log.Printf("Trial expiry sweep scheduled every %v", trialInterval)

	stockInterval := time.Duration(r.config.LowStockInterval) * time.Minute
	r.stockTicker = time.NewTicker(stockInterval)
	log.Printf("Low stock scan scheduled every %v", stockInterval)

	r.wg.Add(1)
	go r.runTrialSweep()

	r.wg.Add(1)
	go r.runLowStockScan()

	log.Println("Background job runner started successfully")
}

// Stop gracefully stops all background jobs
func (r *Runner) Stop() {
	log.Println("Stopping background job runner...")
	close(r.stopCh)

	if r.trialTicker != nil {
		r.trialTicker.Stop()
	}
	if r.stockTicker != nil {
		r.stockTicker.Stop()
	}

	r.wg.Wait()
	log.Println("Background job runner stopped")
}

func (r *Runner) runTrialSweep() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.trialTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			expired, err := r.subscriptions.ExpireTrials(ctx)
			cancel()
			if err != nil {
				log.Printf("Trial expiry sweep failed: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("Trial expiry sweep suspended %d subscriptions", expired)
			}
		}
	}
}

func (r *Runner) runLowStockScan() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopCh:
			return
		case <-r.stockTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			orgs, err := r.orgs.GetAll(ctx)
			if err != nil {
				log.Printf("Low stock scan failed to list organizations: %v", err)
				cancel()
				continue
			}
			for _, org := range orgs {
				if err := r.products.PublishLowStock(ctx, org.ID); err != nil {
					log.Printf("Low stock scan failed for organization %s: %v", org.ID, err)
				}
			}
			cancel()
		}
	}
}
