package metrics

import (
	"time"

	"github.com/nimbusfs/nimbusfs/pkg/blobstore"
	"github.com/nimbusfs/nimbusfs/pkg/entitystore"
	"github.com/nimbusfs/nimbusfs/pkg/model"
)

// Collector periodically samples storage-wide gauges (blob count/size,
// entity count by file type) that are too expensive to compute on
// every request.
type Collector struct {
	entities *entitystore.Store
	blobs    blobstore.Store
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(entities *entitystore.Store, blobs blobstore.Store) *Collector {
	return &Collector{
		entities: entities,
		blobs:    blobs,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectBlobMetrics()
	c.collectEntityMetrics()
}

func (c *Collector) collectBlobMetrics() {
	count, totalBytes, err := c.blobs.Stats()
	if err != nil {
		return
	}
	BlobStoreBlobsTotal.Set(float64(count))
	BlobStoreSizeBytes.Set(float64(totalBytes))
}

func (c *Collector) collectEntityMetrics() {
	counts := make(map[model.FileType]int)
	if err := c.walk(model.RootID, counts); err != nil {
		return
	}
	for ft, n := range counts {
		EntitiesTotal.WithLabelValues(ft.String()).Set(float64(n))
	}
}

func (c *Collector) walk(parent string, counts map[model.FileType]int) error {
	children, err := c.entities.ListChildren(parent)
	if err != nil {
		return err
	}
	for _, child := range children {
		counts[child.Stat.FileType]++
		if child.Stat.FileType == model.Directory {
			if err := c.walk(child.ID, counts); err != nil {
				return err
			}
		}
	}
	return nil
}
