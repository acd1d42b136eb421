package bucketing

import (
	"hash"
	"sync"

	"github.com/spaolacci/murmur3"

	"checkin-service/internal/config"
)

// BucketingManager assigns customers to fixed partition buckets so the
// customers table never develops hot partitions. Assignments are stable
// across restarts as long as CustomerBuckets does not change.
type BucketingManager struct {
	customerBuckets int
	hasherPool      sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	bm := &BucketingManager{
		customerBuckets: cfg.Bucketing.CustomerBuckets,
	}

	// Pool of hashers to avoid per-call allocation
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// GetCustomerBucket returns a consistent bucket for a customer ID
// (0 to customerBuckets-1).
func (bm *BucketingManager) GetCustomerBucket(customerID string) int {
	return bm.getBucket(customerID, bm.customerBuckets)
}

// GetCustomerBuckets reports the configured bucket count.
func (bm *BucketingManager) GetCustomerBuckets() int {
	return bm.customerBuckets
}

func (bm *BucketingManager) getBucket(key string, numBuckets int) int {
	if numBuckets <= 0 {
		return 0
	}
	return int(bm.getHash(key) % uint64(numBuckets))
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
