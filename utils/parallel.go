package utils

import "sync"

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree > maxIndex {
		ParallelDegree = maxIndex
	}
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (imin, imax int) {
	imin, imax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bucketNum int) (size int) {
	imin, imax := pm.GetBucketRange(bucketNum)
	size = imax - imin
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	var (
		Npart            = pm.MaxIndex / pm.ParallelDegree
		remainder        = pm.MaxIndex % pm.ParallelDegree
		threadStartAdder = threadNum
	)
	if threadNum >= remainder {
		threadStartAdder = remainder
	} else {
		Npart++
	}
	bucket[0] = threadNum*(pm.MaxIndex/pm.ParallelDegree) + threadStartAdder
	bucket[1] = bucket[0] + Npart
	return
}

// ParallelFor runs f(i) for i in [0,maxIndex) across the partition's buckets,
// one goroutine per bucket, and blocks until all complete
func (pm *PartitionMap) ParallelFor(f func(i int)) {
	var (
		wg sync.WaitGroup
	)
	for np := 0; np < pm.ParallelDegree; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			imin, imax := pm.GetBucketRange(np)
			for i := imin; i < imax; i++ {
				f(i)
			}
		}(np)
	}
	wg.Wait()
}
