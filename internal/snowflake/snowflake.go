package snowflake

import (
	"fmt"
	"sync"
	"time"
)

// Layout: 42 bits of unix millis, 10 bits of worker ID, 12 bits of increment.
// IDs generated in the same millisecond share a timestamp and are ordered by
// the increment, so (created_at, id) sorting stays stable.
const (
	timestampBits int64 = 42
	workerBits    int64 = 10
	incrementBits       = 64 - timestampBits - workerBits

	timestampShift = 64 - timestampBits
	workerShift    = timestampShift - workerBits

	maxWorkerID  = int64(1)<<workerBits - 1
	maxIncrement = int64(1)<<incrementBits - 1
)

type Snowflake struct {
	Timestamp int64
	WorkerID  int64
	Increment int64
}

var (
	mutex         sync.Mutex
	lastTimestamp int64
	lastIncrement int64

	workerID    int64
	hasWorkerID bool
)

func Setup(id int64) error {
	if id > maxWorkerID {
		return fmt.Errorf("worker ID %d exceeds maximum of %d", id, maxWorkerID)
	}
	if hasWorkerID {
		return fmt.Errorf("snowflake worker ID has already been set")
	}
	workerID = id
	hasWorkerID = true
	return nil
}

func Generate() (int64, error) {
	mutex.Lock()
	defer mutex.Unlock()

	timestamp := time.Now().UnixMilli()
	if timestamp == lastTimestamp {
		lastIncrement++
		if lastIncrement > maxIncrement {
			return 0, fmt.Errorf("increment overflow within a single millisecond")
		}
	} else {
		lastIncrement = 0
		lastTimestamp = timestamp
	}

	return timestamp<<timestampShift | workerID<<workerShift | lastIncrement, nil
}

func Extract(id int64) Snowflake {
	return Snowflake{
		Timestamp: id >> timestampShift,
		WorkerID:  (id >> workerShift) & maxWorkerID,
		Increment: id & maxIncrement,
	}
}

func ExtractTimestamp(id int64) int64 {
	return Extract(id).Timestamp
}
