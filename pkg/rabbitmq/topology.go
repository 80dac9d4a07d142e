package rabbitmq

import (
	"fmt"

	"worker-transcribe/constant"
)

const (
	ExchangeName = "transcription_exchange"
	dlxName      = "transcription_exchange_dlx"
)

// Topology names the queue wiring of one partition. Accelerator workers and
// general workers consume disjoint queues bound to the same exchange, so a
// deployment can scale them independently.
type Topology struct {
	Partition     constant.Partition
	QueueName     string
	RoutingKey    string
	DLQName       string
	DLQRoutingKey string
}

func ForPartition(p constant.Partition) Topology {
	return Topology{
		Partition:     p,
		QueueName:     fmt.Sprintf("transcription_%s_queue", p),
		RoutingKey:    fmt.Sprintf("transcription.%s.request", p),
		DLQName:       fmt.Sprintf("transcription_%s_queue_dlq", p),
		DLQRoutingKey: fmt.Sprintf("dlq.transcription.%s.request", p),
	}
}

// Route maps a worker's compute target onto the partition it serves. Anything
// with a usable accelerator takes the accelerator queue; everything else does
// general work.
func Route(computeTarget string) constant.Partition {
	switch computeTarget {
	case "cuda", "gpu", "mps":
		return constant.PartitionAccelerator
	}
	return constant.PartitionGeneral
}
