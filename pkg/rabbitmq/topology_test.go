package rabbitmq

import (
	"testing"

	"worker-transcribe/constant"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		target string
		want   constant.Partition
	}{
		{"cuda", constant.PartitionAccelerator},
		{"gpu", constant.PartitionAccelerator},
		{"mps", constant.PartitionAccelerator},
		{"cpu", constant.PartitionGeneral},
		{"", constant.PartitionGeneral},
		{"tpu", constant.PartitionGeneral},
	}
	for _, tt := range tests {
		if got := Route(tt.target); got != tt.want {
			t.Errorf("Route(%q) = %s, want %s", tt.target, got, tt.want)
		}
	}
}

func TestForPartitionNamesAreDisjoint(t *testing.T) {
	accel := ForPartition(constant.PartitionAccelerator)
	general := ForPartition(constant.PartitionGeneral)

	if accel.QueueName == general.QueueName {
		t.Fatal("partitions share a queue")
	}
	if accel.RoutingKey == general.RoutingKey {
		t.Fatal("partitions share a routing key")
	}
	if accel.DLQName == general.DLQName {
		t.Fatal("partitions share a dlq")
	}
	if accel.QueueName != "transcription_accelerator_queue" {
		t.Fatalf("accelerator queue = %q", accel.QueueName)
	}
	if general.RoutingKey != "transcription.general.request" {
		t.Fatalf("general routing key = %q", general.RoutingKey)
	}
}
