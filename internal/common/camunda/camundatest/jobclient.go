// Package camundatest provides a worker.JobClient that records the commands a
// job handler sends instead of talking to a gateway.
package camundatest

import (
	"context"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// JobClient builds real zeebe commands over a recording gateway.
type JobClient struct {
	pb.GatewayClient // nil; only the job commands below are served

	mu        sync.Mutex
	Completed []*pb.CompleteJobRequest
	Failed    []*pb.FailJobRequest
	Thrown    []*pb.ThrowErrorRequest

	// SendErr is returned by every command when set.
	SendErr error
}

func NewJobClient() *JobClient {
	return &JobClient{}
}

func noRetry(context.Context, error) bool { return false }

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c, noRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c, noRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c, noRetry)
}

func (c *JobClient) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Completed = append(c.Completed, in)
	return &pb.CompleteJobResponse{}, c.SendErr
}

func (c *JobClient) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Failed = append(c.Failed, in)
	return &pb.FailJobResponse{}, c.SendErr
}

func (c *JobClient) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Thrown = append(c.Thrown, in)
	return &pb.ThrowErrorResponse{}, c.SendErr
}

// NewJob returns an activated job carrying variables.
func NewJob(key int64, jobType string, retries int32, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               jobType,
		Retries:            retries,
		Variables:          variables,
		ProcessInstanceKey: key * 10,
	}}
}
