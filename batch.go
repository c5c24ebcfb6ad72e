package usal

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/usal/data"
)

// ExecuteBatch runs every sub-operation in order through the accessor's
// own typed operation methods and records the outcome at its position. An
// individual failure is recorded and execution continues; only argument
// validation, a declared batch-size excess, or cancellation fail the batch
// as a whole.
//
// Backends implement their Batch method with this helper over themselves,
// and the forwarding core uses it over the wrapping accessor, so the two
// stay behaviourally identical.
func ExecuteBatch(ctx context.Context, accessor Accessor, args data.OpBatch) (*data.BatchReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	caps := accessor.GetCapabilities()
	if caps.MaxBatchSize > 0 && len(args.Operations) > caps.MaxBatchSize {
		return nil, data.NewInvalidArgument(data.OperationBatch, "",
			fmt.Errorf("batch of %d exceeds limit of %d", len(args.Operations), caps.MaxBatchSize))
	}

	results := make([]data.BatchResult, 0, len(args.Operations))
	for _, sub := range args.Operations {
		if err := ctx.Err(); err != nil {
			return nil, data.ClassifyContext(data.OperationBatch, "", err)
		}

		result := data.BatchResult{
			Operation: sub.Operation,
			Path:      sub.Path,
		}
		result.Reply, result.Err = executeSub(ctx, accessor, sub)
		results = append(results, result)
	}

	return &data.BatchReply{Results: results}, nil
}

func executeSub(ctx context.Context, accessor Accessor, sub data.BatchOperation) (data.Reply, error) {
	switch sub.Operation {
	case data.OperationRead:
		var args data.OpRead
		if sub.Read != nil {
			args = *sub.Read
		}
		return liftReply(accessor.Read(ctx, sub.Path, args))

	case data.OperationWrite:
		if sub.Write == nil {
			return nil, data.NewInvalidArgument(data.OperationWrite, sub.Path, errors.New("missing write arguments"))
		}
		return liftReply(accessor.Write(ctx, sub.Path, *sub.Write))

	case data.OperationStat:
		var args data.OpStat
		if sub.Stat != nil {
			args = *sub.Stat
		}
		return liftReply(accessor.Stat(ctx, sub.Path, args))

	case data.OperationDelete:
		var args data.OpDelete
		if sub.Delete != nil {
			args = *sub.Delete
		}
		return liftReply(accessor.Delete(ctx, sub.Path, args))

	case data.OperationCopy:
		if sub.Copy == nil {
			return nil, data.NewInvalidArgument(data.OperationCopy, sub.Path, errors.New("missing copy arguments"))
		}
		return liftReply(accessor.Copy(ctx, sub.Path, *sub.Copy))

	case data.OperationRename:
		if sub.Rename == nil {
			return nil, data.NewInvalidArgument(data.OperationRename, sub.Path, errors.New("missing rename arguments"))
		}
		return liftReply(accessor.Rename(ctx, sub.Path, *sub.Rename))

	default:
		return nil, data.NewInvalidArgument(data.OperationBatch, sub.Path,
			errors.New("operation not batchable: "+sub.Operation.String()))
	}
}

// liftReply erases the concrete reply type into the marker interface while
// keeping a typed nil out of the result on failure.
func liftReply[R data.Reply](reply R, err error) (data.Reply, error) {
	if err != nil {
		return nil, err
	}
	return reply, nil
}
