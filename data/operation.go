package data

// Operation identifies one of the closed set of storage operations.
// It is used both as a dispatch tag inside batches and as an index
// into capability descriptors.
type Operation string

const (
	OperationRead    Operation = "read"
	OperationWrite   Operation = "write"
	OperationStat    Operation = "stat"
	OperationDelete  Operation = "delete"
	OperationList    Operation = "list"
	OperationScan    Operation = "scan"
	OperationCopy    Operation = "copy"
	OperationRename  Operation = "rename"
	OperationPresign Operation = "presign"
	OperationBatch   Operation = "batch"
)

// Operations returns the closed operation set in declaration order.
func Operations() []Operation {
	return []Operation{
		OperationRead,
		OperationWrite,
		OperationStat,
		OperationDelete,
		OperationList,
		OperationScan,
		OperationCopy,
		OperationRename,
		OperationPresign,
		OperationBatch,
	}
}

func (o Operation) String() string {
	return string(o)
}
