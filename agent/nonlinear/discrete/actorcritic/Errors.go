package actorcritic

import "github.com/pkg/errors"

var (
	// ErrCheckpointNotFound is returned when loading a checkpoint file
	// that does not exist
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrCheckpointCorrupt is returned when a checkpoint file cannot be
	// decoded
	ErrCheckpointCorrupt = errors.New("checkpoint corrupt")

	// ErrShapeMismatch is returned when the weights stored in a
	// checkpoint do not fit the agent's networks
	ErrShapeMismatch = errors.New("checkpoint shape mismatch")

	// ErrNumericInstability is returned by Update when the loss or a
	// gradient is NaN or infinite. The weights are left unchanged.
	ErrNumericInstability = errors.New("numeric instability")

	// ErrStaleLoss is returned by Update when given a Loss that was not
	// produced by the most recent call to Loss
	ErrStaleLoss = errors.New("stale loss")
)
