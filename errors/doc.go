/*
Package errors provides semantic error types for the feature loader.

Errors fall into three groups:
  - configuration errors raised while resolving the schema (ErrNotFound,
    ErrInvalidInput, ErrUnknownKind)
  - I/O errors raised when record or archive files are accessed (ErrNotFound)
  - contract errors raised by feature handlers (ErrMissingValue, ErrShapeMismatch)

ErrExhausted marks the end of an iterator and is the only error a caller is
expected to handle in normal operation.

Usage:

	sample, err := reader.LoadSampleFile("data_test", 7)
	if err != nil {
	    if errors.IsNotFound(err) {
	        // 0007.npz does not exist
	    }
	    return err
	}

	batch, err := reader.AssembleBatch(ctx, it, 32)
	if errors.IsExhausted(err) {
	    // fewer than 32 samples were left
	}

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
