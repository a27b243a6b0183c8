// Package errors provides examples of structured error handling in objectpool.
package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/objectpool/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeLimit, "object pool hit object limit").
		WithDetail("name", "http-clients").
		WithDetail("limit", 8)

	fmt.Println(err.Error())

	// Output:
	// limit: object pool hit object limit
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	originalErr := io.EOF

	err := errors.Wrap(originalErr, errors.ErrorTypeConnection, "failed to read response body").
		WithDetail("base_url", "http://localhost")

	if errors.IsType(err, errors.ErrorTypeConnection) {
		fmt.Println("This is a connection error")
	}
	fmt.Println(err.Unwrap() == io.EOF)

	// Output:
	// This is a connection error
	// true
}

// ExampleIsRetryable shows how to check if an error is retryable.
func ExampleIsRetryable() {
	limitErr := errors.New(errors.ErrorTypeLimit, "object pool hit object limit")
	argErr := errors.New(errors.ErrorTypeValidation, "generator must not be nil")

	fmt.Println(errors.IsRetryable(limitErr))
	fmt.Println(errors.IsRetryable(argErr))

	// Output:
	// true
	// false
}
