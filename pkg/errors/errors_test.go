package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	meta := MetadataFor(CodeProviderUnavailable)
	if meta.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("expected 502 for provider unavailable, got %d", meta.HTTPStatus)
	}
	if !meta.Retryable {
		t.Fatal("provider unavailable must be retryable")
	}

	meta = MetadataFor(CodeProviderRejected)
	if meta.Retryable {
		t.Fatal("provider rejection must not be retryable")
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeProviderUnavailable, cause, "create payment")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be discoverable via errors.Is")
	}
	if err.Code() != CodeProviderUnavailable {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsThroughWrappedChain(t *testing.T) {
	typed := New(CodeIntentExpired, "intent expired")
	chained := fmt.Errorf("verify: %w", typed)

	found := As(chained)
	if found == nil {
		t.Fatal("expected typed error in chain")
	}
	if found.Code() != CodeIntentExpired {
		t.Fatalf("unexpected code %s", found.Code())
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeValidation, "unknown plan")
	if !IsCode(err, CodeValidation) {
		t.Fatal("expected IsCode to match")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatal("expected IsCode mismatch")
	}
	if IsCode(nil, CodeValidation) {
		t.Fatal("nil error should never match")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(New(CodeDependency, "redis down")) {
		t.Fatal("dependency errors are retryable")
	}
	if Retryable(New(CodeValidation, "bad input")) {
		t.Fatal("validation errors are not retryable")
	}
	if Retryable(stdErrors.New("plain")) {
		t.Fatal("untyped errors are not retryable")
	}
}
