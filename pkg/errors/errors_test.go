package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/multierr"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", detailsOK: true},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "concurrent update conflict", retryable: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "operation not allowed in current state", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := Newf(CodeNotFound, "document %s not found", "SO-00001")
	outer := fmt.Errorf("transfer: %w", inner)

	if !IsCode(outer, CodeNotFound) {
		t.Fatalf("expected not found code through wrapping")
	}
	if IsCode(outer, CodeValidation) {
		t.Fatalf("unexpected validation match")
	}
	if inner.Message() != "document SO-00001 not found" {
		t.Fatalf("unexpected formatted message %q", inner.Message())
	}
}

func TestRetryableOnlyForTransientCodes(t *testing.T) {
	if !Retryable(New(CodeConflict, "serialization failure")) {
		t.Fatalf("conflict should be retryable")
	}
	if Retryable(New(CodeStateConflict, "already cancelled")) {
		t.Fatalf("invalid state should not be retryable")
	}
	if Retryable(stdErrors.New("plain")) {
		t.Fatalf("untyped errors are not retryable")
	}
}

func TestCollectListsEveryProblem(t *testing.T) {
	var errs error
	if got := Collect(CodeValidation, errs, "invalid"); got != nil {
		t.Fatalf("expected nil for no problems, got %v", got)
	}

	errs = multierr.Append(errs, stdErrors.New("items[0]: qty must not be zero"))
	errs = multierr.Append(errs, New(CodeValidation, "customer not found"))

	got := As(Collect(CodeValidation, errs, "invalid draft"))
	if got == nil || got.Code() != CodeValidation {
		t.Fatalf("expected validation error, got %v", got)
	}
	details, ok := got.Details().([]string)
	if !ok || len(details) != 2 {
		t.Fatalf("expected two details, got %#v", got.Details())
	}
	if details[1] != "customer not found" {
		t.Fatalf("expected typed message without code prefix, got %q", details[1])
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505", ConstraintName: "ux_commercial_documents_domain_doc_no", TableName: "commercial_documents", Message: "duplicate key"}
	err := Wrap(CodeConflict, fmt.Errorf("insert document: %w", cause), "document number taken")

	d := Dump(err)
	if d.Code != CodeConflict || !d.Retryable {
		t.Fatalf("unexpected code %s retryable=%v", d.Code, d.Retryable)
	}
	if d.PG == nil || d.PG.Code != "23505" || d.PG.Table != "commercial_documents" {
		t.Fatalf("unexpected pg fields %+v", d.PG)
	}
	if len(d.Chain) < 3 {
		t.Fatalf("expected full chain, got %v", d.Chain)
	}
	fields := d.Fields()
	if fields["pg_constraint"] != "ux_commercial_documents_domain_doc_no" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestPostgresReadsLibPQErrors(t *testing.T) {
	err := fmt.Errorf("allocate: %w", &pq.Error{Code: "40001", Message: "could not serialize access"})
	pg := Postgres(err)
	if pg == nil || pg.Code != "40001" {
		t.Fatalf("expected serialization failure, got %+v", pg)
	}
	if Postgres(stdErrors.New("plain")) != nil {
		t.Fatalf("plain errors carry no postgres fields")
	}
	if _, ok := Dump(stdErrors.New("plain")).Fields()["pg_code"]; ok {
		t.Fatalf("pg keys must be omitted without a driver error")
	}
}
