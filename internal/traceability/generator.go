package traceability

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"gorm.io/gorm"
)

const (
	PrefixRawMaterial     = "RM"
	PrefixFinishedProduct = "FP"
)

const dayLayout = "20060102"

var codePattern = regexp.MustCompile(`^([A-Z]+)-(\d{8})-(\d{3,})$`)

// Generator mints day-scoped codes such as RM-20260105-001. Issue must run in the
// transaction that inserts the labelled row.
type Generator interface {
	Issue(ctx context.Context, tx *gorm.DB, prefix string) (string, error)
	IssueAt(ctx context.Context, tx *gorm.DB, prefix string, at time.Time) (string, error)
}

type generator struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// Option customises a Generator.
type Option func(*generator)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator builds a generator whose day boundary follows loc (UTC when nil).
func NewGenerator(repo Repository, loc *time.Location, opts ...Option) (Generator, error) {
	if repo == nil {
		return nil, fmt.Errorf("traceability repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	g := &generator{repo: repo, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *generator) Issue(ctx context.Context, tx *gorm.DB, prefix string) (string, error) {
	return g.IssueAt(ctx, tx, prefix, g.now())
}

func (g *generator) IssueAt(ctx context.Context, tx *gorm.DB, prefix string, at time.Time) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "traceability prefix is required")
	}
	if tx == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "traceability codes must be issued inside a transaction")
	}

	day := at.In(g.loc).Format(dayLayout)
	n, err := g.repo.WithTx(tx).Increment(ctx, prefix, day)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue traceability code")
	}
	return FormatCode(prefix, day, n), nil
}

// FormatCode renders prefix-YYYYMMDD-NNN.
func FormatCode(prefix, day string, n int64) string {
	return fmt.Sprintf("%s-%s-%03d", prefix, day, n)
}

// ParsedCode is a decoded traceability code.
type ParsedCode struct {
	Prefix string
	Day    string
	Number string
}

// ParseCode splits a code into its parts; it does not check the prefix against known kinds.
func ParseCode(code string) (ParsedCode, bool) {
	m := codePattern.FindStringSubmatch(strings.TrimSpace(code))
	if m == nil {
		return ParsedCode{}, false
	}
	return ParsedCode{Prefix: m[1], Day: m[2], Number: m[3]}, true
}
