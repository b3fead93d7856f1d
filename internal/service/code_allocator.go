package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fieldops/maintenance-service/internal/repository"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

const (
	codeAlphabet         = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	ticketSuffixLength   = 6
	equipmentCodeLength  = 8
	defaultCodeAttempts  = 10
	rejectionSampleLimit = 252 // largest multiple of len(codeAlphabet) below 256
)

// CodeExistsFunc reports whether a candidate code is already taken.
type CodeExistsFunc func(ctx context.Context, code string) (bool, error)

// ClaimFunc persists a record under code. It returns repository.ErrDuplicate
// when a concurrent writer won the code first.
type ClaimFunc func(ctx context.Context, code string) error

// CodeAllocator generates collision-free ticket numbers and equipment codes.
type CodeAllocator struct {
	maxAttempts int
	random      io.Reader
	now         func() time.Time
}

// NewCodeAllocator builds an allocator that gives up after maxAttempts candidates.
func NewCodeAllocator(maxAttempts int) *CodeAllocator {
	if maxAttempts <= 0 {
		maxAttempts = defaultCodeAttempts
	}
	return &CodeAllocator{maxAttempts: maxAttempts, random: rand.Reader, now: time.Now}
}

// TicketNumber allocates a TKT-YYMM-XXXXXX number and claims it.
func (a *CodeAllocator) TicketNumber(ctx context.Context, exists CodeExistsFunc, claim ClaimFunc) (string, error) {
	return a.allocate(ctx, "ticket number", func() (string, error) {
		suffix, err := a.randomString(ticketSuffixLength)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("TKT-%s-%s", a.now().UTC().Format("0601"), suffix), nil
	}, exists, claim)
}

// EquipmentCode allocates an EQ-XXXXXXXX code and claims it.
func (a *CodeAllocator) EquipmentCode(ctx context.Context, exists CodeExistsFunc, claim ClaimFunc) (string, error) {
	return a.allocate(ctx, "equipment code", func() (string, error) {
		suffix, err := a.randomString(equipmentCodeLength)
		if err != nil {
			return "", err
		}
		return "EQ-" + suffix, nil
	}, exists, claim)
}

func (a *CodeAllocator) allocate(ctx context.Context, kind string, generate func() (string, error), exists CodeExistsFunc, claim ClaimFunc) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := generate()
		if err != nil {
			return "", apperrors.NewInternalError(fmt.Errorf("generate %s: %w", kind, err))
		}
		if exists != nil {
			taken, err := exists(ctx, code)
			if err != nil {
				return "", apperrors.NewInternalError(fmt.Errorf("check %s: %w", kind, err))
			}
			if taken {
				continue
			}
		}
		if err := claim(ctx, code); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return "", err
		}
		return code, nil
	}
	return "", apperrors.NewCapacityError(
		fmt.Sprintf("could not allocate a unique %s", kind),
		map[string]any{"attempts": a.maxAttempts},
	)
}

func (a *CodeAllocator) randomString(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(a.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= rejectionSampleLimit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
