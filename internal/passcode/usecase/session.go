package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/preschool/internal/pkg/goerror"
	"github.com/shandysiswandi/preschool/internal/pkg/jwt"
)

type SessionOutput struct {
	Phone     string
	ExpiresAt time.Time
}

func (s *Usecase) Session(ctx context.Context) (*SessionOutput, error) {
	_, span := s.startSpan(ctx, "Session")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil || clm.Phone == "" {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	out := &SessionOutput{Phone: clm.Phone}
	if clm.ExpiresAt != nil {
		out.ExpiresAt = clm.ExpiresAt.Time
	}

	return out, nil
}
