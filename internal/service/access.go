package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iixiiartist/founderhq-enrichment/internal/auth"
	"github.com/iixiiartist/founderhq-enrichment/internal/entity"
	"github.com/iixiiartist/founderhq-enrichment/internal/repository"
)

// Errors surfaced by the access checks. Their wording feeds the error
// classifier: token failures answer 401, membership denial answers 403, and
// an infrastructure failure during the membership lookup stays internal.
var (
	ErrTokenInvalid    = errors.New("invalid or expired token")
	ErrTokenMissing    = errors.New("missing bearer token")
	ErrNotMember       = errors.New("user is not a member of this workspace")
	ErrWorkspaceNeeded = errors.New("workspaceId must be a UUID")
)

// AccessService resolves a bearer token plus workspace ID into an authorized
// principal.
type AccessService struct {
	memberships repository.MembershipRepository
	jwt         *auth.JWTVerifier
	logger      *zap.Logger
}

// NewAccessService constructs a new AccessService.
func NewAccessService(memberships repository.MembershipRepository, verifier *auth.JWTVerifier, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{memberships: memberships, jwt: verifier, logger: logger}
}

// Authorize validates the token, parses the workspace ID and checks the
// caller's membership. The platform admin flag is best-effort: a failed
// lookup only loses the flag, it never fails the request.
func (s *AccessService) Authorize(ctx context.Context, token, workspaceID string) (*entity.Principal, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	claims, err := s.jwt.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrTokenInvalid)
	}

	wsID, err := uuid.Parse(workspaceID)
	if err != nil || wsID.Version() != 4 {
		return nil, ErrWorkspaceNeeded
	}

	membership, err := s.memberships.Find(ctx, wsID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("resolve workspace membership: %w", err)
	}

	principal := &entity.Principal{
		UserID:      userID,
		Email:       claims.Email,
		WorkspaceID: wsID,
		Role:        membership.Role,
	}

	admin, err := s.memberships.IsPlatformAdmin(ctx, userID)
	if err != nil {
		s.logger.Warn("platform admin lookup failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	} else {
		principal.PlatformAdmin = admin
	}

	return principal, nil
}
