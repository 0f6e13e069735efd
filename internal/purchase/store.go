package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	dbpkg "github.com/niuginipay/greenfees/internal/db"
	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/passport"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultSessionTTL is the payment deadline for online sessions.
const DefaultSessionTTL = 30 * time.Minute

// Store manages purchase session rows outside the completion transaction.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateSessionParams carries the inputs captured when a customer starts a
// purchase.
type CreateSessionParams struct {
	CustomerEmail  string          // Required contact email.
	CustomerPhone  string          // Optional contact phone.
	Quantity       int             // Voucher count, defaults to 1.
	Amount         float64         // Required positive amount.
	Currency       string          // Defaults to PGK.
	DeliveryMethod string          // Defaults to email.
	Passport       *passport.Input // Raw passport data for single-voucher flows.
	Metadata       map[string]any  // Source, client fingerprint and similar.
	TTL            time.Duration   // Payment deadline, defaults to DefaultSessionTTL.
}

// CreateSession inserts a pending session with a generated id and expiry.
func (s *Store) CreateSession(ctx context.Context, params CreateSessionParams) (*models.PurchaseSession, error) {
	email := strings.TrimSpace(params.CustomerEmail)
	if email == "" {
		return nil, fmt.Errorf("%w: missing customer email", ErrInvalidSessionData)
	}
	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidSessionData)
	}
	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	currency := strings.TrimSpace(params.Currency)
	if currency == "" {
		currency = "PGK"
	}
	delivery := strings.TrimSpace(params.DeliveryMethod)
	if delivery == "" {
		delivery = "email"
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now().UTC()
	session := models.PurchaseSession{
		ID:             uuid.NewString(),
		CustomerEmail:  email,
		CustomerPhone:  strings.TrimSpace(params.CustomerPhone),
		Quantity:       quantity,
		Amount:         params.Amount,
		Currency:       currency,
		DeliveryMethod: delivery,
		Status:         models.SessionStatusPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
	if params.Passport != nil && !params.Passport.Empty() {
		raw, errMarshal := json.Marshal(params.Passport)
		if errMarshal != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSessionData, errMarshal)
		}
		session.PassportInput = datatypes.JSON(raw)
	}
	if len(params.Metadata) > 0 {
		raw, errMarshal := json.Marshal(params.Metadata)
		if errMarshal != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSessionData, errMarshal)
		}
		session.Metadata = datatypes.JSON(raw)
	}

	if errCreate := s.db.WithContext(ctx).Create(&session).Error; errCreate != nil {
		return nil, errCreate
	}
	return &session, nil
}

// GetSession reads a session without locking it.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.PurchaseSession, error) {
	var session models.PurchaseSession
	errFind := s.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, errFind
	}
	return &session, nil
}

// SessionStatus reports the externally visible status of a session. A
// pending session past its deadline reads as expired without being
// rewritten; expiry is a timestamp comparison on the read path.
func (s *Store) SessionStatus(ctx context.Context, sessionID string) (string, *models.PurchaseSession, error) {
	session, errGet := s.GetSession(ctx, sessionID)
	if errGet != nil {
		return "", nil, errGet
	}
	status := session.Status
	if status == models.SessionStatusPending && time.Now().UTC().After(session.ExpiresAt) {
		status = models.SessionStatusExpired
	}
	return status, session, nil
}

// ExpireStaleSessions persists the expired status for pending sessions
// whose deadline passed at least gracePeriod ago. Advisory housekeeping:
// the read path never depends on it.
func (s *Store) ExpireStaleSessions(ctx context.Context, gracePeriod time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-gracePeriod)
	res := s.db.WithContext(ctx).
		Model(&models.PurchaseSession{}).
		Where("status = ? AND expires_at < ?", models.SessionStatusPending, cutoff).
		Update("status", models.SessionStatusExpired)
	return res.RowsAffected, res.Error
}

// GetSessionForUpdate reads a session inside the caller's transaction while
// holding an exclusive lock on its row. The lock is what serializes
// concurrent completion attempts for the same session id.
func GetSessionForUpdate(tx *gorm.DB, sessionID string) (*models.PurchaseSession, error) {
	var session models.PurchaseSession
	errFind := dbpkg.LockForUpdate(tx).Where("id = ?", sessionID).First(&session).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, errFind
	}
	return &session, nil
}

// MarkSessionCompleted finalizes a pending session: status flips to
// completed, the gateway reference and completion time are stamped, and
// gateway metadata is merged into the stored session metadata. The update
// is conditioned on the pending status as a last-resort guard; zero rows
// affected means another path finalized the session first.
func MarkSessionCompleted(tx *gorm.DB, session *models.PurchaseSession, gatewayRef string, extra map[string]any) error {
	now := time.Now().UTC()

	merged, errMerge := mergeMetadata(session.Metadata, extra)
	if errMerge != nil {
		return errMerge
	}

	updates := map[string]any{
		"status":       models.SessionStatusCompleted,
		"gateway_ref":  strings.TrimSpace(gatewayRef),
		"completed_at": now,
	}
	if merged != nil {
		updates["metadata"] = merged
	}

	res := tx.Model(&models.PurchaseSession{}).
		Where("id = ? AND status = ?", session.ID, models.SessionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidSessionState
	}

	session.Status = models.SessionStatusCompleted
	session.GatewayRef = strings.TrimSpace(gatewayRef)
	session.CompletedAt = &now
	if merged != nil {
		session.Metadata = merged
	}
	return nil
}

// mergeMetadata overlays gateway metadata onto the stored session metadata.
func mergeMetadata(stored datatypes.JSON, extra map[string]any) (datatypes.JSON, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	base := map[string]any{}
	if len(stored) > 0 {
		if errDecode := json.Unmarshal(stored, &base); errDecode != nil {
			base = map[string]any{}
		}
	}
	for key, value := range extra {
		base[key] = value
	}
	raw, errMarshal := json.Marshal(base)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(raw), nil
}
