package storage

import (
	"encoding/json"

	"github.com/you/ratelink/domain"
)

// Plain-store key layout. The five session keys are written together on
// login and removed together on logout.
const (
	KeyUser         = "user"
	KeyToken        = "token"
	KeyRole         = "role"
	KeyUserID       = "userId"
	KeyWholesalerID = "wholesalerId"
	KeyDeviceID     = "deviceId"
)

// Secure-store key layout (biometric-only tier)
const (
	SecureKeyToken     = "auth_token"
	SecureKeyUser      = "user"
	SecureKeyBiometric = "biometricEnabled"
)

var sessionKeys = []string{KeyUser, KeyToken, KeyRole, KeyUserID, KeyWholesalerID}

// encodeSession flattens a session into the persisted key layout
func encodeSession(session *domain.Session) (map[string]string, error) {
	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return nil, err
	}
	kv := map[string]string{
		KeyUser:   string(userJSON),
		KeyToken:  session.Token,
		KeyRole:   string(session.User.Role),
		KeyUserID: session.User.ID,
	}
	if session.User.WholesalerID != "" {
		kv[KeyWholesalerID] = session.User.WholesalerID
	}
	return kv, nil
}

// decodeSession rebuilds a session from the persisted layout. The user,
// token and role keys must all be present; anything less reads as no
// session, anything malformed as corruption.
func decodeSession(get func(key string) (string, bool)) (*domain.Session, error) {
	userJSON, okUser := get(KeyUser)
	token, okToken := get(KeyToken)
	roleStr, okRole := get(KeyRole)
	if !okUser || !okToken || !okRole {
		return nil, domain.ErrSessionNotFound
	}

	var user domain.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, domain.ErrStoreCorrupt
	}
	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return nil, domain.ErrStoreCorrupt
	}
	user.Role = role

	session := &domain.Session{User: &user, Token: token}
	if !session.Valid() {
		return nil, domain.ErrStoreCorrupt
	}
	return session, nil
}
