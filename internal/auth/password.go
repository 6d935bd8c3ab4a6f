package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), effectiveCost(cost))
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

func effectiveCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// decoyHashes caches one decoy hash per cost.
var decoyHashes sync.Map

// CompareDecoy spends the same bcrypt work as a real comparison at cost.
// Login calls it for unknown accounts so response time does not reveal
// which emails exist; cost must match the one used for stored hashes.
func CompareDecoy(plain string, cost int) {
	_ = bcrypt.CompareHashAndPassword(decoyHash(cost), []byte(plain))
}

func decoyHash(cost int) []byte {
	cost = effectiveCost(cost)
	if hash, ok := decoyHashes.Load(cost); ok {
		return hash.([]byte)
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("decoy-password"), cost)
	actual, _ := decoyHashes.LoadOrStore(cost, hash)
	return actual.([]byte)
}
